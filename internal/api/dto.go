package api

import (
	"encoding/json"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/recordservice"
)

// Record is a record with its JSON payload (aliased from the domain layer).
type Record = recordservice.Record

// KindInfo describes a record kind (aliased from the domain layer).
type KindInfo = recordservice.KindInfo

// Link is a version-chain edge (aliased from the domain layer).
type Link = models.Link

// CreateRecordRequest is the request body for creating a record.
type CreateRecordRequest struct {
	Base    string          `json:"base" example:"project-1" validate:"required"`
	Payload json.RawMessage `json:"payload" swaggertype:"object" validate:"required"`
}

// UpdateRecordRequest is the request body for updating a record.
type UpdateRecordRequest struct {
	CreatedAt models.Timestamp `json:"created_at" example:"2024-05-01T12:00:00.000000000Z" validate:"required"`
	Address   models.Address   `json:"address" validate:"required"`
	Payload   json.RawMessage  `json:"payload" swaggertype:"object" validate:"required"`
}

// RebaseRecordRequest is the request body for moving a record between bases.
type RebaseRecordRequest struct {
	BaseFrom  string           `json:"base_from" example:"project-1" validate:"required"`
	BaseTo    string           `json:"base_to" example:"project-2" validate:"required"`
	CreatedAt models.Timestamp `json:"created_at" validate:"required"`
}

// AddressResponse carries a single address.
type AddressResponse struct {
	Address models.Address `json:"address" validate:"required"`
}

// RecordListResponse wraps a record listing.
type RecordListResponse struct {
	Records []Record `json:"records" validate:"required"`
}

// KindListResponse wraps the registered kinds.
type KindListResponse struct {
	Kinds []KindInfo `json:"kinds" validate:"required"`
}

// VersionsResponse wraps the version-chain links leaving a record.
type VersionsResponse struct {
	Versions []Link `json:"versions" validate:"required"`
}

// AnchorTypesResponse wraps anchor types or tags.
type AnchorTypesResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// AnchorAddressesResponse wraps anchor addresses.
type AnchorAddressesResponse struct {
	Addresses []models.Address `json:"addresses" validate:"required"`
}
