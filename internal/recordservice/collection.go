package recordservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/lifecycle"
	"github.com/starford/othala/internal/models"
)

// Record is a record with its payload kept as JSON.
type Record = models.Record[json.RawMessage]

// KindInfo describes a registered kind and the labels it uses.
type KindInfo struct {
	Name           string `json:"name"`
	AnchorType     string `json:"anchor_type"`
	EntryType      string `json:"entry_type"`
	LinkType       string `json:"link_type"`
	UpdateLinkType string `json:"update_link_type"`
}

// Collection is one record kind with its payload type erased to JSON.
type Collection interface {
	Info() KindInfo
	Create(ctx context.Context, base string, payload json.RawMessage) (Record, error)
	Read(ctx context.Context, id models.Address, createdAt models.Timestamp) (Record, error)
	Update(ctx context.Context, id models.Address, createdAt models.Timestamp, address models.Address, payload json.RawMessage) (Record, error)
	Delete(ctx context.Context, base string, id models.Address, createdAt models.Timestamp, address models.Address) (models.Address, error)
	List(ctx context.Context, base string) ([]Record, error)
	Rebase(ctx context.Context, baseFrom, baseTo string, id models.Address, createdAt models.Timestamp) (models.Address, error)
	Versions(ctx context.Context, id models.Address) ([]models.Link, error)
}

type collection[T any] struct {
	m *lifecycle.Manager[T]
}

func (c collection[T]) Info() KindInfo {
	k := c.m.Kind()
	return KindInfo{
		Name:           k.Name,
		AnchorType:     k.AnchorType,
		EntryType:      k.EntryType,
		LinkType:       k.LinkType,
		UpdateLinkType: k.UpdateLinkType,
	}
}

func (c collection[T]) Create(ctx context.Context, base string, payload json.RawMessage) (Record, error) {
	p, err := decode[T](payload)
	if err != nil {
		return Record{}, err
	}
	return erase(c.m.Create(ctx, base, p))
}

func (c collection[T]) Read(ctx context.Context, id models.Address, createdAt models.Timestamp) (Record, error) {
	return erase(c.m.Read(ctx, id, createdAt))
}

func (c collection[T]) Update(ctx context.Context, id models.Address, createdAt models.Timestamp, address models.Address, payload json.RawMessage) (Record, error) {
	p, err := decode[T](payload)
	if err != nil {
		return Record{}, err
	}
	return erase(c.m.Update(ctx, id, createdAt, address, p))
}

func (c collection[T]) Delete(ctx context.Context, base string, id models.Address, createdAt models.Timestamp, address models.Address) (models.Address, error) {
	return c.m.Delete(ctx, base, id, createdAt, address)
}

func (c collection[T]) List(ctx context.Context, base string) ([]Record, error) {
	recs, err := c.m.List(ctx, base)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		e, err := erase(r, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c collection[T]) Rebase(ctx context.Context, baseFrom, baseTo string, id models.Address, createdAt models.Timestamp) (models.Address, error) {
	return c.m.Rebase(ctx, baseFrom, baseTo, id, createdAt)
}

func (c collection[T]) Versions(ctx context.Context, id models.Address) ([]models.Link, error) {
	links, err := c.m.Versions(ctx, id)
	return nonNilSlice(links), err
}

// decode parses a JSON payload strictly: unknown fields are rejected.
func decode[T any](payload json.RawMessage) (T, error) {
	var p T
	if len(bytes.TrimSpace(payload)) == 0 {
		return p, apperr.Invalid(errors.New("payload is required"))
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, apperr.Invalid(fmt.Errorf("decode payload: %w", err))
	}
	return p, nil
}

func erase[T any](r models.Record[T], err error) (Record, error) {
	if err != nil {
		return Record{}, err
	}
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("encode payload: %w", err)
	}
	return Record{ID: r.ID, CreatedAt: r.CreatedAt, Address: r.Address, Payload: data}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
