// Package lifecycle implements create, read, update, delete, list and rebase
// for one record kind over the record store, the link index and the anchor
// index.
package lifecycle

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
)

// Kind describes one record kind: its payload type T and the labels its
// entries and links carry.
type Kind[T any] struct {
	// Name identifies the kind on every surface, e.g. "task".
	Name string
	// AnchorType groups the base anchors of this kind. Defaults to Name+"s".
	AnchorType string
	// EntryType is the store entry type of payloads. Defaults to Name.
	EntryType string
	// LinkType labels base anchor → record edges. Defaults to "<name>_link".
	LinkType string
	// UpdateLinkType labels superseded → successor edges. Defaults to "<name>_update".
	UpdateLinkType string
}

func (k Kind[T]) withDefaults() (Kind[T], error) {
	if k.Name == "" {
		return k, errors.New("lifecycle: kind name is required")
	}
	if k.AnchorType == "" {
		k.AnchorType = k.Name + "s"
	}
	if k.EntryType == "" {
		k.EntryType = k.Name
	}
	if k.LinkType == "" {
		k.LinkType = k.Name + "_link"
	}
	if k.UpdateLinkType == "" {
		k.UpdateLinkType = k.Name + "_update"
	}
	if k.LinkType == k.UpdateLinkType {
		return k, fmt.Errorf("lifecycle: kind %q: link and update link types must differ", k.Name)
	}
	return k, nil
}

// validatePayload runs ozzo validation when T or *T implements it.
func validatePayload[T any](p *T) error {
	v, ok := any(p).(validation.Validatable)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return apperr.Invalid(err)
	}
	return nil
}
