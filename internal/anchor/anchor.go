// Package anchor maps human-meaningful (type, tag) keys to stable addresses
// usable as link bases, and enumerates the keys in use.
//
// Anchors are ordinary entries of type "anchor". A root anchor links to one
// anchor per type; each type anchor links to one anchor per tag:
//
//	root{anchor_types} -anchor_link/T-> {T} -anchor_link/tag-> {T, tag}
package anchor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

const (
	// EntryType is the entry type every anchor is stored under.
	EntryType = "anchor"
	// LinkType labels root→type and type→tag edges.
	LinkType = "anchor_link"
	// RootType is the anchor type of the root anchor.
	RootType = "anchor_types"
)

type content struct {
	AnchorType string `json:"anchor_type"`
	AnchorText string `json:"anchor_text,omitempty"`
}

// Index resolves and enumerates anchors.
type Index struct {
	store storage.Provider
	links index.LinkIndex
	agent models.Address
}

// New returns an anchor index writing through store and links. Links are
// authored by agent.
func New(store storage.Provider, links index.LinkIndex, agent models.Address) *Index {
	return &Index{store: store, links: links, agent: agent}
}

func entry(typ, text string) models.Entry {
	data, _ := json.Marshal(content{AnchorType: typ, AnchorText: text})
	return models.Entry{Type: EntryType, Content: data}
}

func normalize(typ, tag string) (string, string, error) {
	typ, tag = norm.NFC.String(typ), norm.NFC.String(tag)
	if typ == "" {
		return "", "", apperr.Invalid(errors.New("anchor type must not be empty"))
	}
	if typ == RootType {
		return "", "", apperr.Invalid(fmt.Errorf("anchor type %q is reserved", RootType))
	}
	return typ, tag, nil
}

// Address computes the address of the (typ, tag) anchor without writing it.
// An empty tag denotes the type anchor itself.
func Address(typ, tag string) (models.Address, error) {
	typ, tag, err := normalize(typ, tag)
	if err != nil {
		return "", err
	}
	return entry(typ, tag).Address(), nil
}

// RootAddress is the address of the root anchor.
func RootAddress() models.Address {
	return entry(RootType, "").Address()
}

// ResolveOrCreate writes the anchors for (typ, tag) and the links reaching
// them, and returns the tag anchor's address. Repeating the call with the same
// arguments yields the same address and writes nothing new.
func (ix *Index) ResolveOrCreate(ctx context.Context, typ, tag string) (models.Address, error) {
	typ, tag, err := normalize(typ, tag)
	if err != nil {
		return "", err
	}

	root, err := ix.store.Put(ctx, entry(RootType, ""))
	if err != nil {
		return "", fmt.Errorf("anchor: write root: %w", err)
	}
	typeAddr, err := ix.store.Put(ctx, entry(typ, ""))
	if err != nil {
		return "", fmt.Errorf("anchor: write type %q: %w", typ, err)
	}
	if err := ix.link(ctx, root, typeAddr, typ); err != nil {
		return "", err
	}
	if tag == "" {
		return typeAddr, nil
	}

	tagAddr, err := ix.store.Put(ctx, entry(typ, tag))
	if err != nil {
		return "", fmt.Errorf("anchor: write %q/%q: %w", typ, tag, err)
	}
	if err := ix.link(ctx, typeAddr, tagAddr, tag); err != nil {
		return "", err
	}
	return tagAddr, nil
}

func (ix *Index) link(ctx context.Context, base, target models.Address, tag string) error {
	err := ix.links.AddLink(ctx, models.Link{
		Base:   base,
		Target: target,
		Type:   LinkType,
		Tag:    tag,
		Author: ix.agent,
	})
	if err != nil {
		return fmt.Errorf("anchor: link %q: %w", tag, err)
	}
	return nil
}

// ListTypeAddresses returns the address of every known type anchor.
func (ix *Index) ListTypeAddresses(ctx context.Context) ([]models.Address, error) {
	links, err := ix.links.Links(ctx, RootAddress(), models.Exactly(LinkType), models.Any())
	if err != nil {
		return nil, err
	}
	return targets(links), nil
}

// ListTypes returns every known anchor type.
func (ix *Index) ListTypes(ctx context.Context) ([]string, error) {
	links, err := ix.links.Links(ctx, RootAddress(), models.Exactly(LinkType), models.Any())
	if err != nil {
		return nil, err
	}
	return tags(links), nil
}

// ListAddresses returns the address of every tag anchor under typ.
func (ix *Index) ListAddresses(ctx context.Context, typ string) ([]models.Address, error) {
	links, err := ix.typeLinks(ctx, typ, models.Any())
	if err != nil {
		return nil, err
	}
	return targets(links), nil
}

// ListTags returns every tag in use under typ.
func (ix *Index) ListTags(ctx context.Context, typ string) ([]string, error) {
	links, err := ix.typeLinks(ctx, typ, models.Any())
	if err != nil {
		return nil, err
	}
	return tags(links), nil
}

// ListMembers returns the live type→tag links for (typ, tag) as addresses.
func (ix *Index) ListMembers(ctx context.Context, typ, tag string) ([]models.Address, error) {
	links, err := ix.typeLinks(ctx, typ, models.Exactly(norm.NFC.String(tag)))
	if err != nil {
		return nil, err
	}
	return targets(links), nil
}

func (ix *Index) typeLinks(ctx context.Context, typ string, tag models.LinkMatch) ([]models.Link, error) {
	typeAddr, err := Address(typ, "")
	if err != nil {
		return nil, err
	}
	return ix.links.Links(ctx, typeAddr, models.Exactly(LinkType), tag)
}

func targets(links []models.Link) []models.Address {
	out := make([]models.Address, 0, len(links))
	for _, l := range links {
		out = append(out, l.Target)
	}
	return out
}

func tags(links []models.Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Tag)
	}
	return out
}
