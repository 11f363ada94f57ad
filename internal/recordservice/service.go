// Package recordservice gathers the registered record kinds, the anchor index
// and the agent identity behind one facade used by the HTTP and MCP surfaces.
package recordservice

import (
	"context"
	"fmt"

	"github.com/starford/othala/internal/anchor"
	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/kinds"
	"github.com/starford/othala/internal/lifecycle"
	"github.com/starford/othala/internal/models"
)

// Service coordinates the per-kind lifecycle managers.
type Service struct {
	deps        lifecycle.Deps
	collections map[string]Collection
	names       []string
}

// New creates a service with the built-in kinds registered.
func New(deps lifecycle.Deps) (*Service, error) {
	if deps.Anchors == nil && deps.Store != nil && deps.Links != nil {
		deps.Anchors = anchor.New(deps.Store, deps.Links, deps.Agent)
	}
	s := &Service{deps: deps, collections: make(map[string]Collection)}
	if err := Register(s, kinds.ProfileKind); err != nil {
		return nil, err
	}
	if err := Register(s, kinds.OriginKind); err != nil {
		return nil, err
	}
	if err := Register(s, kinds.TaskKind); err != nil {
		return nil, err
	}
	if err := Register(s, kinds.ColumnKind); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds kind to s. Names must be unique.
func Register[T any](s *Service, kind lifecycle.Kind[T]) error {
	m, err := lifecycle.New(kind, s.deps)
	if err != nil {
		return err
	}
	name := m.Kind().Name
	if _, dup := s.collections[name]; dup {
		return fmt.Errorf("recordservice: kind %q registered twice", name)
	}
	s.collections[name] = collection[T]{m: m}
	s.names = append(s.names, name)
	return nil
}

// Kinds returns the registered kind names in registration order.
func (s *Service) Kinds() []string {
	return append([]string(nil), s.names...)
}

// Describe returns the descriptors of every registered kind.
func (s *Service) Describe() []KindInfo {
	out := make([]KindInfo, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.collections[n].Info())
	}
	return out
}

// Collection returns the kind called name.
func (s *Service) Collection(name string) (Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("kind %q: %w", name, apperr.ErrNotFound)
	}
	return c, nil
}

// AgentAddress returns the address of the local agent.
func (s *Service) AgentAddress() models.Address {
	return s.deps.Agent
}

// ListAnchorTypeAddresses returns the address of every type anchor.
func (s *Service) ListAnchorTypeAddresses(ctx context.Context) ([]models.Address, error) {
	out, err := s.deps.Anchors.ListTypeAddresses(ctx)
	return nonNilSlice(out), err
}

// ListAnchorTypes returns every anchor type in use.
func (s *Service) ListAnchorTypes(ctx context.Context) ([]string, error) {
	out, err := s.deps.Anchors.ListTypes(ctx)
	return nonNilSlice(out), err
}

// ListAnchorAddresses returns the address of every tag anchor under typ.
func (s *Service) ListAnchorAddresses(ctx context.Context, typ string) ([]models.Address, error) {
	out, err := s.deps.Anchors.ListAddresses(ctx, typ)
	return nonNilSlice(out), err
}

// ListAnchorTags returns every tag in use under typ.
func (s *Service) ListAnchorTags(ctx context.Context, typ string) ([]string, error) {
	out, err := s.deps.Anchors.ListTags(ctx, typ)
	return nonNilSlice(out), err
}
