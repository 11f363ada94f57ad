package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/anchor"
	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/clock"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/metrics"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// listConcurrency bounds the parallel record reads performed by List.
const listConcurrency = 8

// Event describes a successful mutation.
type Event struct {
	Kind    string
	Op      string
	Base    string
	Address models.Address
}

// Notifier receives an Event after every successful mutation.
type Notifier interface {
	RecordChanged(ev Event)
}

// Deps are the collaborators shared by every Manager.
type Deps struct {
	Store    storage.Provider
	Links    index.LinkIndex
	Anchors  *anchor.Index
	Clock    *clock.Clock
	Agent    models.Address
	Logger   *slog.Logger
	Notifier Notifier // optional
}

// Manager runs the record lifecycle for one kind.
//
// No operation is atomic. Update, Delete and Rebase issue their link removals
// and additions as separate calls, and a concurrent List may observe the
// intermediate state: a record missing, or present twice.
type Manager[T any] struct {
	kind Kind[T]
	deps Deps
}

// New returns a Manager for kind.
func New[T any](kind Kind[T], deps Deps) (*Manager[T], error) {
	k, err := kind.withDefaults()
	if err != nil {
		return nil, err
	}
	if deps.Store == nil || deps.Links == nil || deps.Anchors == nil {
		return nil, fmt.Errorf("lifecycle: kind %q: store, links and anchors are required", k.Name)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With(slog.String("kind", k.Name))
	return &Manager[T]{kind: k, deps: deps}, nil
}

// Kind returns the kind descriptor with defaults applied.
func (m *Manager[T]) Kind() Kind[T] { return m.kind }

// Create validates payload, writes it and links it from the base anchor,
// tagged with a fresh timestamp.
func (m *Manager[T]) Create(ctx context.Context, base string, payload T) (rec models.Record[T], err error) {
	defer func() { m.observe("create", base, rec.Address, err) }()

	if base == "" {
		return rec, apperr.Invalid(errors.New("base must not be empty"))
	}
	if err := validatePayload(&payload); err != nil {
		return rec, err
	}
	addr, err := m.write(ctx, payload)
	if err != nil {
		return rec, err
	}
	baseAddr, err := m.deps.Anchors.ResolveOrCreate(ctx, m.kind.AnchorType, base)
	if err != nil {
		return rec, err
	}
	createdAt := m.deps.Clock.Now()
	if err := m.deps.Links.AddLink(ctx, m.indexLink(baseAddr, addr, createdAt)); err != nil {
		return rec, err
	}
	return models.Record[T]{ID: addr, CreatedAt: createdAt, Address: addr, Payload: payload}, nil
}

// Read resolves the record stored at id. createdAt must be a well-formed
// timestamp and is echoed back in canonical form; it is not checked against
// the index.
func (m *Manager[T]) Read(ctx context.Context, id models.Address, createdAt models.Timestamp) (rec models.Record[T], err error) {
	defer func() { metrics.CountOperation(m.kind.Name, "read", err) }()

	if createdAt, err = checkHandle(id, createdAt); err != nil {
		return rec, err
	}
	return m.read(ctx, id, createdAt)
}

// Update writes payload as a new version of the record linked at
// (id, createdAt), moves every base anchor link from id to the new version,
// and points the version chain of address at it.
func (m *Manager[T]) Update(ctx context.Context, id models.Address, createdAt models.Timestamp, address models.Address, payload T) (rec models.Record[T], err error) {
	defer func() { m.observe("update", "", rec.Address, err) }()

	if createdAt, err = checkHandle(id, createdAt); err != nil {
		return rec, err
	}
	if !address.Valid() {
		return rec, apperr.Invalid(fmt.Errorf("malformed address %q", address))
	}
	if err := validatePayload(&payload); err != nil {
		return rec, err
	}

	newAddr, err := m.write(ctx, payload)
	if err != nil {
		return rec, err
	}

	holders, err := m.deps.Links.Backlinks(ctx, id, models.Exactly(m.kind.LinkType), models.Exactly(string(createdAt)))
	if err != nil {
		return rec, err
	}
	if len(holders) == 0 {
		return rec, fmt.Errorf("%s %s@%s: %w", m.kind.Name, id, createdAt, apperr.ErrNotFound)
	}

	newCreatedAt := m.deps.Clock.Now()
	for _, h := range holders {
		if err := m.deps.Links.RemoveLink(ctx, h); err != nil {
			return rec, err
		}
		if err := m.deps.Links.AddLink(ctx, m.indexLink(h.Base, newAddr, newCreatedAt)); err != nil {
			return rec, err
		}
	}

	// An unchanged payload lands on the same address; a self-loop is not a
	// successor.
	if newAddr != address {
		if err := m.replaceSuccessor(ctx, address, newAddr, newCreatedAt); err != nil {
			return rec, err
		}
	}

	return models.Record[T]{ID: newAddr, CreatedAt: newCreatedAt, Address: newAddr, Payload: payload}, nil
}

// Delete removes the link base → id tagged createdAt, then asks the store to
// remove the entry at address unless another record link still targets it.
// Identical payloads share an address, so the entry may back records in other
// bases. It returns address.
func (m *Manager[T]) Delete(ctx context.Context, base string, id models.Address, createdAt models.Timestamp, address models.Address) (_ models.Address, err error) {
	defer func() { m.observe("delete", base, address, err) }()

	if createdAt, err = checkHandle(id, createdAt); err != nil {
		return "", err
	}
	if !address.Valid() {
		return "", apperr.Invalid(fmt.Errorf("malformed address %q", address))
	}
	baseAddr, err := anchor.Address(m.kind.AnchorType, base)
	if err != nil {
		return "", err
	}
	if err := m.deps.Links.RemoveLink(ctx, m.indexLink(baseAddr, id, createdAt)); err != nil {
		return "", err
	}
	live, err := m.deps.Links.Backlinks(ctx, address, models.Exactly(m.kind.LinkType), models.Any())
	if err != nil {
		return "", err
	}
	if len(live) > 0 {
		m.deps.Logger.Debug("lifecycle: delete keeps shared entry",
			slog.String("address", address.String()),
			slog.Int("links", len(live)))
		return address, nil
	}
	if err := m.deps.Store.Remove(ctx, address); err != nil {
		return "", err
	}
	return address, nil
}

// List returns one record per live link from the base anchor, in link order.
// Duplicates are kept. Links whose target no longer resolves are skipped.
func (m *Manager[T]) List(ctx context.Context, base string) (recs []models.Record[T], err error) {
	defer func() { metrics.CountOperation(m.kind.Name, "list", err) }()

	baseAddr, err := anchor.Address(m.kind.AnchorType, base)
	if err != nil {
		return nil, err
	}
	links, err := m.deps.Links.Links(ctx, baseAddr, models.Exactly(m.kind.LinkType), models.Any())
	if err != nil {
		return nil, err
	}

	out := make([]models.Record[T], len(links))
	found := make([]bool, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, l := range links {
		g.Go(func() error {
			rec, err := m.read(gctx, l.Target, models.Timestamp(l.Tag))
			if errors.Is(err, apperr.ErrNotFound) {
				m.deps.Logger.Warn("list: skipping dangling link",
					slog.String("base", base),
					slog.String("target", l.Target.String()))
				return nil
			}
			if err != nil {
				return err
			}
			out[i], found[i] = rec, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recs = make([]models.Record[T], 0, len(out))
	for i, rec := range out {
		if found[i] {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Rebase moves the link for (id, createdAt) from baseFrom to baseTo, keeping
// its target and tag. It returns id.
func (m *Manager[T]) Rebase(ctx context.Context, baseFrom, baseTo string, id models.Address, createdAt models.Timestamp) (_ models.Address, err error) {
	defer func() { m.observe("rebase", baseTo, id, err) }()

	if createdAt, err = checkHandle(id, createdAt); err != nil {
		return "", err
	}
	if baseTo == "" {
		return "", apperr.Invalid(errors.New("base_to must not be empty"))
	}
	from, err := anchor.Address(m.kind.AnchorType, baseFrom)
	if err != nil {
		return "", err
	}
	to, err := m.deps.Anchors.ResolveOrCreate(ctx, m.kind.AnchorType, baseTo)
	if err != nil {
		return "", err
	}
	if err := m.deps.Links.RemoveLink(ctx, m.indexLink(from, id, createdAt)); err != nil {
		return "", err
	}
	if err := m.deps.Links.AddLink(ctx, m.indexLink(to, id, createdAt)); err != nil {
		return "", err
	}
	return id, nil
}

// Versions returns the live version-chain links leaving id. Normally there is
// at most one; concurrent updates may leave several.
func (m *Manager[T]) Versions(ctx context.Context, id models.Address) ([]models.Link, error) {
	if !id.Valid() {
		return nil, apperr.Invalid(fmt.Errorf("malformed id %q", id))
	}
	links, err := m.deps.Links.Links(ctx, id, models.Exactly(m.kind.UpdateLinkType), models.Any())
	metrics.CountOperation(m.kind.Name, "versions", err)
	return links, err
}

func (m *Manager[T]) read(ctx context.Context, id models.Address, createdAt models.Timestamp) (models.Record[T], error) {
	if !id.Valid() {
		return models.Record[T]{}, apperr.Invalid(fmt.Errorf("malformed id %q", id))
	}
	e, err := m.deps.Store.Get(ctx, id)
	if err != nil {
		return models.Record[T]{}, err
	}
	if e.Type != m.kind.EntryType {
		return models.Record[T]{}, fmt.Errorf("%s %s: entry is a %q: %w", m.kind.Name, id, e.Type, apperr.ErrNotFound)
	}
	var payload T
	if err := json.Unmarshal(e.Content, &payload); err != nil {
		return models.Record[T]{}, fmt.Errorf("%s %s: decode: %w", m.kind.Name, id, err)
	}
	return models.Record[T]{ID: id, CreatedAt: createdAt, Address: id, Payload: payload}, nil
}

func (m *Manager[T]) write(ctx context.Context, payload T) (models.Address, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.Invalid(fmt.Errorf("encode %s: %w", m.kind.Name, err))
	}
	return m.deps.Store.Put(ctx, models.Entry{Type: m.kind.EntryType, Content: data})
}

// replaceSuccessor drops the live version links leaving from and adds
// from → to.
func (m *Manager[T]) replaceSuccessor(ctx context.Context, from, to models.Address, createdAt models.Timestamp) error {
	old, err := m.deps.Links.Links(ctx, from, models.Exactly(m.kind.UpdateLinkType), models.Any())
	if err != nil {
		return err
	}
	for _, l := range old {
		if err := m.deps.Links.RemoveLink(ctx, l); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	return m.deps.Links.AddLink(ctx, models.Link{
		Base:      from,
		Target:    to,
		Type:      m.kind.UpdateLinkType,
		Tag:       string(createdAt),
		Author:    m.deps.Agent,
		CreatedAt: createdAt.Time(),
	})
}

func (m *Manager[T]) indexLink(base, target models.Address, createdAt models.Timestamp) models.Link {
	return models.Link{
		Base:      base,
		Target:    target,
		Type:      m.kind.LinkType,
		Tag:       string(createdAt),
		Author:    m.deps.Agent,
		CreatedAt: createdAt.Time(),
	}
}

func (m *Manager[T]) observe(op, base string, addr models.Address, err error) {
	metrics.CountOperation(m.kind.Name, op, err)
	if err != nil {
		m.deps.Logger.Debug("lifecycle: "+op+" failed", slog.String("error", err.Error()))
		return
	}
	m.deps.Logger.Debug("lifecycle: "+op, slog.String("base", base), slog.String("address", addr.String()))
	if m.deps.Notifier != nil {
		m.deps.Notifier.RecordChanged(Event{Kind: m.kind.Name, Op: op, Base: base, Address: addr})
	}
}

// checkHandle validates an (id, createdAt) handle and returns createdAt in
// canonical form.
func checkHandle(id models.Address, createdAt models.Timestamp) (models.Timestamp, error) {
	if !id.Valid() {
		return "", apperr.Invalid(fmt.Errorf("malformed id %q", id))
	}
	return models.ParseTimestamp(string(createdAt))
}
