package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/ontologymarket/catalog/pkg/storage"
)

var tracer = otel.Tracer("catalog/pkg/storage/memory")

type edgeKey struct {
	fuid string
	id   string
}

// MemoryBackend provides an ephemeral memory-backed implementation of [storage.CatalogDatastore].
// These instances may be safely shared by multiple go-routines.
type MemoryBackend struct {
	mu sync.RWMutex

	records map[string]*storage.Record                  // GUARDED_BY(mu).
	users   map[string]*storage.User                    // GUARDED_BY(mu).
	edges   map[edgeKey]map[storage.Capability]struct{} // GUARDED_BY(mu).
	now     func() time.Time
}

// Ensures that [MemoryBackend] implements the [storage.CatalogDatastore] interface.
var _ storage.CatalogDatastore = (*MemoryBackend)(nil)

// StorageOption defines a function type used for configuring a [MemoryBackend] instance.
type StorageOption func(ds *MemoryBackend)

// WithClock replaces the clock stamping users created by the backend.
func WithClock(now func() time.Time) StorageOption {
	return func(ds *MemoryBackend) { ds.now = now }
}

// New creates a new [MemoryBackend] given the options.
func New(opts ...StorageOption) *MemoryBackend {
	ds := &MemoryBackend{
		records: make(map[string]*storage.Record),
		users:   make(map[string]*storage.User),
		edges:   make(map[edgeKey]map[storage.Capability]struct{}),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(ds)
	}

	return ds
}

// Close does not do anything for [MemoryBackend].
func (s *MemoryBackend) Close() {}

// IsReady see [storage.CatalogDatastore].IsReady.
func (s *MemoryBackend) IsReady(context.Context) (storage.ReadinessStatus, error) {
	return storage.ReadinessStatus{IsReady: true}, nil
}

// SearchRecords see [storage.RecordReader].SearchRecords.
func (s *MemoryBackend) SearchRecords(ctx context.Context, filter storage.SearchFilter) ([]storage.Record, error) {
	_, span := tracer.Start(ctx, "memory.SearchRecords")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.match(filter)
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	page := make([]storage.Record, 0, filter.Limit)
	for i := filter.Offset; i < len(matches) && len(page) < filter.Limit; i++ {
		r := cloneRecord(matches[i])
		r.Tags = nil
		page = append(page, r)
	}
	return page, nil
}

// CountRecords see [storage.RecordReader].CountRecords.
func (s *MemoryBackend) CountRecords(ctx context.Context, filter storage.SearchFilter) (int, error) {
	_, span := tracer.Start(ctx, "memory.CountRecords")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.match(filter)), nil
}

// ReadTags see [storage.RecordReader].ReadTags.
func (s *MemoryBackend) ReadTags(ctx context.Context, ids []string) (map[string][]string, error) {
	_, span := tracer.Start(ctx, "memory.ReadTags")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make(map[string][]string, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok && len(r.Tags) > 0 {
			tags[id] = slices.Clone(r.Tags)
		}
	}
	return tags, nil
}

// CreateRecords see [storage.RecordWriter].CreateRecords.
func (s *MemoryBackend) CreateRecords(ctx context.Context, owner string, records []storage.Record) ([]storage.Record, error) {
	_, span := tracer.Start(ctx, "memory.CreateRecords")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureUser(owner)

	existing := make(map[string]struct{})
	for key, caps := range s.edges {
		if key.fuid != owner {
			continue
		}
		if _, ok := caps[storage.CapabilityCreated]; ok {
			existing[s.records[key.id].SourceURL] = struct{}{}
		}
	}

	created := make([]storage.Record, 0, len(records))
	for _, r := range storage.DedupeBySourceURL(records) {
		if _, ok := existing[r.SourceURL]; ok {
			continue
		}

		stored := cloneRecord(&r)
		stored.Tags = storage.NormalizeTags(r.Tags)
		s.records[r.ID] = &stored
		s.edges[edgeKey{fuid: owner, id: r.ID}] = map[storage.Capability]struct{}{
			storage.CapabilityCreated:   {},
			storage.CapabilityCanEdit:   {},
			storage.CapabilityCanDelete: {},
		}
		created = append(created, cloneRecord(&stored))
	}
	return created, nil
}

// ReadAccess see [storage.AccessBackend].ReadAccess.
func (s *MemoryBackend) ReadAccess(ctx context.Context, identity, id string) (storage.Access, error) {
	_, span := tracer.Start(ctx, "memory.ReadAccess")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return storage.Access{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.access(identity, id), nil
}

// UpdateRecord see [storage.RecordWriter].UpdateRecord.
func (s *MemoryBackend) UpdateRecord(ctx context.Context, identity, id string, patch storage.RecordPatch) (*storage.Record, error) {
	_, span := tracer.Start(ctx, "memory.UpdateRecord")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	access := s.access(identity, id)
	if !access.Created && !access.CanEdit {
		return nil, storage.ErrNotFound
	}

	r := s.records[id]
	if patch.Name != nil {
		r.Name = *patch.Name
	}
	if patch.SourceURL != nil {
		r.SourceURL = *patch.SourceURL
	}
	if patch.ImageURL != nil {
		r.ImageURL = clonePtr(patch.ImageURL)
	}
	if patch.Description != nil {
		r.Description = clonePtr(patch.Description)
	}
	if patch.NodeCount != nil {
		r.NodeCount = clonePtr(patch.NodeCount)
	}
	if patch.RelationshipCount != nil {
		r.RelationshipCount = clonePtr(patch.RelationshipCount)
	}
	if patch.Score != nil {
		r.Score = clonePtr(patch.Score)
	}
	if patch.IsPublic != nil {
		r.IsPublic = *patch.IsPublic
	}
	if patch.Tags != nil {
		r.Tags = storage.NormalizeTags(*patch.Tags)
	}
	r.UpdatedAt = patch.UpdatedAt

	updated := cloneRecord(r)
	return &updated, nil
}

// DeleteRecords see [storage.RecordWriter].DeleteRecords.
func (s *MemoryBackend) DeleteRecords(ctx context.Context, identity string, ids []string) (int, error) {
	_, span := tracer.Start(ctx, "memory.DeleteRecords")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		access := s.access(identity, id)
		if !access.Created && !access.CanDelete {
			continue
		}

		delete(s.records, id)
		for key := range s.edges {
			if key.id == id {
				delete(s.edges, key)
			}
		}
		deleted++
	}
	return deleted, nil
}

// WriteCapability see [storage.AccessBackend].WriteCapability.
func (s *MemoryBackend) WriteCapability(ctx context.Context, identity, id string, c storage.Capability) error {
	_, span := tracer.Start(ctx, "memory.WriteCapability")
	defer span.End()

	if !c.Grantable() {
		return storage.InvalidCapabilityError(string(c))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return storage.ErrNotFound
	}

	s.ensureUser(identity)

	key := edgeKey{fuid: identity, id: id}
	if s.edges[key] == nil {
		s.edges[key] = make(map[storage.Capability]struct{})
	}
	s.edges[key][c] = struct{}{}
	return nil
}

// DeleteCapability see [storage.AccessBackend].DeleteCapability.
func (s *MemoryBackend) DeleteCapability(ctx context.Context, identity, id string, c storage.Capability) error {
	_, span := tracer.Start(ctx, "memory.DeleteCapability")
	defer span.End()

	if !c.Grantable() {
		return storage.InvalidCapabilityError(string(c))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{fuid: identity, id: id}
	delete(s.edges[key], c)
	if len(s.edges[key]) == 0 {
		delete(s.edges, key)
	}
	return nil
}

// ListRecordIDs see [storage.AccessBackend].ListRecordIDs.
func (s *MemoryBackend) ListRecordIDs(ctx context.Context, fuid string, c storage.Capability) ([]string, error) {
	_, span := tracer.Start(ctx, "memory.ListRecordIDs")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for key, caps := range s.edges {
		if key.fuid != fuid {
			continue
		}
		_, created := caps[storage.CapabilityCreated]
		_, held := caps[c]
		if created || held {
			ids = append(ids, key.id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// ReadUser see [storage.UserBackend].ReadUser.
func (s *MemoryBackend) ReadUser(ctx context.Context, fuid string) (*storage.User, error) {
	_, span := tracer.Start(ctx, "memory.ReadUser")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[fuid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user := *u
	return &user, nil
}

// UpsertUserVisibility see [storage.UserBackend].UpsertUserVisibility.
func (s *MemoryBackend) UpsertUserVisibility(ctx context.Context, fuid string, isPublic bool) (*storage.User, error) {
	_, span := tracer.Start(ctx, "memory.UpsertUserVisibility")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.ensureUser(fuid)
	u.IsPublic = isPublic

	user := *u
	return &user, nil
}

// match returns the records visible to the filter's identity whose name or description
// contains the term. The caller must hold mu.
func (s *MemoryBackend) match(filter storage.SearchFilter) []*storage.Record {
	var matches []*storage.Record
	for id, r := range s.records {
		if !r.IsPublic {
			access := s.access(filter.Identity, id)
			if !access.Created && !access.CanEdit && !access.CanDelete {
				continue
			}
		}
		if filter.Term != "" && !contains(r, filter.Term) {
			continue
		}
		matches = append(matches, r)
	}
	return matches
}

func (s *MemoryBackend) access(identity, id string) storage.Access {
	if _, ok := s.records[id]; !ok {
		return storage.Access{}
	}

	access := storage.Access{Exists: true}
	if identity == "" {
		return access
	}

	caps := s.edges[edgeKey{fuid: identity, id: id}]
	_, access.Created = caps[storage.CapabilityCreated]
	_, access.CanEdit = caps[storage.CapabilityCanEdit]
	_, access.CanDelete = caps[storage.CapabilityCanDelete]
	return access
}

func (s *MemoryBackend) ensureUser(fuid string) *storage.User {
	u, ok := s.users[fuid]
	if !ok {
		u = &storage.User{
			FUID:      fuid,
			UUID:      uuid.NewString(),
			CreatedAt: s.now().UTC(),
		}
		s.users[fuid] = u
	}
	return u
}

func contains(r *storage.Record, term string) bool {
	if strings.Contains(r.Name, term) {
		return true
	}
	return r.Description != nil && strings.Contains(*r.Description, term)
}

func cloneRecord(r *storage.Record) storage.Record {
	c := *r
	c.ImageURL = clonePtr(r.ImageURL)
	c.Description = clonePtr(r.Description)
	c.NodeCount = clonePtr(r.NodeCount)
	c.RelationshipCount = clonePtr(r.RelationshipCount)
	c.Score = clonePtr(r.Score)
	c.Tags = slices.Clone(r.Tags)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
