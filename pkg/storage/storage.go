// Package storage contains the catalog datastore interface and the types shared by its
// implementations.
//
//go:generate mockgen -source storage.go -destination ../../internal/mocks/mock_storage.go -package mocks CatalogDatastore
package storage

import (
	"context"
	"time"
)

const (
	DefaultMaxRecordsPerWrite = 100

	DefaultSearchLimit = 100
	MaxSearchLimit     = 100
)

// Capability is the kind of edge between a user and a record.
type Capability string

const (
	// CapabilityCreated is held by the user who added the record. It implies every other
	// capability and is never granted or revoked.
	CapabilityCreated   Capability = "CREATED"
	CapabilityCanEdit   Capability = "CAN_EDIT"
	CapabilityCanDelete Capability = "CAN_DELETE"
)

// Grantable reports whether the capability may be granted to or revoked from another user.
func (c Capability) Grantable() bool {
	return c == CapabilityCanEdit || c == CapabilityCanDelete
}

// ParseCapability returns the grantable capability named by s.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !c.Grantable() {
		return "", InvalidCapabilityError(s)
	}
	return c, nil
}

// Record is an ontology published in the catalog.
type Record struct {
	ID                string    `json:"uuid"`
	Name              string    `json:"name"`
	SourceURL         string    `json:"source_url"`
	ImageURL          *string   `json:"image_url"`
	Description       *string   `json:"description"`
	NodeCount         *int64    `json:"node_count"`
	RelationshipCount *int64    `json:"relationship_count"`
	Score             *float64  `json:"score"`
	IsPublic          bool      `json:"is_public"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Tags              []string  `json:"tags"`
}

// RecordPatch holds the fields of an update. Nil fields are left unchanged. A non-nil
// Tags replaces the record's tags as a set.
type RecordPatch struct {
	Name              *string
	SourceURL         *string
	ImageURL          *string
	Description       *string
	NodeCount         *int64
	RelationshipCount *int64
	Score             *float64
	IsPublic          *bool
	Tags              *[]string

	UpdatedAt time.Time
}

// SearchFilter selects the records visible to Identity whose name or description
// contains Term. An empty Term matches every visible record and an empty Identity sees
// public records only.
type SearchFilter struct {
	Term     string
	Identity string
	Limit    int
	Offset   int
}

// Access is the set of edges an identity holds to one record.
type Access struct {
	Exists    bool
	Created   bool
	CanEdit   bool
	CanDelete bool
}

// User is the graph node of an identity.
type User struct {
	FUID      string    `json:"fuid"`
	UUID      string    `json:"uuid"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadinessStatus represents the readiness status of the datastore.
type ReadinessStatus struct {
	// Message is a human-friendly status message for the current datastore status.
	Message string

	IsReady bool
}

// RecordReader reads records as seen by one identity.
type RecordReader interface {
	// SearchRecords returns one page of the records matching the filter, newest first.
	// Matching is a case-sensitive substring test against the name or the description.
	SearchRecords(ctx context.Context, filter SearchFilter) ([]Record, error)

	// CountRecords returns the number of records matching the filter, ignoring its
	// Limit and Offset.
	CountRecords(ctx context.Context, filter SearchFilter) (int, error)

	// ReadTags returns the sorted tags of each of the given records. Records without
	// tags are absent from the map.
	ReadTags(ctx context.Context, ids []string) (map[string][]string, error)
}

// RecordWriter mutates records. Every write is a single transaction.
type RecordWriter interface {
	// CreateRecords creates the records owned by owner and returns those actually
	// created, in input order. The owner is created on first sight. A record whose
	// source_url the owner already created, or that repeats a source_url earlier in
	// the same batch, is skipped.
	CreateRecords(ctx context.Context, owner string, records []Record) ([]Record, error)

	// UpdateRecord applies the patch if the identity holds CREATED or CAN_EDIT on the
	// record. It returns ErrNotFound when the record is absent or the edge is missing.
	UpdateRecord(ctx context.Context, identity, id string, patch RecordPatch) (*Record, error)

	// DeleteRecords deletes those of the ids on which the identity holds CREATED or
	// CAN_DELETE, together with their edges and tag links, and returns how many were
	// deleted.
	DeleteRecords(ctx context.Context, identity string, ids []string) (int, error)
}

// AccessBackend reads and writes the capability edges between users and records.
type AccessBackend interface {
	// ReadAccess returns the edges the identity holds to the record. It never returns
	// ErrNotFound: an absent record yields a zero Access.
	ReadAccess(ctx context.Context, identity, id string) (Access, error)

	// WriteCapability grants c on the record to identity, creating the user on first
	// sight. Granting a held capability is a no-op. It returns ErrNotFound when the
	// record does not exist.
	WriteCapability(ctx context.Context, identity, id string, c Capability) error

	// DeleteCapability revokes c on the record from identity. Revoking a capability that
	// is not held is a no-op.
	DeleteCapability(ctx context.Context, identity, id string, c Capability) error

	// ListRecordIDs returns the ids of the records on which fuid holds CREATED or c.
	ListRecordIDs(ctx context.Context, fuid string, c Capability) ([]string, error)
}

// UserBackend reads and writes user nodes.
type UserBackend interface {
	// ReadUser returns ErrNotFound when the user was never seen.
	ReadUser(ctx context.Context, fuid string) (*User, error)

	// UpsertUserVisibility sets the profile visibility of fuid, creating the user when
	// needed.
	UpsertUserVisibility(ctx context.Context, fuid string, isPublic bool) (*User, error)
}

// CatalogDatastore is the graph store behind the catalog.
type CatalogDatastore interface {
	RecordReader
	RecordWriter
	AccessBackend
	UserBackend

	// IsReady reports whether the datastore is ready to accept traffic.
	IsReady(ctx context.Context) (ReadinessStatus, error)

	// Close closes the datastore and cleans up any residual resources.
	Close()
}
