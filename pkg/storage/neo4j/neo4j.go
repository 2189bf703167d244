// Package neo4j stores the catalog as a property graph: (:User)-[:CREATED|CAN_EDIT|CAN_DELETE]->(:Ontology)-[:TAGGED]->(:Tag).
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	catalogerrors "github.com/ontologymarket/catalog/internal/errors"
	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/storage"
)

var tracer = otel.Tracer("catalog/pkg/storage/neo4j")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "neo4j."+name)
}

const (
	defaultDatabase      = "neo4j"
	defaultVerifyTimeout = time.Minute
)

// Config defines the connection parameters of the datastore.
type Config struct {
	Username      string
	Password      string
	Database      string
	Logger        logger.Logger
	VerifyTimeout time.Duration
}

type DatastoreOption func(*Config)

func WithUsername(username string) DatastoreOption {
	return func(c *Config) { c.Username = username }
}

func WithPassword(password string) DatastoreOption {
	return func(c *Config) { c.Password = password }
}

func WithDatabase(database string) DatastoreOption {
	return func(c *Config) { c.Database = database }
}

func WithLogger(l logger.Logger) DatastoreOption {
	return func(c *Config) { c.Logger = l }
}

// WithVerifyTimeout bounds how long New waits for the server to accept connections.
func WithVerifyTimeout(d time.Duration) DatastoreOption {
	return func(c *Config) { c.VerifyTimeout = d }
}

func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{
		Database:      defaultDatabase,
		VerifyTimeout: defaultVerifyTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}
	return cfg
}

// Datastore provides a Neo4j based implementation of [storage.CatalogDatastore].
type Datastore struct {
	runner Runner
	logger logger.Logger
}

var _ storage.CatalogDatastore = (*Datastore)(nil)

// New connects to uri and waits until the server accepts connections.
func New(uri string, cfg *Config) (*Datastore, error) {
	runner, err := NewDriverRunner(uri, cfg.Username, cfg.Password, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := waitForServer(context.Background(), runner, cfg.VerifyTimeout, cfg.Logger); err != nil {
		_ = runner.Close(context.Background())
		return nil, err
	}

	return NewWithRunner(runner, cfg.Logger), nil
}

// NewWithRunner builds a Datastore over an existing Runner.
func NewWithRunner(runner Runner, l logger.Logger) *Datastore {
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return &Datastore{runner: runner, logger: l}
}

func waitForServer(ctx context.Context, runner Runner, timeout time.Duration, l logger.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = timeout
	attempt := 1
	err := backoff.Retry(func() error {
		err := runner.VerifyConnectivity(ctx)
		if err != nil {
			l.Info("waiting for neo4j", zap.Int("attempt", attempt))
			attempt++
		}
		return err
	}, policy)
	if err != nil {
		return fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return nil
}

// Close see [storage.CatalogDatastore].Close.
func (s *Datastore) Close() {
	if err := s.runner.Close(context.Background()); err != nil {
		s.logger.Warn("failed to close neo4j driver", zap.Error(err))
	}
}

// IsReady see [storage.CatalogDatastore].IsReady.
func (s *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.runner.VerifyConnectivity(ctx); err != nil {
		return storage.ReadinessStatus{}, err
	}
	return storage.ReadinessStatus{IsReady: true}, nil
}

const visibleAndMatching = `
MATCH (o:Ontology)
WHERE (o.is_public = true
       OR ($fuid IS NOT NULL AND EXISTS { MATCH (:User {fuid: $fuid})-[:CREATED|CAN_EDIT|CAN_DELETE]->(o) }))
  AND ($term IS NULL OR o.name CONTAINS $term OR o.description CONTAINS $term)
`

func filterParams(filter storage.SearchFilter) map[string]any {
	params := map[string]any{
		"fuid":   nil,
		"term":   nil,
		"limit":  int64(filter.Limit),
		"offset": int64(filter.Offset),
	}
	if filter.Identity != "" {
		params["fuid"] = filter.Identity
	}
	if filter.Term != "" {
		params["term"] = filter.Term
	}
	return params
}

// SearchRecords see [storage.RecordReader].SearchRecords.
func (s *Datastore) SearchRecords(ctx context.Context, filter storage.SearchFilter) ([]storage.Record, error) {
	ctx, span := startTrace(ctx, "SearchRecords")
	defer span.End()

	res, err := s.runner.Read(ctx, Statement{
		Query: visibleAndMatching + `
RETURN o
ORDER BY o.created_at DESC, o.uuid ASC
SKIP $offset LIMIT $limit`,
		Params: filterParams(filter),
	})
	if err != nil {
		return nil, handleError(err)
	}

	records := make([]storage.Record, 0, len(res.Records))
	for _, rec := range res.Records {
		r, err := recordFromResult(rec, "o")
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, nil
}

// CountRecords see [storage.RecordReader].CountRecords.
func (s *Datastore) CountRecords(ctx context.Context, filter storage.SearchFilter) (int, error) {
	ctx, span := startTrace(ctx, "CountRecords")
	defer span.End()

	res, err := s.runner.Read(ctx, Statement{
		Query:  visibleAndMatching + `RETURN count(o) AS total`,
		Params: filterParams(filter),
	})
	if err != nil {
		return 0, handleError(err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}

	total, err := intValue(res.Records[0], "total")
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// ReadTags see [storage.RecordReader].ReadTags.
func (s *Datastore) ReadTags(ctx context.Context, ids []string) (map[string][]string, error) {
	ctx, span := startTrace(ctx, "ReadTags")
	defer span.End()

	tags := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	res, err := s.runner.Read(ctx, Statement{
		Query: `
MATCH (o:Ontology)-[:TAGGED]->(t:Tag)
WHERE o.uuid IN $ids
WITH o.uuid AS uuid, t.name AS tag
ORDER BY tag
RETURN uuid, collect(tag) AS tags`,
		Params: map[string]any{"ids": ids},
	})
	if err != nil {
		return nil, handleError(err)
	}

	for _, rec := range res.Records {
		id, err := stringValue(rec, "uuid")
		if err != nil {
			return nil, err
		}
		names, err := stringsValue(rec, "tags")
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			tags[id] = names
		}
	}
	return tags, nil
}

// CreateRecords see [storage.RecordWriter].CreateRecords.
func (s *Datastore) CreateRecords(ctx context.Context, owner string, records []storage.Record) ([]storage.Record, error) {
	ctx, span := startTrace(ctx, "CreateRecords")
	defer span.End()

	unique := storage.DedupeBySourceURL(records)
	rows := make([]map[string]any, 0, len(unique))
	for i := range unique {
		unique[i].Tags = storage.NormalizeTags(unique[i].Tags)
		rows = append(rows, map[string]any{
			"source_url": unique[i].SourceURL,
			"props":      recordProps(&unique[i]),
			"tags":       unique[i].Tags,
		})
	}

	// the owner's last_write_at is set first so that concurrent batches of one owner
	// take its write lock and see each other's records
	results, err := s.runner.Write(ctx, Statement{
		Query: `
MERGE (u:User {fuid: $fuid})
  ON CREATE SET u.uuid = randomUUID(), u.is_public = false, u.created_at = timestamp() * 1000
SET u.last_write_at = timestamp()
WITH u
UNWIND $records AS rec
OPTIONAL MATCH (u)-[:CREATED]->(existing:Ontology {source_url: rec.source_url})
WITH u, rec, existing
WHERE existing IS NULL
CREATE (o:Ontology)
SET o = rec.props
CREATE (u)-[:CREATED]->(o), (u)-[:CAN_EDIT]->(o), (u)-[:CAN_DELETE]->(o)
FOREACH (name IN rec.tags | MERGE (t:Tag {name: name}) MERGE (o)-[:TAGGED]->(t))
RETURN o.uuid AS uuid`,
		Params: map[string]any{"fuid": owner, "records": rows},
	})
	if err != nil {
		return nil, handleError(err)
	}

	created := make(map[string]struct{}, len(results[0].Records))
	for _, rec := range results[0].Records {
		id, err := stringValue(rec, "uuid")
		if err != nil {
			return nil, err
		}
		created[id] = struct{}{}
	}

	out := make([]storage.Record, 0, len(created))
	for _, r := range unique {
		if _, ok := created[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// ReadAccess see [storage.AccessBackend].ReadAccess.
func (s *Datastore) ReadAccess(ctx context.Context, identity, id string) (storage.Access, error) {
	ctx, span := startTrace(ctx, "ReadAccess")
	defer span.End()

	var fuid any
	if identity != "" {
		fuid = identity
	}

	res, err := s.runner.Read(ctx, Statement{
		Query: `
OPTIONAL MATCH (o:Ontology {uuid: $id})
OPTIONAL MATCH (:User {fuid: $fuid})-[r:CREATED|CAN_EDIT|CAN_DELETE]->(o)
RETURN o IS NOT NULL AS exists, collect(type(r)) AS capabilities`,
		Params: map[string]any{"id": id, "fuid": fuid},
	})
	if err != nil {
		return storage.Access{}, handleError(err)
	}
	if len(res.Records) == 0 {
		return storage.Access{}, nil
	}

	rec := res.Records[0]
	exists, err := boolValue(rec, "exists")
	if err != nil {
		return storage.Access{}, err
	}
	if !exists {
		return storage.Access{}, nil
	}

	capabilities, err := stringsValue(rec, "capabilities")
	if err != nil {
		return storage.Access{}, err
	}

	access := storage.Access{Exists: true}
	for _, c := range capabilities {
		switch storage.Capability(c) {
		case storage.CapabilityCreated:
			access.Created = true
		case storage.CapabilityCanEdit:
			access.CanEdit = true
		case storage.CapabilityCanDelete:
			access.CanDelete = true
		}
	}
	return access, nil
}

// UpdateRecord see [storage.RecordWriter].UpdateRecord.
func (s *Datastore) UpdateRecord(ctx context.Context, identity, id string, patch storage.RecordPatch) (*storage.Record, error) {
	ctx, span := startTrace(ctx, "UpdateRecord")
	defer span.End()

	// every statement re-matches the edge, so a revoked editor changes nothing
	const permitted = `
MATCH (:User {fuid: $fuid})-[:CREATED|CAN_EDIT]->(o:Ontology {uuid: $id})
WITH DISTINCT o
`
	params := map[string]any{
		"fuid":  identity,
		"id":    id,
		"props": patchProps(patch),
	}

	stmts := []Statement{{
		Query:  permitted + `SET o += $props RETURN o.uuid AS uuid`,
		Params: params,
	}}
	if patch.Tags != nil {
		params["tags"] = storage.NormalizeTags(*patch.Tags)
		stmts = append(stmts, Statement{
			Query: permitted + `
OPTIONAL MATCH (o)-[old:TAGGED]->(:Tag)
DELETE old
WITH DISTINCT o
FOREACH (name IN $tags | MERGE (t:Tag {name: name}) MERGE (o)-[:TAGGED]->(t))`,
			Params: params,
		})
	}
	stmts = append(stmts, Statement{
		Query: permitted + `
OPTIONAL MATCH (o)-[:TAGGED]->(t:Tag)
WITH o, t.name AS tag
ORDER BY tag
RETURN o, collect(tag) AS tags`,
		Params: params,
	})

	results, err := s.runner.Write(ctx, stmts...)
	if err != nil {
		return nil, handleError(err)
	}
	if len(results[0].Records) == 0 {
		return nil, storage.ErrNotFound
	}

	readBack := results[len(results)-1]
	if len(readBack.Records) == 0 {
		return nil, storage.ErrNotFound
	}

	r, err := recordFromResult(readBack.Records[0], "o")
	if err != nil {
		return nil, err
	}
	r.Tags, err = stringsValue(readBack.Records[0], "tags")
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRecords see [storage.RecordWriter].DeleteRecords.
func (s *Datastore) DeleteRecords(ctx context.Context, identity string, ids []string) (int, error) {
	ctx, span := startTrace(ctx, "DeleteRecords")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	results, err := s.runner.Write(ctx, Statement{
		Query: `
MATCH (:User {fuid: $fuid})-[:CREATED|CAN_DELETE]->(o:Ontology)
WHERE o.uuid IN $ids
WITH DISTINCT o
DETACH DELETE o
RETURN count(*) AS deleted`,
		Params: map[string]any{"fuid": identity, "ids": ids},
	})
	if err != nil {
		return 0, handleError(err)
	}
	if len(results[0].Records) == 0 {
		return 0, nil
	}

	deleted, err := intValue(results[0].Records[0], "deleted")
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// WriteCapability see [storage.AccessBackend].WriteCapability.
func (s *Datastore) WriteCapability(ctx context.Context, identity, id string, c storage.Capability) error {
	ctx, span := startTrace(ctx, "WriteCapability")
	defer span.End()

	if !c.Grantable() {
		return storage.InvalidCapabilityError(string(c))
	}

	// relationship types cannot be parameters; c is one of two known constants
	results, err := s.runner.Write(ctx, Statement{
		Query: `
MATCH (o:Ontology {uuid: $id})
MERGE (u:User {fuid: $fuid})
  ON CREATE SET u.uuid = randomUUID(), u.is_public = false, u.created_at = timestamp() * 1000
MERGE (u)-[:` + string(c) + `]->(o)
RETURN o.uuid AS uuid`,
		Params: map[string]any{"fuid": identity, "id": id},
	})
	if err != nil {
		return handleError(err)
	}
	if len(results[0].Records) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCapability see [storage.AccessBackend].DeleteCapability.
func (s *Datastore) DeleteCapability(ctx context.Context, identity, id string, c storage.Capability) error {
	ctx, span := startTrace(ctx, "DeleteCapability")
	defer span.End()

	if !c.Grantable() {
		return storage.InvalidCapabilityError(string(c))
	}

	_, err := s.runner.Write(ctx, Statement{
		Query: `
MATCH (:User {fuid: $fuid})-[r:` + string(c) + `]->(:Ontology {uuid: $id})
DELETE r`,
		Params: map[string]any{"fuid": identity, "id": id},
	})
	if err != nil {
		return handleError(err)
	}
	return nil
}

// ListRecordIDs see [storage.AccessBackend].ListRecordIDs.
func (s *Datastore) ListRecordIDs(ctx context.Context, fuid string, c storage.Capability) ([]string, error) {
	ctx, span := startTrace(ctx, "ListRecordIDs")
	defer span.End()

	if c != storage.CapabilityCreated && !c.Grantable() {
		return nil, storage.InvalidCapabilityError(string(c))
	}

	types := string(storage.CapabilityCreated)
	if c != storage.CapabilityCreated {
		types += "|" + string(c)
	}

	res, err := s.runner.Read(ctx, Statement{
		Query: `
MATCH (:User {fuid: $fuid})-[:` + types + `]->(o:Ontology)
RETURN DISTINCT o.uuid AS uuid
ORDER BY uuid`,
		Params: map[string]any{"fuid": fuid},
	})
	if err != nil {
		return nil, handleError(err)
	}

	ids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		id, err := stringValue(rec, "uuid")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReadUser see [storage.UserBackend].ReadUser.
func (s *Datastore) ReadUser(ctx context.Context, fuid string) (*storage.User, error) {
	ctx, span := startTrace(ctx, "ReadUser")
	defer span.End()

	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("u", "User").WithProperties(map[string]interface{}{"fuid": fuid})).
		Return("u").
		Build()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	res, err := s.runner.Read(ctx, Statement{Query: query, Params: params})
	if err != nil {
		return nil, handleError(err)
	}
	if len(res.Records) == 0 {
		return nil, storage.ErrNotFound
	}
	return userFromResult(res.Records[0], "u")
}

// UpsertUserVisibility see [storage.UserBackend].UpsertUserVisibility.
func (s *Datastore) UpsertUserVisibility(ctx context.Context, fuid string, isPublic bool) (*storage.User, error) {
	ctx, span := startTrace(ctx, "UpsertUserVisibility")
	defer span.End()

	query, params, err := gocypher.NewQueryBuilder().
		Merge(gocypher.N("u", "User").WithProperties(map[string]interface{}{"fuid": fuid})).
		Set(map[string]interface{}{"u.is_public": isPublic}).
		Return("u").
		Build()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	results, err := s.runner.Write(ctx,
		Statement{
			Query: `
MERGE (u:User {fuid: $fuid})
  ON CREATE SET u.uuid = randomUUID(), u.is_public = false, u.created_at = timestamp() * 1000`,
			Params: map[string]any{"fuid": fuid},
		},
		Statement{Query: query, Params: params},
	)
	if err != nil {
		return nil, handleError(err)
	}

	last := results[len(results)-1]
	if len(last.Records) == 0 {
		return nil, storage.ErrNotFound
	}
	return userFromResult(last.Records[0], "u")
}

// handleError tags the failures the driver deems retryable as transient.
func handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if neo4j.IsRetryable(err) {
		return catalogerrors.With(fmt.Errorf("neo4j error: %w", err), storage.ErrTransient)
	}
	return fmt.Errorf("neo4j error: %w", err)
}
