package sqlcommon

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/storage"
)

const (
	usersTable  = "users"
	recordTable = "ontologies"
	grantTable  = "grants"
	tagTable    = "ontology_tags"
)

var recordColumns = []string{
	"o.uuid", "o.name", "o.source_url", "o.image_url", "o.description",
	"o.node_count", "o.relationship_count", "o.score", "o.is_public",
	"o.created_at", "o.updated_at",
}

// Datastore is the relational rendition of the catalog graph. Users and records are
// rows, capability edges are rows of the grants table.
type Datastore struct {
	db             *sql.DB
	stbl           sq.StatementBuilderType
	dialect        Dialect
	logger         logger.Logger
	handleSQLError errorHandlerFn
	versionReady   bool
}

var _ storage.CatalogDatastore = (*Datastore)(nil)

// NewDatastore builds a Datastore over an open connection.
func NewDatastore(db *sql.DB, dialect Dialect, errorHandler func(error) error, cfg *Config) *Datastore {
	if err := goose.SetDialect(dialect.Name); err != nil {
		panic("failed to set database dialect: " + err.Error())
	}

	return &Datastore{
		db:             db,
		stbl:           sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder).RunWith(db),
		dialect:        dialect,
		logger:         cfg.Logger,
		handleSQLError: errorHandler,
	}
}

func (s *Datastore) startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, s.dialect.Name+"."+name)
}

// DB returns the underlying connection.
func (s *Datastore) DB() *sql.DB {
	return s.db
}

// Close closes the connection.
func (s *Datastore) Close() {
	s.db.Close()
}

// IsReady see [storage.CatalogDatastore].IsReady.
func (s *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	status, err := IsReady(ctx, s.versionReady, s.db)
	if err != nil {
		return status, err
	}
	s.versionReady = status.IsReady
	return status, nil
}

// SearchRecords see [storage.RecordReader].SearchRecords.
func (s *Datastore) SearchRecords(ctx context.Context, filter storage.SearchFilter) ([]storage.Record, error) {
	ctx, span := s.startTrace(ctx, "SearchRecords")
	defer span.End()

	sb := s.filtered(s.stbl.Select(recordColumns...), filter).
		OrderBy("o.created_at DESC", "o.uuid ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	rows, err := sb.QueryContext(ctx)
	if err != nil {
		return nil, s.handleSQLError(err)
	}
	defer rows.Close()

	records := make([]storage.Record, 0, filter.Limit)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, s.handleSQLError(err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.handleSQLError(err)
	}
	return records, nil
}

// CountRecords see [storage.RecordReader].CountRecords.
func (s *Datastore) CountRecords(ctx context.Context, filter storage.SearchFilter) (int, error) {
	ctx, span := s.startTrace(ctx, "CountRecords")
	defer span.End()

	var count int
	err := s.filtered(s.stbl.Select("COUNT(*)"), filter).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, s.handleSQLError(err)
	}
	return count, nil
}

// filtered restricts sb to the records visible to the filter's identity that match its
// term.
func (s *Datastore) filtered(sb sq.SelectBuilder, filter storage.SearchFilter) sq.SelectBuilder {
	sb = sb.From(recordTable + " o")

	if filter.Identity == "" {
		sb = sb.Where(sq.Eq{"o.is_public": true})
	} else {
		sb = sb.Where(sq.Or{
			sq.Eq{"o.is_public": true},
			sq.Expr("EXISTS (SELECT 1 FROM "+grantTable+" g WHERE g.ontology_uuid = o.uuid AND g.fuid = ?)", filter.Identity),
		})
	}

	if filter.Term != "" {
		sb = sb.Where(sq.Or{
			sq.Expr(s.dialect.Contains("o.name"), filter.Term),
			sq.Expr(s.dialect.Contains("o.description"), filter.Term),
		})
	}
	return sb
}

// ReadTags see [storage.RecordReader].ReadTags.
func (s *Datastore) ReadTags(ctx context.Context, ids []string) (map[string][]string, error) {
	ctx, span := s.startTrace(ctx, "ReadTags")
	defer span.End()

	return readTags(ctx, s.stbl, ids, s.handleSQLError)
}

func readTags(ctx context.Context, stbl sq.StatementBuilderType, ids []string, handle errorHandlerFn) (map[string][]string, error) {
	tags := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	rows, err := stbl.
		Select("ontology_uuid", "tag").
		From(tagTable).
		Where(sq.Eq{"ontology_uuid": ids}).
		OrderBy("ontology_uuid", "tag").
		QueryContext(ctx)
	if err != nil {
		return nil, handle(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, handle(err)
		}
		tags[id] = append(tags[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, handle(err)
	}
	return tags, nil
}

// CreateRecords see [storage.RecordWriter].CreateRecords.
func (s *Datastore) CreateRecords(ctx context.Context, owner string, records []storage.Record) ([]storage.Record, error) {
	ctx, span := s.startTrace(ctx, "CreateRecords")
	defer span.End()

	created := make([]storage.Record, 0, len(records))
	err := s.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		if err := s.ensureUser(ctx, stbl, owner); err != nil {
			return err
		}

		// serializes concurrent batches of one owner so the source_url check holds
		if err := s.lockUser(ctx, stbl, owner); err != nil {
			return err
		}

		unique := storage.DedupeBySourceURL(records)
		urls := make([]string, 0, len(unique))
		for _, r := range unique {
			urls = append(urls, r.SourceURL)
		}

		existing, err := s.createdSourceURLs(ctx, stbl, owner, urls)
		if err != nil {
			return err
		}

		for _, r := range unique {
			if _, ok := existing[r.SourceURL]; ok {
				continue
			}

			_, err := stbl.
				Insert(recordTable).
				Columns("uuid", "name", "source_url", "image_url", "description",
					"node_count", "relationship_count", "score", "is_public",
					"created_at", "updated_at").
				Values(r.ID, r.Name, r.SourceURL, nullable(r.ImageURL), nullable(r.Description),
					nullable(r.NodeCount), nullable(r.RelationshipCount), nullable(r.Score), r.IsPublic,
					toMicros(r.CreatedAt), toMicros(r.UpdatedAt)).
				ExecContext(ctx)
			if err != nil {
				return err
			}

			_, err = stbl.
				Insert(grantTable).
				Columns("fuid", "ontology_uuid", "capability").
				Values(owner, r.ID, string(storage.CapabilityCreated)).
				Values(owner, r.ID, string(storage.CapabilityCanEdit)).
				Values(owner, r.ID, string(storage.CapabilityCanDelete)).
				ExecContext(ctx)
			if err != nil {
				return err
			}

			r.Tags = storage.NormalizeTags(r.Tags)
			if err := writeTags(ctx, stbl, r.ID, r.Tags); err != nil {
				return err
			}

			created = append(created, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReadAccess see [storage.AccessBackend].ReadAccess.
func (s *Datastore) ReadAccess(ctx context.Context, identity, id string) (storage.Access, error) {
	ctx, span := s.startTrace(ctx, "ReadAccess")
	defer span.End()

	access, err := s.readAccess(ctx, s.stbl, identity, id, "")
	if err != nil {
		return storage.Access{}, s.handleSQLError(err)
	}
	return access, nil
}

func (s *Datastore) readAccess(ctx context.Context, stbl sq.StatementBuilderType, identity, id, suffix string) (storage.Access, error) {
	var n int
	err := stbl.Select("COUNT(*)").From(recordTable).Where(sq.Eq{"uuid": id}).QueryRowContext(ctx).Scan(&n)
	if err != nil {
		return storage.Access{}, err
	}
	if n == 0 {
		return storage.Access{}, nil
	}

	access := storage.Access{Exists: true}
	if identity == "" {
		return access, nil
	}

	sb := stbl.
		Select("capability").
		From(grantTable).
		Where(sq.Eq{"fuid": identity, "ontology_uuid": id})
	if suffix != "" {
		sb = sb.Suffix(suffix)
	}

	rows, err := sb.QueryContext(ctx)
	if err != nil {
		return storage.Access{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return storage.Access{}, err
		}
		switch storage.Capability(c) {
		case storage.CapabilityCreated:
			access.Created = true
		case storage.CapabilityCanEdit:
			access.CanEdit = true
		case storage.CapabilityCanDelete:
			access.CanDelete = true
		}
	}
	return access, rows.Err()
}

// UpdateRecord see [storage.RecordWriter].UpdateRecord.
func (s *Datastore) UpdateRecord(ctx context.Context, identity, id string, patch storage.RecordPatch) (*storage.Record, error) {
	ctx, span := s.startTrace(ctx, "UpdateRecord")
	defer span.End()

	var updated *storage.Record
	err := s.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		access, err := s.readAccess(ctx, stbl, identity, id, s.dialect.LockSuffix)
		if err != nil {
			return err
		}
		if !access.Created && !access.CanEdit {
			return storage.ErrNotFound
		}

		_, err = stbl.
			Update(recordTable).
			SetMap(patchColumns(patch)).
			Where(sq.Eq{"uuid": id}).
			ExecContext(ctx)
		if err != nil {
			return err
		}

		if patch.Tags != nil {
			_, err := stbl.Delete(tagTable).Where(sq.Eq{"ontology_uuid": id}).ExecContext(ctx)
			if err != nil {
				return err
			}
			if err := writeTags(ctx, stbl, id, storage.NormalizeTags(*patch.Tags)); err != nil {
				return err
			}
		}

		updated, err = s.readRecord(ctx, stbl, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func patchColumns(patch storage.RecordPatch) map[string]any {
	set := map[string]any{"updated_at": toMicros(patch.UpdatedAt)}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.SourceURL != nil {
		set["source_url"] = *patch.SourceURL
	}
	if patch.ImageURL != nil {
		set["image_url"] = *patch.ImageURL
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.NodeCount != nil {
		set["node_count"] = *patch.NodeCount
	}
	if patch.RelationshipCount != nil {
		set["relationship_count"] = *patch.RelationshipCount
	}
	if patch.Score != nil {
		set["score"] = *patch.Score
	}
	if patch.IsPublic != nil {
		set["is_public"] = *patch.IsPublic
	}
	return set
}

func (s *Datastore) readRecord(ctx context.Context, stbl sq.StatementBuilderType, id string) (*storage.Record, error) {
	row := stbl.
		Select(recordColumns...).
		From(recordTable + " o").
		Where(sq.Eq{"o.uuid": id}).
		QueryRowContext(ctx)

	r, err := scanRecord(row)
	if err != nil {
		return nil, err
	}

	tags, err := readTags(ctx, stbl, []string{id}, func(err error) error { return err })
	if err != nil {
		return nil, err
	}
	r.Tags = tags[id]
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r, nil
}

// DeleteRecords see [storage.RecordWriter].DeleteRecords.
func (s *Datastore) DeleteRecords(ctx context.Context, identity string, ids []string) (int, error) {
	ctx, span := s.startTrace(ctx, "DeleteRecords")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int
	err := s.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		sb := stbl.
			Select("ontology_uuid").
			From(grantTable).
			Where(sq.Eq{
				"fuid":          identity,
				"ontology_uuid": ids,
				"capability":    []string{string(storage.CapabilityCreated), string(storage.CapabilityCanDelete)},
			})
		if s.dialect.LockSuffix != "" {
			sb = sb.Suffix(s.dialect.LockSuffix)
		}

		allowed, err := queryStrings(ctx, sb)
		if err != nil {
			return err
		}
		slices.Sort(allowed)
		allowed = slices.Compact(allowed)
		if len(allowed) == 0 {
			return nil
		}

		for _, table := range []string{tagTable, grantTable} {
			if _, err := stbl.Delete(table).Where(sq.Eq{"ontology_uuid": allowed}).ExecContext(ctx); err != nil {
				return err
			}
		}

		res, err := stbl.Delete(recordTable).Where(sq.Eq{"uuid": allowed}).ExecContext(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// WriteCapability see [storage.AccessBackend].WriteCapability.
func (s *Datastore) WriteCapability(ctx context.Context, identity, id string, c storage.Capability) error {
	ctx, span := s.startTrace(ctx, "WriteCapability")
	defer span.End()

	if !c.Grantable() {
		return storage.InvalidCapabilityError(string(c))
	}

	return s.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		access, err := s.readAccess(ctx, stbl, "", id, "")
		if err != nil {
			return err
		}
		if !access.Exists {
			return storage.ErrNotFound
		}

		if err := s.ensureUser(ctx, stbl, identity); err != nil {
			return err
		}

		_, err = s.dialect.InsertIgnore(stbl.
			Insert(grantTable).
			Columns("fuid", "ontology_uuid", "capability").
			Values(identity, id, string(c))).
			ExecContext(ctx)
		return err
	})
}

// DeleteCapability see [storage.AccessBackend].DeleteCapability.
func (s *Datastore) DeleteCapability(ctx context.Context, identity, id string, c storage.Capability) error {
	ctx, span := s.startTrace(ctx, "DeleteCapability")
	defer span.End()

	if !c.Grantable() {
		return storage.InvalidCapabilityError(string(c))
	}

	_, err := s.stbl.
		Delete(grantTable).
		Where(sq.Eq{"fuid": identity, "ontology_uuid": id, "capability": string(c)}).
		ExecContext(ctx)
	if err != nil {
		return s.handleSQLError(err)
	}
	return nil
}

// ListRecordIDs see [storage.AccessBackend].ListRecordIDs.
func (s *Datastore) ListRecordIDs(ctx context.Context, fuid string, c storage.Capability) ([]string, error) {
	ctx, span := s.startTrace(ctx, "ListRecordIDs")
	defer span.End()

	ids, err := queryStrings(ctx, s.stbl.
		Select("DISTINCT ontology_uuid").
		From(grantTable).
		Where(sq.Eq{
			"fuid":       fuid,
			"capability": []string{string(storage.CapabilityCreated), string(c)},
		}).
		OrderBy("ontology_uuid"))
	if err != nil {
		return nil, s.handleSQLError(err)
	}
	return ids, nil
}

// ReadUser see [storage.UserBackend].ReadUser.
func (s *Datastore) ReadUser(ctx context.Context, fuid string) (*storage.User, error) {
	ctx, span := s.startTrace(ctx, "ReadUser")
	defer span.End()

	u, err := readUser(ctx, s.stbl, fuid)
	if err != nil {
		return nil, s.handleSQLError(err)
	}
	return u, nil
}

// UpsertUserVisibility see [storage.UserBackend].UpsertUserVisibility.
func (s *Datastore) UpsertUserVisibility(ctx context.Context, fuid string, isPublic bool) (*storage.User, error) {
	ctx, span := s.startTrace(ctx, "UpsertUserVisibility")
	defer span.End()

	var u *storage.User
	err := s.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		if err := s.ensureUser(ctx, stbl, fuid); err != nil {
			return err
		}

		_, err := stbl.Update(usersTable).Set("is_public", isPublic).Where(sq.Eq{"fuid": fuid}).ExecContext(ctx)
		if err != nil {
			return err
		}

		u, err = readUser(ctx, stbl, fuid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func readUser(ctx context.Context, stbl sq.StatementBuilderType, fuid string) (*storage.User, error) {
	var (
		u         storage.User
		createdAt int64
	)
	err := stbl.
		Select("fuid", "uuid", "is_public", "created_at").
		From(usersTable).
		Where(sq.Eq{"fuid": fuid}).
		QueryRowContext(ctx).
		Scan(&u.FUID, &u.UUID, &u.IsPublic, &createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = fromMicros(createdAt)
	return &u, nil
}

func (s *Datastore) ensureUser(ctx context.Context, stbl sq.StatementBuilderType, fuid string) error {
	_, err := s.dialect.InsertIgnore(stbl.
		Insert(usersTable).
		Columns("fuid", "uuid", "is_public", "created_at").
		Values(fuid, uuid.NewString(), false, toMicros(nowFunc()))).
		ExecContext(ctx)
	return err
}

func (s *Datastore) lockUser(ctx context.Context, stbl sq.StatementBuilderType, fuid string) error {
	if s.dialect.LockSuffix == "" {
		return nil
	}
	var locked string
	return stbl.
		Select("fuid").
		From(usersTable).
		Where(sq.Eq{"fuid": fuid}).
		Suffix(s.dialect.LockSuffix).
		QueryRowContext(ctx).
		Scan(&locked)
}

func (s *Datastore) createdSourceURLs(ctx context.Context, stbl sq.StatementBuilderType, owner string, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(urls) == 0 {
		return existing, nil
	}

	found, err := queryStrings(ctx, stbl.
		Select("o.source_url").
		From(recordTable+" o").
		Join(grantTable+" g ON g.ontology_uuid = o.uuid").
		Where(sq.Eq{
			"g.fuid":       owner,
			"g.capability": string(storage.CapabilityCreated),
			"o.source_url": urls,
		}))
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		existing[u] = struct{}{}
	}
	return existing, nil
}

func writeTags(ctx context.Context, stbl sq.StatementBuilderType, id string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	ib := stbl.Insert(tagTable).Columns("ontology_uuid", "tag")
	for _, tag := range tags {
		ib = ib.Values(id, tag)
	}
	_, err := ib.ExecContext(ctx)
	return err
}

// inTx runs fn in a transaction, committing when it returns nil. Errors from fn pass
// through the engine's error handler, except storage sentinels.
func (s *Datastore) inTx(ctx context.Context, fn func(stbl sq.StatementBuilderType) error) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.handleSQLError(err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	if err := fn(s.stbl.RunWith(txn)); err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidCapability) {
			return err
		}
		return s.handleSQLError(err)
	}

	if err := txn.Commit(); err != nil {
		return s.handleSQLError(err)
	}
	return nil
}

func queryStrings(ctx context.Context, sb sq.SelectBuilder) ([]string, error) {
	rows, err := sb.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*storage.Record, error) {
	var (
		r                    storage.Record
		imageURL, desc       sql.NullString
		nodes, relationships sql.NullInt64
		score                sql.NullFloat64
		createdAt, updatedAt int64
	)
	err := row.Scan(&r.ID, &r.Name, &r.SourceURL, &imageURL, &desc,
		&nodes, &relationships, &score, &r.IsPublic, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		r.ImageURL = &imageURL.String
	}
	if desc.Valid {
		r.Description = &desc.String
	}
	if nodes.Valid {
		r.NodeCount = &nodes.Int64
	}
	if relationships.Valid {
		r.RelationshipCount = &relationships.Int64
	}
	if score.Valid {
		r.Score = &score.Float64
	}
	r.CreatedAt = fromMicros(createdAt)
	r.UpdatedAt = fromMicros(updatedAt)
	return &r, nil
}
