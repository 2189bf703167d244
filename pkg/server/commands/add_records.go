package commands

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

// NewRecord is a record as submitted for creation.
type NewRecord struct {
	Name              string   `json:"name"`
	SourceURL         string   `json:"source_url"`
	ImageURL          *string  `json:"image_url,omitempty"`
	Description       *string  `json:"description,omitempty"`
	NodeCount         *int64   `json:"node_count,omitempty"`
	RelationshipCount *int64   `json:"relationship_count,omitempty"`
	Score             *float64 `json:"score,omitempty"`
	IsPublic          bool     `json:"is_public"`
	Tags              []string `json:"tags,omitempty"`
}

// CreatedRecord identifies a record created by an add.
type CreatedRecord struct {
	ID        string `json:"uuid"`
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
}

type AddRecordsResult struct {
	CreatedRecords []CreatedRecord `json:"created_records"`
	SkippedCount   int             `json:"skipped_count"`
}

type AddRecordsCommand struct {
	backend     storage.RecordWriter
	invalidator Invalidator
	maxRecords  int
	now         func() time.Time
	logger      logger.Logger
}

type AddRecordsCommandOption func(*AddRecordsCommand)

func WithAddRecordsMaxRecords(n int) AddRecordsCommandOption {
	return func(c *AddRecordsCommand) {
		c.maxRecords = n
	}
}

func WithAddRecordsClock(now func() time.Time) AddRecordsCommandOption {
	return func(c *AddRecordsCommand) {
		c.now = now
	}
}

func WithAddRecordsLogger(l logger.Logger) AddRecordsCommandOption {
	return func(c *AddRecordsCommand) {
		c.logger = l
	}
}

func NewAddRecordsCommand(backend storage.RecordWriter, invalidator Invalidator, opts ...AddRecordsCommandOption) *AddRecordsCommand {
	c := &AddRecordsCommand{
		backend:     backend,
		invalidator: invalidator,
		maxRecords:  storage.DefaultMaxRecordsPerWrite,
		now:         time.Now,
		logger:      logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute creates the records owned by owner. Records whose source_url the owner already
// published are skipped. createdAt, when set, overrides the creation time of every record.
func (c *AddRecordsCommand) Execute(ctx context.Context, owner string, records []NewRecord, createdAt *time.Time) (*AddRecordsResult, error) {
	ctx, span := tracer.Start(ctx, "AddRecordsCommand.Execute")
	defer span.End()

	if err := c.validate(records); err != nil {
		return nil, err
	}

	now := c.now()
	if createdAt != nil {
		now = *createdAt
	}
	now = now.UTC().Truncate(time.Microsecond)

	candidates := make([]storage.Record, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, storage.Record{
			ID:                uuid.NewString(),
			Name:              strings.TrimSpace(r.Name),
			SourceURL:         strings.TrimSpace(r.SourceURL),
			ImageURL:          r.ImageURL,
			Description:       r.Description,
			NodeCount:         r.NodeCount,
			RelationshipCount: r.RelationshipCount,
			Score:             r.Score,
			IsPublic:          r.IsPublic,
			CreatedAt:         now,
			UpdatedAt:         now,
			Tags:              storage.NormalizeTags(r.Tags),
		})
	}

	created, err := c.backend.CreateRecords(ctx, owner, candidates)
	if err != nil {
		c.logger.ErrorWithContext(ctx, "failed to add records", zap.Error(err))
		return nil, serverErrors.HandleError("Database operation failed", err)
	}

	if len(created) > 0 {
		c.invalidator.Invalidate(ctx)
	}

	result := &AddRecordsResult{
		CreatedRecords: make([]CreatedRecord, 0, len(created)),
		SkippedCount:   len(records) - len(created),
	}
	for _, r := range created {
		result.CreatedRecords = append(result.CreatedRecords, CreatedRecord{
			ID:        r.ID,
			Name:      r.Name,
			SourceURL: r.SourceURL,
		})
	}
	return result, nil
}

func (c *AddRecordsCommand) validate(records []NewRecord) error {
	if len(records) == 0 {
		return serverErrors.ValidationError("No ontologies provided")
	}
	if len(records) > c.maxRecords {
		return serverErrors.ValidationErrorf("At most %d ontologies can be added at once", c.maxRecords)
	}

	for i, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			return serverErrors.ValidationErrorf("Ontology %d: name is required", i)
		}
		if strings.TrimSpace(r.SourceURL) == "" {
			return serverErrors.ValidationErrorf("Ontology %d: source_url is required", i)
		}
		if err := validateCounts(r.NodeCount, r.RelationshipCount); err != nil {
			return err
		}
	}
	return nil
}

func validateCounts(nodeCount, relationshipCount *int64) error {
	if nodeCount != nil && *nodeCount < 0 {
		return serverErrors.ValidationError("node_count must not be negative")
	}
	if relationshipCount != nil && *relationshipCount < 0 {
		return serverErrors.ValidationError("relationship_count must not be negative")
	}
	return nil
}
