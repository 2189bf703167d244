package neo4j

import (
	"context"
	"fmt"
	"time"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT ontology_uuid IF NOT EXISTS FOR (o:Ontology) REQUIRE o.uuid IS UNIQUE`,
	`CREATE CONSTRAINT user_fuid IF NOT EXISTS FOR (u:User) REQUIRE u.fuid IS UNIQUE`,
	`CREATE CONSTRAINT tag_name IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE`,
	`CREATE INDEX ontology_created_at IF NOT EXISTS FOR (o:Ontology) ON (o.created_at)`,
	`CREATE INDEX ontology_source_url IF NOT EXISTS FOR (o:Ontology) ON (o.source_url)`,
}

// EnsureSchema creates the constraints and indexes the datastore relies on. Every
// statement is idempotent.
func (s *Datastore) EnsureSchema(ctx context.Context) error {
	// schema changes cannot share a transaction with each other
	for _, stmt := range schemaStatements {
		if _, err := s.runner.Write(ctx, Statement{Query: stmt}); err != nil {
			return fmt.Errorf("apply neo4j schema: %w", handleError(err))
		}
	}
	return nil
}

// Migrate connects to uri and applies the schema.
func Migrate(ctx context.Context, uri, username, password string, timeout time.Duration) error {
	cfg := NewConfig(
		WithUsername(username),
		WithPassword(password),
	)
	if timeout > 0 {
		cfg.VerifyTimeout = timeout
	}

	ds, err := New(uri, cfg)
	if err != nil {
		return err
	}
	defer ds.Close()

	return ds.EnsureSchema(ctx)
}
