//go:generate mockgen -source runner.go -destination ../../../internal/mocks/mock_neo4j_runner.go -package mocks Runner

package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Statement is one Cypher query and its parameters.
type Statement struct {
	Query  string
	Params map[string]any
}

// Runner executes Cypher against a database. Every result is fully buffered.
type Runner interface {
	// Read runs a read-only statement, routed to a reader when the cluster has one.
	Read(ctx context.Context, stmt Statement) (*neo4j.EagerResult, error)

	// Write runs the statements in order inside a single write transaction and returns
	// one result per statement. The transaction is retried by the driver on transient
	// failures.
	Write(ctx context.Context, stmts ...Statement) ([]*neo4j.EagerResult, error)

	VerifyConnectivity(ctx context.Context) error

	Close(ctx context.Context) error
}

// DriverRunner is the Runner backed by the official driver.
type DriverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ Runner = (*DriverRunner)(nil)

func NewDriverRunner(uri, username, password, database string) (*DriverRunner, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}
	return &DriverRunner{driver: driver, database: database}, nil
}

func (r *DriverRunner) Read(ctx context.Context, stmt Statement) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(
		ctx,
		r.driver,
		stmt.Query,
		stmt.Params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(r.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
}

func (r *DriverRunner) Write(ctx context.Context, stmts ...Statement) ([]*neo4j.EagerResult, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	results, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		results := make([]*neo4j.EagerResult, 0, len(stmts))
		for _, stmt := range stmts {
			res, err := tx.Run(ctx, stmt.Query, stmt.Params)
			if err != nil {
				return nil, err
			}

			keys, err := res.Keys()
			if err != nil {
				return nil, err
			}
			records, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			summary, err := res.Consume(ctx)
			if err != nil {
				return nil, err
			}

			results = append(results, &neo4j.EagerResult{
				Keys:    keys,
				Records: records,
				Summary: summary,
			})
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return results.([]*neo4j.EagerResult), nil
}

func (r *DriverRunner) VerifyConnectivity(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *DriverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
