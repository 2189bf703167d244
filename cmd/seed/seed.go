// Package seed contains the command that fills a datastore with synthetic ontologies
// for local development and load testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ontologymarket/catalog/cmd/run"
	"github.com/ontologymarket/catalog/cmd/util"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverconfig "github.com/ontologymarket/catalog/pkg/server/config"
	"github.com/ontologymarket/catalog/pkg/storage"
)

const (
	datastoreEngineFlag   = "datastore-engine"
	datastoreURIFlag      = "datastore-uri"
	datastoreUsernameFlag = "datastore-username"
	datastorePasswordFlag = "datastore-password"
	datastoreDBFlag       = "datastore-database"
	recordsFlag           = "records"
	ownersFlag            = "owners"
	publicEveryFlag       = "public-every"
	concurrencyFlag       = "concurrency"
	logLevelFlag          = "log-level"
)

// Options describes the synthetic catalog to write.
type Options struct {
	// Records is the total number of ontologies, spread evenly over Owners.
	Records int
	Owners  int
	// PublicEvery makes every n-th ontology public. Zero keeps them all private.
	PublicEvery int
	Concurrency int
	BatchSize   int
}

// Result lists what Seed wrote.
type Result struct {
	Owners  []string
	Created int
}

func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a datastore with synthetic ontologies",
		Long:  "Fill a datastore with synthetic ontologies owned by generated users. Meant for local development and load testing.",
		RunE:  runSeed,
		Args:  cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.String(datastoreEngineFlag, "", "(required) the datastore engine to seed ('neo4j', 'sqlite', 'postgres' or 'mysql')")
	flags.String(datastoreURIFlag, "", "(required) the connection uri of the datastore")
	flags.String(datastoreUsernameFlag, "", "(optional) overwrite the username in the connection string")
	flags.String(datastorePasswordFlag, "", "(optional) overwrite the password in the connection string")
	flags.String(datastoreDBFlag, serverconfig.DefaultNeo4jDatabase, "the neo4j database holding the catalog graph")
	flags.Int(recordsFlag, 1000, "the number of ontologies to create")
	flags.Int(ownersFlag, 10, "the number of users owning them")
	flags.Int(publicEveryFlag, 2, "make every n-th ontology public (0 keeps them all private)")
	flags.Int(concurrencyFlag, 4, "the number of owners written concurrently")
	flags.String(logLevelFlag, "info", "the log level to use")

	cmd.PreRun = func(command *cobra.Command, _ []string) {
		flags := command.Flags()
		for _, name := range []string{datastoreEngineFlag, datastoreURIFlag, datastoreUsernameFlag, datastorePasswordFlag, datastoreDBFlag, recordsFlag, ownersFlag, publicEveryFlag, concurrencyFlag, logLevelFlag} {
			util.MustBindPFlag("seed."+name, flags.Lookup(name))
		}
	}

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	engine := viper.GetString("seed." + datastoreEngineFlag)
	if engine == "" {
		return errors.New("missing datastore engine type")
	}
	if engine == "memory" {
		return errors.New("the 'memory' datastore does not outlive the seed command")
	}

	l, err := logger.NewLogger("text", viper.GetString("seed."+logLevelFlag), "ISO8601")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg := serverconfig.MustDefaultConfig()
	cfg.Datastore.Engine = engine
	cfg.Datastore.URI = viper.GetString("seed." + datastoreURIFlag)
	cfg.Datastore.Username = viper.GetString("seed." + datastoreUsernameFlag)
	cfg.Datastore.Password = viper.GetString("seed." + datastorePasswordFlag)
	cfg.Datastore.Database = viper.GetString("seed." + datastoreDBFlag)

	ds, err := run.NewDatastore(l, cfg)
	if err != nil {
		return err
	}
	defer ds.Close()

	res, err := Seed(cmd.Context(), ds, l, Options{
		Records:     viper.GetInt("seed." + recordsFlag),
		Owners:      viper.GetInt("seed." + ownersFlag),
		PublicEvery: viper.GetInt("seed." + publicEveryFlag),
		Concurrency: viper.GetInt("seed." + concurrencyFlag),
	})
	if err != nil {
		return err
	}

	for _, owner := range res.Owners {
		fmt.Fprintln(cmd.OutOrStdout(), owner)
	}
	return nil
}

// Seed writes opts.Records ontologies to ds, owned round-robin by opts.Owners generated
// users, in batches of at most storage.DefaultMaxRecordsPerWrite.
func Seed(ctx context.Context, ds storage.RecordWriter, l logger.Logger, opts Options) (*Result, error) {
	if opts.Records < 0 || opts.Owners <= 0 {
		return nil, errors.New("records must not be negative and owners must be positive")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = storage.DefaultMaxRecordsPerWrite
	}

	defer timeTrack(l, time.Now(), "seed")

	owners := make([]string, opts.Owners)
	batches := make([][]storage.Record, opts.Owners)
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i := range owners {
		owners[i] = "seed-" + ulid.Make().String()
	}
	for i := 0; i < opts.Records; i++ {
		owner := i % opts.Owners
		batches[owner] = append(batches[owner], syntheticRecord(i, opts.PublicEvery, now))
	}

	created := make([]int, opts.Owners)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, owner := range owners {
		records := batches[i]
		g.Go(func() error {
			for start := 0; start < len(records); start += opts.BatchSize {
				end := min(start+opts.BatchSize, len(records))
				written, err := ds.CreateRecords(gctx, owner, records[start:end])
				if err != nil {
					return fmt.Errorf("seed records of %s: %w", owner, err)
				}
				created[i] += len(written)
			}
			l.Debug("seeded owner", zap.String("owner", owner), zap.Int("records", created[i]))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Owners: owners}
	for _, n := range created {
		res.Created += n
	}
	l.Info("seed done", zap.Int("owners", len(owners)), zap.Int("created", res.Created))
	return res, nil
}

var topics = []string{"gene", "protein", "disease", "anatomy", "chemical", "phenotype", "taxonomy", "environment"}

func syntheticRecord(i, publicEvery int, now time.Time) storage.Record {
	topic := topics[i%len(topics)]
	description := fmt.Sprintf("Synthetic %s ontology number %d", topic, i)
	nodes := int64(100 + i)
	rels := int64(2 * (100 + i))

	return storage.Record{
		ID:                uuid.NewString(),
		Name:              fmt.Sprintf("%s-ontology-%d", topic, i),
		SourceURL:         fmt.Sprintf("https://ontologies.example/%s/%d.owl", topic, i),
		Description:       &description,
		NodeCount:         &nodes,
		RelationshipCount: &rels,
		IsPublic:          publicEvery > 0 && i%publicEvery == 0,
		CreatedAt:         now,
		UpdatedAt:         now,
		Tags:              []string{topic, "synthetic"},
	}
}

func timeTrack(l logger.Logger, start time.Time, name string) {
	l.Info(name+" finished", zap.Duration("took", time.Since(start)))
}
