package workload

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/metrics"
)

const progressEvery = 1000

// Config describes one run.
type Config struct {
	Database    string
	Container   string
	Count       int
	ExtraFields int
	Seed        int64
}

type QueryResult struct {
	Filter database.Filter
	Count  int
}

type Result struct {
	IDs     []string
	Queries []QueryResult
}

func (r Result) Inserted() int {
	return len(r.IDs)
}

// ProgressFunc is told about every inserted document.
type ProgressFunc func(done, total int)

// Runner provisions a container, fills it and queries it, strictly in
// sequence. The first failure ends the run.
type Runner struct {
	store    database.Store
	cfg      Config
	gen      *Generator
	out      io.Writer
	progress ProgressFunc
}

func NewRunner(store database.Store, cfg Config, out io.Writer) *Runner {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Runner{
		store: store,
		cfg:   cfg,
		gen:   NewGenerator(cfg.ExtraFields, cfg.Seed),
		out:   out,
	}
}

func (r *Runner) OnProgress(fn ProgressFunc) {
	r.progress = fn
}

func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result
	if err := r.Provision(ctx); err != nil {
		return res, err
	}

	ids, err := r.Insert(ctx)
	res.IDs = ids
	if err != nil {
		return res, err
	}

	res.Queries, err = r.Query(ctx)
	return res, err
}

// Provision makes sure the database and the container exist.
func (r *Runner) Provision(ctx context.Context) error {
	if err := r.store.EnsureDatabase(ctx); err != nil {
		return fmt.Errorf("failed to provision database %s: %w", r.cfg.Database, err)
	}
	fmt.Fprintf(r.out, "Database '%s' created or already exists\n", r.cfg.Database)

	if err := r.store.EnsureContainer(ctx); err != nil {
		return fmt.Errorf("failed to provision container %s: %w", r.cfg.Container, err)
	}
	fmt.Fprintf(r.out, "Container '%s' created or already exists\n", r.cfg.Container)
	return nil
}

// Insert creates cfg.Count documents one at a time and returns their ids.
func (r *Runner) Insert(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, r.cfg.Count)
	start := time.Now()
	for i := 0; i < r.cfg.Count; i++ {
		doc := r.gen.Document(i)
		opStart := time.Now()
		if err := r.store.Insert(ctx, doc); err != nil {
			metrics.OperationErrors.WithLabelValues("insert").Inc()
			return ids, fmt.Errorf("failed to insert document %d: %w", i+1, err)
		}
		metrics.OperationDuration.WithLabelValues("insert").Observe(time.Since(opStart).Seconds())
		metrics.DocumentsInserted.Inc()
		ids = append(ids, doc.ID())

		if r.progress != nil {
			r.progress(i+1, r.cfg.Count)
		}
		if (i+1)%progressEvery == 0 {
			log.Infof("Inserted %d/%d documents...", i+1, r.cfg.Count)
		}
	}
	log.WithFields(log.Fields{
		"count":   len(ids),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("insert finished")
	return ids, nil
}

// Query issues every filter of Queries and reports how many documents
// each one matched.
func (r *Runner) Query(ctx context.Context) ([]QueryResult, error) {
	var results []QueryResult
	for _, f := range Queries() {
		opStart := time.Now()
		docs, err := r.store.Query(ctx, f)
		if err != nil {
			metrics.OperationErrors.WithLabelValues("query").Inc()
			return results, fmt.Errorf("failed to query %q: %w", f, err)
		}
		metrics.OperationDuration.WithLabelValues("query").Observe(time.Since(opStart).Seconds())
		metrics.QueryResults.WithLabelValues(f.Field).Set(float64(len(docs)))

		log.Debugf("query %q matched %d documents", f, len(docs))
		fmt.Fprintf(r.out, "Queried items: %d items found\n", len(docs))
		results = append(results, QueryResult{Filter: f, Count: len(docs)})
	}
	return results, nil
}
