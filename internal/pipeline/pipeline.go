// Package pipeline runs the canonicalizer and fans the canonical ledger out to
// the aggregators, producing the sheet bundle of one upload.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"fjacquet/travel-ledger/internal/aggregate"
	"fjacquet/travel-ledger/internal/canonical"
	"fjacquet/travel-ledger/internal/dateutils"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds the aggregator fan-out when Options.Workers is unset.
const DefaultWorkers = 4

// Options configures a Pipeline.
type Options struct {
	Canonical  canonical.Options
	Aggregates aggregate.Options
	// Enabled names the aggregate sheets to compute; empty means all.
	Enabled []string
	Workers int
}

// DefaultOptions runs every aggregator with default settings.
func DefaultOptions() Options {
	return Options{
		Canonical:  canonical.DefaultOptions(),
		Aggregates: aggregate.DefaultOptions(),
		Workers:    DefaultWorkers,
	}
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	canon       *canonical.Canonicalizer
	aggregators []aggregate.Aggregator
	aggOpts     aggregate.Options
	workers     int
	logger      logging.Logger
}

// New builds a pipeline. An unknown name in opts.Enabled is an error.
func New(opts Options, logger logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	aggregators, err := aggregate.Select(opts.Enabled)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregate selection: %w", err)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pipeline{
		canon:       canonical.New(opts.Canonical, logger),
		aggregators: aggregators,
		aggOpts:     opts.Aggregates,
		workers:     workers,
		logger:      logger,
	}, nil
}

// Aggregators returns the sheet names this pipeline computes, in bundle order.
func (p *Pipeline) Aggregators() []string {
	names := make([]string, len(p.aggregators))
	for i, a := range p.aggregators {
		names[i] = a.Name
	}
	return names
}

// Run canonicalizes raw against asOf and computes the bundle, Cleaned_Data first.
//
// A schema failure returns the *ledgererror.SchemaError. An input that keeps
// no rows returns a nil bundle and an error matching ledgererror.ErrEmptyResult.
func (p *Pipeline) Run(ctx context.Context, raw models.RawTable, asOf time.Time) (*models.Bundle, error) {
	runID := uuid.NewString()
	logger := p.logger.WithField(logging.FieldRunID, runID)
	start := time.Now()

	logger.Info("Pipeline run started",
		logging.F(logging.FieldCount, len(raw.Records)),
		logging.F(logging.FieldAsOf, dateutils.ToISODate(asOf)))

	result, err := p.canon.Canonicalize(raw, asOf)
	if err != nil {
		logger.WithError(err).Warn("Canonicalization ended the run")
		return nil, err
	}

	bundle := models.NewBundle(canonical.ToTable(result.Ledger))
	tables, err := p.aggregate(ctx, result.Ledger, logger)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		bundle.Put(t)
	}

	logger.Info("Pipeline run finished",
		logging.F(logging.FieldKept, result.Ledger.Len()),
		logging.F(logging.FieldDropped, result.Drops.Total()),
		logging.F(logging.FieldTables, bundle.Len()),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return bundle, nil
}

// Summarize computes only the aggregate tables of an existing ledger.
func (p *Pipeline) Summarize(ctx context.Context, ledger models.Ledger) (*models.Bundle, error) {
	logger := p.logger.WithField(logging.FieldRunID, uuid.NewString())
	tables, err := p.aggregate(ctx, ledger, logger)
	if err != nil {
		return nil, err
	}
	return models.NewBundle(tables...), nil
}

// aggregate runs the aggregators on a bounded worker pool. Each goroutine
// writes its own slot; the ledger is shared read-only.
func (p *Pipeline) aggregate(ctx context.Context, ledger models.Ledger, logger logging.Logger) ([]models.Table, error) {
	tables := make([]models.Table, len(p.aggregators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, a := range p.aggregators {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tables[i] = a.Run(ledger, p.aggOpts)
			if tables[i].IsEmpty() {
				logger.Debug("Aggregate is empty", logging.F(logging.FieldAggregator, a.Name))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregation cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregation cancelled: %w", err)
	}
	return tables, nil
}
