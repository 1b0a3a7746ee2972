// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yatsu/githubstat/internal/csvstore"
	"github.com/yatsu/githubstat/internal/domain"
	"github.com/yatsu/githubstat/internal/gateway"
	"github.com/yatsu/githubstat/internal/stat"
)

// Writer is the use case for collecting repository statistics and
// merging them into per-year CSV files. It drives, per statistic
// source, fetch -> normalize -> merge-write, and collects per-source
// outcomes instead of failing fast: one statistic's error never stops
// the others.
type Writer struct {
	fetcher     gateway.Fetcher
	logger      *logrus.Logger
	concurrency int
}

// Option configures a Writer.
type Option func(*Writer)

// WithConcurrency allows up to n sources to be collected in parallel.
// Each source owns a distinct output file, so concurrent collection
// never races on a path; within one source, fetch and write stay
// sequential.
func WithConcurrency(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// NewWriter creates a new Writer instance. Collection is sequential
// unless WithConcurrency raises the limit.
func NewWriter(fetcher gateway.Fetcher, logger *logrus.Logger, opts ...Option) *Writer {
	w := &Writer{
		fetcher:     fetcher,
		logger:      logger,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write collects every given source for refDate and merges the rows
// into {outdir}/{year}_githubstat_{kind}.csv, where year is taken from
// refDate. It returns one Outcome per source, in source order.
func (w *Writer) Write(ctx context.Context, sources []stat.Source, refDate time.Time, outdir string) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(sources))

	var eg errgroup.Group
	eg.SetLimit(w.concurrency)
	for i, src := range sources {
		i, src := i, src
		eg.Go(func() error {
			outcomes[i] = w.writeOne(ctx, src, refDate, outdir)
			return nil
		})
	}
	eg.Wait()

	return outcomes
}

func (w *Writer) writeOne(ctx context.Context, src stat.Source, refDate time.Time, outdir string) domain.Outcome {
	path := csvstore.FilePath(outdir, refDate.Year(), src.Kind())
	outcome := domain.Outcome{Kind: src.Kind(), Path: path}
	log := w.logger.WithField("stat", string(src.Kind()))

	records, err := src.Collect(ctx, w.fetcher, refDate)
	if err != nil {
		log.WithError(err).Error("Failed to collect statistic")
		outcome.Err = err
		return outcome
	}
	log.WithField("rows", len(records)).Info("Collected statistic")

	count, err := csvstore.MergeWrite(path, src.Columns(), src.KeyColumns(), records)
	if err != nil {
		log.WithError(err).Error("Failed to write statistic")
		outcome.Err = err
		return outcome
	}
	outcome.Count = count
	log.WithFields(logrus.Fields{"rows": count, "file": path}).Info("Merged statistic")
	return outcome
}
