// Package stat defines the collectable statistic kinds. Each source
// knows which gateway call serves it, which columns its records carry,
// and which columns form the natural key rows are deduplicated by.
package stat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/yatsu/githubstat/internal/domain"
	"github.com/yatsu/githubstat/internal/gateway"
)

// Source is one collectable statistic.
//
// Columns is the full column set of every record the source produces,
// in file order. KeyColumns is the subset that uniquely identifies a
// record within one file; no two records with an equal key tuple may
// survive a merge. Collect fetches the raw data and normalizes it into
// records; an empty remote response yields an empty slice, not an error.
type Source interface {
	Kind() domain.Kind
	Columns() []string
	KeyColumns() []string
	Collect(ctx context.Context, f gateway.Fetcher, refDate time.Time) ([]domain.Record, error)
}

// All returns every supported source in collection order.
func All() []Source {
	return []Source{Referrers{}, Paths{}, StarsForks{}, ViewsClones{}}
}

// ForNames resolves kind names (as used by the --stats flag) to
// sources, preserving the given order.
func ForNames(names []string) ([]Source, error) {
	byKind := make(map[domain.Kind]Source)
	for _, s := range All() {
		byKind[s.Kind()] = s
	}
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		s, ok := byKind[domain.Kind(name)]
		if !ok {
			return nil, fmt.Errorf("unknown statistic kind %q", name)
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// Referrers collects the external sites that linked to the repository.
type Referrers struct{}

func (Referrers) Kind() domain.Kind    { return domain.KindReferrers }
func (Referrers) Columns() []string    { return []string{"date", "referrer", "count", "uniques"} }
func (Referrers) KeyColumns() []string { return []string{"date", "referrer"} }

func (Referrers) Collect(ctx context.Context, f gateway.Fetcher, refDate time.Time) ([]domain.Record, error) {
	raw, err := f.Referrers(ctx)
	if err != nil {
		return nil, err
	}
	return referrerRows(raw, refDate), nil
}

func referrerRows(raw []gateway.ReferrerStat, refDate time.Time) []domain.Record {
	rows := make([]domain.Record, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, domain.Record{
			"date":     refDate.Format(domain.DateLayout),
			"referrer": r.Referrer,
			"count":    strconv.Itoa(r.Count),
			"uniques":  strconv.Itoa(r.Uniques),
		})
	}
	return rows
}

// Paths collects the most visited content paths.
type Paths struct{}

func (Paths) Kind() domain.Kind    { return domain.KindPaths }
func (Paths) Columns() []string    { return []string{"date", "path", "count", "uniques"} }
func (Paths) KeyColumns() []string { return []string{"date", "path"} }

func (Paths) Collect(ctx context.Context, f gateway.Fetcher, refDate time.Time) ([]domain.Record, error) {
	raw, err := f.Paths(ctx)
	if err != nil {
		return nil, err
	}
	return pathRows(raw, refDate), nil
}

func pathRows(raw []gateway.PathStat, refDate time.Time) []domain.Record {
	rows := make([]domain.Record, 0, len(raw))
	for _, p := range raw {
		rows = append(rows, domain.Record{
			"date":    refDate.Format(domain.DateLayout),
			"path":    p.Path,
			"count":   strconv.Itoa(p.Count),
			"uniques": strconv.Itoa(p.Uniques),
		})
	}
	return rows
}

// StarsForks collects the current cumulative star and fork totals as a
// single dated snapshot row.
type StarsForks struct{}

func (StarsForks) Kind() domain.Kind    { return domain.KindStarsForks }
func (StarsForks) Columns() []string    { return []string{"date", "stars", "forks"} }
func (StarsForks) KeyColumns() []string { return []string{"date"} }

func (StarsForks) Collect(ctx context.Context, f gateway.Fetcher, refDate time.Time) ([]domain.Record, error) {
	counts, err := f.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return starsForksRows(counts, refDate), nil
}

func starsForksRows(counts gateway.RepoCounts, refDate time.Time) []domain.Record {
	return []domain.Record{{
		"date":  refDate.Format(domain.DateLayout),
		"stars": strconv.Itoa(counts.Stars),
		"forks": strconv.Itoa(counts.Forks),
	}}
}
