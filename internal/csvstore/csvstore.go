// Package csvstore persists statistic records as per-year CSV files.
// Writes are merges: records already in the file survive unless a new
// record carries the same natural key, in which case the new record
// wins. Repeated runs with identical input are therefore idempotent.
package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yatsu/githubstat/internal/domain"
	"github.com/yatsu/githubstat/internal/errs"
)

// keySep joins key column values into a map key. Unit separator keeps
// composite keys unambiguous for values that may contain commas.
const keySep = "\x1f"

// FilePath returns the canonical output file for a statistic kind and
// year: {outdir}/{year}_githubstat_{kind}.csv.
func FilePath(outdir string, year int, kind domain.Kind) string {
	return filepath.Join(outdir, fmt.Sprintf("%d_githubstat_%s.csv", year, kind))
}

// MergeWrite merges records into the CSV file at path, deduplicating by
// the keyColumns tuple, and rewrites the file sorted ascending by key.
// The write goes to a temporary file in the same directory and is
// promoted by rename, so the prior file is untouched on any failure.
// When the merged set is empty no file is written or created.
// Returns the number of records in the final file.
func MergeWrite(path string, columns, keyColumns []string, records []domain.Record) (int, error) {
	existing, err := readRecords(path)
	if err != nil {
		return 0, err
	}
	merged := overlay(existing, records, keyColumns)
	if len(merged) == 0 {
		return 0, nil
	}
	sortByKey(merged, keyColumns)
	if err := writeAtomic(path, columns, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// readRecords loads the file's rows as records keyed by its header.
// An absent file is an empty record set.
func readRecords(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errs.StorageError{Op: "read", Path: path, Cause: err}
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &errs.StorageError{Op: "read", Path: path, Cause: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	records := make([]domain.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(domain.Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// overlay applies incoming records over existing ones: matching keys
// are replaced in place, new keys are appended.
func overlay(existing, incoming []domain.Record, keyColumns []string) []domain.Record {
	merged := make([]domain.Record, len(existing))
	copy(merged, existing)
	index := make(map[string]int, len(existing))
	for i, rec := range existing {
		index[keyOf(rec, keyColumns)] = i
	}
	for _, rec := range incoming {
		key := keyOf(rec, keyColumns)
		if i, ok := index[key]; ok {
			merged[i] = rec
			continue
		}
		index[key] = len(merged)
		merged = append(merged, rec)
	}
	return merged
}

func keyOf(rec domain.Record, keyColumns []string) string {
	parts := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		parts[i] = rec[col]
	}
	return strings.Join(parts, keySep)
}

func sortByKey(records []domain.Record, keyColumns []string) {
	sort.Slice(records, func(i, j int) bool {
		return keyOf(records[i], keyColumns) < keyOf(records[j], keyColumns)
	})
}

func writeAtomic(path string, columns []string, records []domain.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.StorageError{Op: "write", Path: path, Cause: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return &errs.StorageError{Op: "write", Path: path, Cause: err}
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(columns); err != nil {
		tmp.Close()
		return &errs.StorageError{Op: "write", Path: path, Cause: err}
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return &errs.StorageError{Op: "write", Path: path, Cause: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return &errs.StorageError{Op: "write", Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &errs.StorageError{Op: "write", Path: path, Cause: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &errs.StorageError{Op: "rename", Path: path, Cause: err}
	}
	return nil
}
