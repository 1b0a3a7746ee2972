// Package domain contains the core data structures and domain logic for the application.
package domain

import "fmt"

// DateLayout is the date format used in every record and file name.
const DateLayout = "2006-01-02"

// Kind identifies one collectable statistic.
type Kind string

const (
	KindReferrers   Kind = "referrers"
	KindPaths       Kind = "paths"
	KindStarsForks  Kind = "starsforks"
	KindViewsClones Kind = "viewsclones"
)

// Target identifies the repository statistics are collected for.
// The access token is deliberately kept out of it so a Target can be
// logged and embedded in error messages.
type Target struct {
	Owner string
	Repo  string
}

func (t Target) String() string {
	return t.Owner + "/" + t.Repo
}

// Record is a single row of a statistics file, keyed by column name.
// All records produced for one Kind share the same column set; the
// column ordering lives with the statistic source, not the record.
type Record map[string]string

// Outcome is the per-statistic result of one collection run: either the
// number of rows in the merged file, or the error that stopped it.
type Outcome struct {
	Kind  Kind
	Path  string
	Count int
	Err   error
}

// Failed reports whether this statistic could not be collected or written.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Kind, o.Err)
	}
	return fmt.Sprintf("%s: %d rows in %s", o.Kind, o.Count, o.Path)
}
