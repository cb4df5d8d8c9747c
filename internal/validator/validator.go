// Package validator compares a dataset before and after a column-type
// conversion and isolates the rows where the conversion silently introduced
// nulls. Converting text columns to timestamps is the classic case: poorly
// formed values turn into nulls that nobody can find by hand across a large
// table. The validator works as an early warning system.
//
// A primary key column in both snapshots is required for matching rows.
package validator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"KanariaGo/internal/dataset"
	"KanariaGo/internal/model"
)

// ErrPrimaryKeyNotFound reports a primary key column missing from the before
// snapshot. Matched with errors.Is.
var ErrPrimaryKeyNotFound = errors.New("primary key column not found")

// Validator holds the fully computed comparison of a before/after snapshot
// pair. Everything is derived once in New; the instance is immutable and all
// query methods are reads.
type Validator struct {
	before dataset.Dataset
	after  dataset.Dataset

	primaryKey  string
	columnNames []string

	nullsBefore map[string]int64
	nullsAfter  map[string]int64
	differing   []model.ColumnNullDelta

	badRows        dataset.Dataset
	badRowTotal    int64
	beforeRowTotal int64
}

// New runs the comparison. The pipeline, in order: record the before
// snapshot's columns as the canonical set, count nulls per column on each
// side, keep the columns whose counts changed, inner-join both sides on the
// primary key, count nulls among the divergent columns per matched row, and
// keep the rows where the two counts differ.
//
// Unless quiet is set a summary is printed to stdout on the way out. The
// after snapshot is not schema-checked up front; a column present before but
// missing after surfaces as a backend error here.
func New(before, after dataset.Dataset, primaryKey string, quiet bool) (*Validator, error) {
	v := &Validator{
		before:      before,
		after:       after,
		primaryKey:  primaryKey,
		columnNames: before.Columns(),
	}

	if !contains(v.columnNames, primaryKey) {
		return nil, fmt.Errorf("%w: %q is not a column of the before dataset", ErrPrimaryKeyNotFound, primaryKey)
	}

	var err error
	if v.nullsBefore, err = before.NullCounts(); err != nil {
		return nil, err
	}
	if v.nullsAfter, err = after.NullCounts(v.columnNames...); err != nil {
		return nil, err
	}

	for _, c := range v.columnNames {
		if delta := v.nullsAfter[c] - v.nullsBefore[c]; delta != 0 {
			v.differing = append(v.differing, model.ColumnNullDelta{ColumnName: c, Difference: delta})
		}
	}

	if err := v.buildBadRowComparison(); err != nil {
		return nil, err
	}

	if v.badRowTotal, err = v.badRows.Count(); err != nil {
		return nil, err
	}
	if v.beforeRowTotal, err = before.Count(); err != nil {
		return nil, err
	}

	if !quiet {
		v.Summary()
	}
	return v, nil
}

// buildBadRowComparison joins the two snapshots and keeps the rows whose
// null count over the divergent columns differs between sides. The result
// is projected to: key, divergent columns from each side (prefixed), and the
// two counts.
func (v *Validator) buildBadRowComparison() error {
	names := v.DivergentColumnNames()
	if len(names) == 0 {
		// Nothing diverged; an empty comparison keeps every query well defined.
		v.badRows = dataset.NewTable([]string{v.primaryKey, "leftNulls", "rightNulls"}, nil)
		return nil
	}

	selectLeft := prefixAll("left_", names)
	selectRight := prefixAll("right_", names)

	merged, err := v.before.Join(v.after, v.primaryKey, "left_", "right_")
	if err != nil {
		return err
	}
	if merged, err = merged.WithNullCount("leftNulls", selectLeft); err != nil {
		return err
	}
	if merged, err = merged.WithNullCount("rightNulls", selectRight); err != nil {
		return err
	}
	if merged, err = merged.WhereNotEqual("leftNulls", "rightNulls"); err != nil {
		return err
	}

	projection := append([]string{v.primaryKey}, selectLeft...)
	projection = append(projection, selectRight...)
	projection = append(projection, "leftNulls", "rightNulls")
	if v.badRows, err = merged.Select(projection...); err != nil {
		return err
	}
	return nil
}

// DivergentColumns returns the per-column null-count deltas, canonical
// column order, non-zero deltas only.
func (v *Validator) DivergentColumns() []model.ColumnNullDelta {
	return append([]model.ColumnNullDelta(nil), v.differing...)
}

// DivergentColumnNames returns just the names from DivergentColumns.
func (v *Validator) DivergentColumnNames() []string {
	names := make([]string, 0, len(v.differing))
	for _, d := range v.differing {
		names = append(names, d.ColumnName)
	}
	return names
}

// BadRowCount returns the number of rows whose null profile changed.
func (v *Validator) BadRowCount() int64 {
	return v.badRowTotal
}

// BadColumnCount returns the number of divergent columns.
func (v *Validator) BadColumnCount() int {
	return len(v.differing)
}

// OriginalRowCount returns the row count of the before snapshot.
func (v *Validator) OriginalRowCount() int64 {
	return v.beforeRowTotal
}

// OriginalColumnCount returns the column count of the before snapshot.
func (v *Validator) OriginalColumnCount() int {
	return len(v.columnNames)
}

// BadRowComparison exposes the joined bad-row dataset: key, side-prefixed
// divergent columns, leftNulls, rightNulls.
func (v *Validator) BadRowComparison() dataset.Dataset {
	return v.badRows
}

// OriginalProblemRows returns the offending rows as they were before
// conversion. fullRow keeps every column; otherwise only the key and the
// divergent columns survive.
func (v *Validator) OriginalProblemRows(fullRow bool) (dataset.Dataset, error) {
	return v.problemRows(v.before, fullRow)
}

// ConvertedProblemRows returns the offending rows in their converted form.
func (v *Validator) ConvertedProblemRows(fullRow bool) (dataset.Dataset, error) {
	return v.problemRows(v.after, fullRow)
}

func (v *Validator) problemRows(src dataset.Dataset, fullRow bool) (dataset.Dataset, error) {
	keys, err := v.badRowKeys()
	if err != nil {
		return nil, err
	}
	filtered, err := src.WhereIn(v.primaryKey, keys)
	if err != nil {
		return nil, err
	}
	if fullRow {
		return filtered, nil
	}
	return filtered.Select(append([]string{v.primaryKey}, v.DivergentColumnNames()...)...)
}

// badRowKeys pulls the primary key values of the bad rows into local memory.
// The problem set is assumed small relative to the whole dataset; a huge one
// makes this list large.
func (v *Validator) badRowKeys() ([]any, error) {
	projected, err := v.badRows.Select(v.primaryKey)
	if err != nil {
		return nil, err
	}
	rows, err := projected.Collect()
	if err != nil {
		return nil, err
	}
	keys := make([]any, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r[v.primaryKey])
	}
	return keys, nil
}

// Summary prints the shape of the original data, the shape of the problem
// set, and the per-column null deltas to stdout.
func (v *Validator) Summary() {
	v.WriteSummary(os.Stdout)
}

// WriteSummary writes the summary in its fixed layout:
//
//	---------------
//	Original Shape:
//	    rows    - 469221
//	    columns - 582
//	Problem Shape:
//	    rows    - 1
//	    columns - 3
//	Details:
//	    ['ImproperDate (1)', 'ImproperTimestamp (1)', 'BadUpdateTime (1)']
//	---------------
func (v *Validator) WriteSummary(w io.Writer) {
	details := make([]string, 0, len(v.differing))
	for _, d := range v.differing {
		details = append(details, fmt.Sprintf("'%s (%d)'", d.ColumnName, d.Difference))
	}
	fmt.Fprintf(w, `---------------
Original Shape:
    rows    - %d
    columns - %d
Problem Shape:
    rows    - %d
    columns - %d
Details:
    [%s]
---------------
`, v.beforeRowTotal, len(v.columnNames), v.badRowTotal, v.BadColumnCount(), strings.Join(details, ", "))
}

func prefixAll(prefix string, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, prefix+n)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
