package model

// ColumnNullDelta records how many nulls a column gained (or lost) between
// the before and after snapshots. Difference is after minus before.
type ColumnNullDelta struct {
	ColumnName string `json:"column_name"`
	Difference int64  `json:"difference"`
}

// ValidationReport is the shape summary of one comparison run.
type ValidationReport struct {
	OriginalRows    int64             `json:"original_rows"`
	OriginalColumns int               `json:"original_columns"`
	ProblemRows     int64             `json:"problem_rows"`
	ProblemColumns  int               `json:"problem_columns"`
	Differences     []ColumnNullDelta `json:"differences"`
}

// ProblemRowSet carries materialized offending rows for one side of the
// comparison.
type ProblemRowSet struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Total   int64            `json:"total"`
}
