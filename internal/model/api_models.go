package model

import (
	"encoding/json"
	"strings"
)

// Side selects which snapshot problem rows are pulled from.
type Side int

const (
	SideOriginal  Side = 0 // the before snapshot
	SideConverted Side = 1 // the after snapshot
)

// UnmarshalJSON accepts numbers (0/1) as well as the common string spellings
// ("original"/"before"/"left" and "converted"/"after"/"right").
func (s *Side) UnmarshalJSON(b []byte) error {
	var num int
	if err := json.Unmarshal(b, &num); err == nil {
		*s = Side(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch strings.TrimSpace(strings.ToLower(str)) {
	case "converted", "after", "right", "1":
		*s = SideConverted
	default:
		*s = SideOriginal
	}
	return nil
}

// ValidateRequest points the service at a before/after pair. BeforePath and
// AfterPath may name the same file when both tables live in one database.
type ValidateRequest struct {
	Driver      string `json:"driver"`       // "sqlite" or "duckdb"
	BeforePath  string `json:"before_path"`  // database file with the pre-conversion table
	AfterPath   string `json:"after_path"`   // database file with the converted table
	BeforeTable string `json:"before_table"` // table name in the before database
	AfterTable  string `json:"after_table"`  // table name in the after database
	PrimaryKey  string `json:"primary_key"`  // column matching rows between the two
}

// ValidateResponse wraps a report in the service envelope.
type ValidateResponse struct {
	StatusCode int               `json:"status_code"`
	StatusMsg  string            `json:"status_msg"`
	Data       *ValidationReport `json:"data"`
}

// ProblemRowsRequest asks for the offending rows themselves.
type ProblemRowsRequest struct {
	ValidateRequest
	Side    Side `json:"side"`     // original or converted snapshot
	FullRow bool `json:"full_row"` // all columns instead of key + divergent columns
	Limit   int  `json:"limit"`    // cap on returned rows, 0 = service default
}

// ProblemRowsResponse wraps a row set in the service envelope.
type ProblemRowsResponse struct {
	StatusCode int            `json:"status_code"`
	StatusMsg  string         `json:"status_msg"`
	Data       *ProblemRowSet `json:"data"`
}
