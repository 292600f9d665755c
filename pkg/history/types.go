package history

import "time"

// IndexVersion is the schema version of the index file.
const IndexVersion = "1.0.0"

// IndexFile is the index file name inside the output directory.
const IndexFile = ".matrix-index.json"

// Entry summarizes one stored matrix.
type Entry struct {
	Path                 string    `json:"path"`
	CalculationTimestamp time.Time `json:"calculationTimestamp"`
	ScheduleVersion      string    `json:"scheduleVersion"`
	GrandTotal           int64     `json:"grandTotal"`
	TotalViolations      int       `json:"totalViolations"`
	ValidatedCount       int       `json:"validatedCount"`
	RejectedCount        int       `json:"rejectedCount"`
	Documents            int       `json:"documents"`
	ManualReview         int       `json:"manualReview"`
	MissingMappings      int       `json:"missingMappings"`
}

// Index lists stored matrices, newest first.
type Index struct {
	Entries   []Entry   `json:"entries"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   string    `json:"version"`
}

// Change compares the two most recent runs.
type Change struct {
	Previous        Entry `json:"previous"`
	Current         Entry `json:"current"`
	GrandTotalDelta int64 `json:"grandTotalDelta"`
	ValidatedDelta  int   `json:"validatedDelta"`
	RejectedDelta   int   `json:"rejectedDelta"`
}
