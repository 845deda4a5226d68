package model

import "time"

// RunState tracks the lifecycle of one analysis run.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateAborted   RunState = "aborted"
)

// InstrumentError records a per-instrument failure inside an otherwise
// continuing run.
type InstrumentError struct {
	Ticker string `json:"ticker"`
	Err    string `json:"error"`
}

// RunStats summarizes one pipeline invocation. It is reported to the caller
// and then discarded; nothing incremental survives between runs.
type RunStats struct {
	Total       int               `json:"total"`
	Successful  int               `json:"successful"`
	Failed      int               `json:"failed"`
	TotalTokens int               `json:"total_tokens"`
	Errors      []InstrumentError `json:"errors,omitempty"` // capped example list
	Elapsed     time.Duration     `json:"elapsed"`
	State       RunState          `json:"state"`
}
