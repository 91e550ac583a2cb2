package model

import "time"

// RunStatus represents the state of a recorded run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// LayerKind tells cleanup whether a workspace layer is an intermediate or a kept output.
type LayerKind string

const (
	LayerTemp LayerKind = "temp"
	LayerKept LayerKind = "kept"
)

// Layer is a workspace layer created by a run.
type Layer struct {
	Name string    `json:"name"`
	Kind LayerKind `json:"kind"`
}

// Run is a recorded pipeline execution.
type Run struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Country       string    `json:"country"`
	Method        Method    `json:"method"`
	Status        RunStatus `json:"status"`
	NationalTotal float64   `json:"national_total"`
	Coverage      float64   `json:"coverage"`
	Result        *Result   `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
