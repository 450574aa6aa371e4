package dre

import (
	"context"
	"errors"
	"fmt"
)

// DataAccessError reports a failed read against the store. It aborts the
// whole report.
type DataAccessError struct {
	Op  string // e.g. "account", "components", "ledger entries"
	ID  string
	Err error
}

func (e *DataAccessError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("reading %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("reading %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// dataErr wraps a store failure. Context errors pass through untouched so
// callers can tell an abandoned report from a broken store.
func dataErr(op, id string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &DataAccessError{Op: op, ID: id, Err: err}
}

// WarningKind classifies a configuration problem found while evaluating.
type WarningKind string

const (
	WarningCycle    WarningKind = "cycle"
	WarningOperator WarningKind = "operator"
	WarningSource   WarningKind = "source"
)

// Warning is a non-fatal configuration problem. The affected node was
// valued as zero.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Node    string      `json:"node"`
	Period  string      `json:"period"`
	Path    []string    `json:"path,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s %s]: %s", w.Kind, w.Node, w.Period, w.Message)
}
