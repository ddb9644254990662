package app

import "time"

// Operation tracks one CLI invocation. Its ID tags every log line the
// invocation writes, so a run can be picked out of pxs.log.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	StartedAt  time.Time
	Status     string // "success" or "error"
}

// NewOperation creates an operation that has not failed yet.
func NewOperation(id, name, parameters string, startedAt time.Time) *Operation {
	return &Operation{
		ID:         id,
		Name:       name,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     "success",
	}
}

// Record marks the operation failed when err is non-nil and returns err
// unchanged.
func (op *Operation) Record(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

// Failed returns true once any recorded step has failed.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
