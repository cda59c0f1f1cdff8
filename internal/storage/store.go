package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/openshop/appointment-intake/internal/model"
)

// ErrIDExists is reported by PutIfIDAbsent when a record with the same id is
// already present.
var ErrIDExists = errors.New("appointment id already exists")

// Store is the appointment store consumed by the intake handler: an
// exact-match lookup on the derived locationTimeKey plus a put that is
// conditional on the record id being absent.
//
// The conditional put guards against a double write of the same generated id
// only. Slot uniqueness is enforced cooperatively by the caller's pre-write
// query; two writers that both pass the query before either put completes can
// both succeed, so a narrow duplicate-booking window remains on every backend.
type Store interface {
	QueryByLocationTimeKey(ctx context.Context, key string) ([]model.Appointment, error)
	PutIfIDAbsent(ctx context.Context, appt model.Appointment) error
	Ready(ctx context.Context) error
}

// StoreError carries backend diagnostics for failed store operations so the
// HTTP layer can surface them when error detail is enabled.
type StoreError struct {
	Op     string // "query" or "put"
	Code   string
	Table  string
	Params map[string]any
	Err    error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s failed", e.Op)
}

func (e *StoreError) Unwrap() error { return e.Err }

// AsStoreError unpacks a *StoreError from err's chain.
func AsStoreError(err error) (*StoreError, bool) {
	var se *StoreError
	ok := errors.As(err, &se)
	return se, ok
}

func IsIDExists(err error) bool {
	return errors.Is(err, ErrIDExists)
}

func queryError(table, key string, code string, err error) error {
	return &StoreError{
		Op:     "query",
		Code:   code,
		Table:  table,
		Params: map[string]any{"locationTimeKey": key},
		Err:    err,
	}
}

func putError(table, id string, code string, err error) error {
	return &StoreError{
		Op:     "put",
		Code:   code,
		Table:  table,
		Params: map[string]any{"id": id},
		Err:    err,
	}
}
