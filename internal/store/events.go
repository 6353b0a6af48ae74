package store

import (
	"context"
	"errors"
)

// MultiEventWriter fans an event out to every writer. All writers are
// attempted even when an earlier one fails.
type MultiEventWriter []EventWriter

func (m MultiEventWriter) AppendEvent(ctx context.Context, ev AttendanceEvent) error {
	var errs []error
	for _, w := range m {
		if err := w.AppendEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
