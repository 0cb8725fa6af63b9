package storage

import (
	"context"
	"errors"

	"github.com/krazyTry/cpamm-go/amm"
)

// Multi fans every batch out to each sink and joins their errors.
type Multi []amm.EventSink

func (m Multi) PutEvents(ctx context.Context, events []amm.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutEvents(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
