package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsFatal(t *testing.T) {
	tCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transition_miss", err: fmt.Errorf("saga.Decide: %w", ErrSagaTransition), want: true},
		{name: "payment_not_found", err: fmt.Errorf("op: %w", ErrPaymentNotFound), want: true},
		{name: "invalid_message", err: ErrInvalidMessage, want: true},
		{name: "stale", err: ErrOutboxStale, want: false},
		{name: "duplicate", err: ErrSagaDuplicate, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
		{name: "plain", err: errors.New("connection reset"), want: false},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			require.Equal(t, tCase.want, IsFatal(tCase.err))
		})
	}
}
