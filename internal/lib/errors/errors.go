package errors

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderDomain         = errors.New("order is not valid")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrCreditEntryNotFound = errors.New("credit entry not found")
	ErrCreditHistoryEmpty  = errors.New("credit history not found")
	ErrRestaurantNotFound  = errors.New("restaurant not found")

	ErrOutboxNotFound          = errors.New("outbox message not found")
	ErrOutboxStale             = errors.New("outbox message was updated by another worker")
	ErrOutboxInvalidTransition = errors.New("outbox status transition is not allowed")

	ErrSagaTransition = errors.New("saga transition is not defined")
	ErrSagaDuplicate  = errors.New("saga event was already handled")

	ErrInvalidMessage   = errors.New("invalid message")
	ErrPublishPermanent = errors.New("message cannot be published")
)

var fatal = []error{
	ErrOrderNotFound,
	ErrOrderDomain,
	ErrPaymentNotFound,
	ErrCreditEntryNotFound,
	ErrCreditHistoryEmpty,
	ErrRestaurantNotFound,
	ErrOutboxNotFound,
	ErrSagaTransition,
	ErrInvalidMessage,
}

// IsFatal reports whether redelivering the message that caused err can never succeed.
func IsFatal(err error) bool {
	for _, target := range fatal {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
