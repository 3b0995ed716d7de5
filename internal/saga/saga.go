// Package saga holds the transition tables of the order saga.
//
// A Machine is pure: it maps the current order status, the current saga status of one leg and an
// incoming event to the next statuses and the kind of message the coordinator has to enqueue.
// It performs no I/O.
package saga

import (
	"fmt"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
)

type Event string

const (
	EventOrderCreated        Event = "ORDER_CREATED"
	EventPaymentCompleted    Event = "PAYMENT_COMPLETED"
	EventPaymentFailed       Event = "PAYMENT_FAILED"
	EventPaymentCancelled    Event = "PAYMENT_CANCELLED"
	EventCompensationSettled Event = "COMPENSATION_SETTLED"
	EventOrderPaid           Event = "ORDER_PAID"
	EventOrderApproved       Event = "ORDER_APPROVED"
	EventOrderRejected       Event = "ORDER_REJECTED"
)

type Outbound string

const (
	OutboundNone                 Outbound = ""
	OutboundPaymentRequest       Outbound = "PAYMENT_REQUEST"
	OutboundPaymentCancelRequest Outbound = "PAYMENT_CANCEL_REQUEST"
	OutboundApprovalRequest      Outbound = "RESTAURANT_APPROVAL_REQUEST"
)

// StatusNone is the saga status of a leg that has not started yet.
const StatusNone models.SagaStatus = ""

type State struct {
	Order models.OrderStatus
	Saga  models.SagaStatus
}

type Decision struct {
	State
	Outbound Outbound
}

type DomainError struct {
	Saga   string
	Status models.SagaStatus
	Order  models.OrderStatus
	Event  Event
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s saga: no transition for event %s in saga status %q with order status %q",
		e.Saga, e.Event, e.Status, e.Order)
}

func (e *DomainError) Unwrap() error {
	return internalErrors.ErrSagaTransition
}

type transition struct {
	from     State
	event    Event
	to       State
	outbound Outbound
}

type Machine struct {
	name  string
	table []transition
}

func (m *Machine) Name() string {
	return m.name
}

// Decide returns ErrSagaDuplicate when the leg has already moved past every state that expects
// the event, and a *DomainError when the event is not expected in the current state.
func (m *Machine) Decide(order models.OrderStatus, status models.SagaStatus, event Event) (Decision, error) {
	expectedRank := -1

	for _, t := range m.table {
		if t.event != event {
			continue
		}

		if t.from.Saga == status && t.from.Order == order {
			return Decision{State: t.to, Outbound: t.outbound}, nil
		}

		if r := rank(t.from.Saga); r > expectedRank {
			expectedRank = r
		}
	}

	if expectedRank >= 0 && rank(status) > expectedRank {
		return Decision{}, fmt.Errorf("%s saga: event %s in saga status %s: %w",
			m.name, event, status, internalErrors.ErrSagaDuplicate)
	}

	return Decision{}, &DomainError{Saga: m.name, Status: status, Order: order, Event: event}
}

// rank orders saga statuses as a monotonic step counter.
func rank(status models.SagaStatus) int {
	switch status {
	case StatusNone:
		return 0
	case models.SagaStatusStarted:
		return 1
	case models.SagaStatusProcessing:
		return 2
	case models.SagaStatusCompensating:
		return 3
	default:
		return 4
	}
}
