package saga

import "github.com/tumbleweedd/food_ordering_system/internal/domain/models"

var (
	none         = State{}
	pending      = State{Order: models.OrderStatusPending, Saga: models.SagaStatusStarted}
	paid         = State{Order: models.OrderStatusPaid, Saga: models.SagaStatusProcessing}
	approved     = State{Order: models.OrderStatusApproved, Saga: models.SagaStatusSucceeded}
	cancelling   = State{Order: models.OrderStatusCancelling, Saga: models.SagaStatusCompensating}
	cancelled    = State{Order: models.OrderStatusCancelled, Saga: models.SagaStatusCompensated}
	cancelFailed = State{Order: models.OrderStatusCancelling, Saga: models.SagaStatusFailed}
)

// Payment is the order <-> payment leg.
var Payment = &Machine{
	name: "payment",
	table: []transition{
		{from: none, event: EventOrderCreated, to: pending, outbound: OutboundPaymentRequest},
		{from: pending, event: EventPaymentCompleted, to: paid},
		{from: pending, event: EventPaymentFailed, to: cancelling},
		{from: pending, event: EventPaymentCancelled, to: cancelling},
		{from: cancelling, event: EventCompensationSettled, to: cancelled},
		{from: paid, event: EventOrderApproved, to: approved},
		{from: paid, event: EventOrderRejected, to: cancelling, outbound: OutboundPaymentCancelRequest},
		{from: cancelling, event: EventPaymentCancelled, to: cancelled},
		{from: cancelling, event: EventPaymentFailed, to: cancelFailed},
	},
}

// Approval is the order <-> restaurant leg. It starts once the order is paid.
var Approval = &Machine{
	name: "approval",
	table: []transition{
		{
			from:     State{Order: models.OrderStatusPaid, Saga: StatusNone},
			event:    EventOrderPaid,
			to:       paid,
			outbound: OutboundApprovalRequest,
		},
		{from: paid, event: EventOrderApproved, to: approved},
		{from: paid, event: EventOrderRejected, to: cancelling},
		{from: cancelling, event: EventPaymentCancelled, to: cancelled},
		{from: cancelling, event: EventPaymentFailed, to: cancelFailed},
	},
}
