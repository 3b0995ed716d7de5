package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// PaymentOrderStatus is what the order service asks the payment service to do.
type PaymentOrderStatus string

const (
	PaymentOrderStatusPending   PaymentOrderStatus = "PENDING"
	PaymentOrderStatusCancelled PaymentOrderStatus = "CANCELLED"
)

type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"
	TransactionCredit TransactionType = "CREDIT"
)

type Payment struct {
	PaymentUUID  uuid.UUID       `db:"uuid"`
	OrderUUID    uuid.UUID       `db:"order_uuid"`
	CustomerUUID uuid.UUID       `db:"customer_uuid"`
	Price        decimal.Decimal `db:"price"`
	Status       PaymentStatus   `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
}

type CreditEntry struct {
	CreditEntryUUID   uuid.UUID       `db:"uuid"`
	CustomerUUID      uuid.UUID       `db:"customer_uuid"`
	TotalCreditAmount decimal.Decimal `db:"total_credit_amount"`
}

type CreditHistory struct {
	CreditHistoryUUID uuid.UUID       `db:"uuid"`
	CustomerUUID      uuid.UUID       `db:"customer_uuid"`
	Amount            decimal.Decimal `db:"amount"`
	Type              TransactionType `db:"type"`
}

// InitiatePayment debits the credit entry and returns the new history record.
// Failure messages are business outcomes, the payment is marked FAILED and no credit is touched.
func InitiatePayment(
	payment *Payment,
	entry *CreditEntry,
	histories []CreditHistory,
	now time.Time,
) (*CreditHistory, []string) {
	var failureMessages []string

	payment.CreatedAt = now
	if payment.PaymentUUID == uuid.Nil {
		payment.PaymentUUID = uuid.New()
	}

	if !payment.Price.IsPositive() {
		failureMessages = append(failureMessages, "Total price must be greater than zero!")
	}

	if payment.Price.GreaterThan(entry.TotalCreditAmount) {
		failureMessages = append(failureMessages,
			fmt.Sprintf("Customer with id=%s doesn't have enough credit for payment!", payment.CustomerUUID))
	}

	if len(failureMessages) > 0 {
		payment.Status = PaymentStatusFailed
		return nil, failureMessages
	}

	debited := CreditEntry{
		CreditEntryUUID:   entry.CreditEntryUUID,
		CustomerUUID:      entry.CustomerUUID,
		TotalCreditAmount: entry.TotalCreditAmount.Sub(payment.Price),
	}
	history := newCreditHistory(payment, TransactionDebit)

	failureMessages = validateCreditHistory(&debited, withHistory(histories, history), payment.CustomerUUID)
	if len(failureMessages) > 0 {
		payment.Status = PaymentStatusFailed
		return nil, failureMessages
	}

	*entry = debited
	payment.Status = PaymentStatusCompleted

	return history, nil
}

// CancelPayment returns the payment amount to the customer's credit.
func CancelPayment(
	payment *Payment,
	entry *CreditEntry,
	histories []CreditHistory,
) (*CreditHistory, []string) {
	if !payment.Price.IsPositive() {
		payment.Status = PaymentStatusFailed
		return nil, []string{"Total price must be greater than zero!"}
	}

	credited := CreditEntry{
		CreditEntryUUID:   entry.CreditEntryUUID,
		CustomerUUID:      entry.CustomerUUID,
		TotalCreditAmount: entry.TotalCreditAmount.Add(payment.Price),
	}
	history := newCreditHistory(payment, TransactionCredit)

	if failureMessages := validateCreditHistory(&credited, withHistory(histories, history), payment.CustomerUUID); len(failureMessages) > 0 {
		payment.Status = PaymentStatusFailed
		return nil, failureMessages
	}

	*entry = credited
	payment.Status = PaymentStatusCancelled

	return history, nil
}

func newCreditHistory(payment *Payment, txType TransactionType) *CreditHistory {
	return &CreditHistory{
		CreditHistoryUUID: uuid.New(),
		CustomerUUID:      payment.CustomerUUID,
		Amount:            payment.Price,
		Type:              txType,
	}
}

func withHistory(histories []CreditHistory, h *CreditHistory) []CreditHistory {
	out := make([]CreditHistory, 0, len(histories)+1)
	out = append(out, histories...)

	return append(out, *h)
}

func validateCreditHistory(entry *CreditEntry, histories []CreditHistory, customerUUID uuid.UUID) []string {
	totalCredit, totalDebit := decimal.Zero, decimal.Zero
	for _, h := range histories {
		switch h.Type {
		case TransactionCredit:
			totalCredit = totalCredit.Add(h.Amount)
		case TransactionDebit:
			totalDebit = totalDebit.Add(h.Amount)
		}
	}

	var failureMessages []string
	if totalDebit.GreaterThan(totalCredit) {
		failureMessages = append(failureMessages,
			fmt.Sprintf("Customer with id=%s doesn't have enough credit according to credit history", customerUUID))
	}

	if !entry.TotalCreditAmount.Equal(totalCredit.Sub(totalDebit)) {
		failureMessages = append(failureMessages,
			fmt.Sprintf("Credit history total is not equal to current credit for customer id: %s!", customerUUID))
	}

	return failureMessages
}
