package models

type SagaStatus string

const (
	SagaStatusStarted      SagaStatus = "STARTED"
	SagaStatusProcessing   SagaStatus = "PROCESSING"
	SagaStatusSucceeded    SagaStatus = "SUCCEEDED"
	SagaStatusCompensating SagaStatus = "COMPENSATING"
	SagaStatusCompensated  SagaStatus = "COMPENSATED"
	SagaStatusFailed       SagaStatus = "FAILED"
)

func (s SagaStatus) IsTerminal() bool {
	switch s {
	case SagaStatusSucceeded, SagaStatusCompensated, SagaStatusFailed:
		return true
	}

	return false
}
