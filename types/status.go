package types

// TransactionStatus is the lifecycle state of a tracked transaction
type TransactionStatus string

const (
	// StatusPending represents a tx that has been submitted (or an order that has been placed) and is not finalized yet
	StatusPending TransactionStatus = "pending"
	// StatusSuccess represents a tx that has been mined successfully
	StatusSuccess TransactionStatus = "success"
	// StatusFailed represents a tx that has been mined but reverted, or that failed to broadcast
	StatusFailed TransactionStatus = "failed"
	// StatusCancelled represents a tx whose cancellation attempt landed on chain
	StatusCancelled TransactionStatus = "cancelled"
	// StatusCancelling represents a tx with an in-flight cancellation attempt
	StatusCancelling TransactionStatus = "cancelling"
	// StatusUnknown represents a stale placeholder whose real outcome could not be determined
	StatusUnknown TransactionStatus = "unknown"
)

// IsFinal returns true if the status is terminal and the tx must not be watched anymore
func (s TransactionStatus) IsFinal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusUnknown:
		return true
	}
	return false
}

// QueueStatus is the secondary state machine for orders queued behind an approval or wrap step.
// These represent pre-submission failures and are surfaced as errored queued orders, distinct
// from on-chain pending.
type QueueStatus string

const (
	// QueueStatusWaiting represents an order still waiting for its prerequisite step
	QueueStatusWaiting QueueStatus = "waiting"
	// QueueStatusAppClosed represents an order whose prerequisite never completed because the app was closed
	QueueStatusAppClosed QueueStatus = "app_closed"
	// QueueStatusApprovalFailed represents an order whose prerequisite approval tx failed
	QueueStatusApprovalFailed QueueStatus = "approval_failed"
	// QueueStatusWrapFailed represents an order whose prerequisite wrap tx failed
	QueueStatusWrapFailed QueueStatus = "wrap_failed"
	// QueueStatusSubmissionFailed represents an order that could not be submitted to the order book
	QueueStatusSubmissionFailed QueueStatus = "submission_failed"
	// QueueStatusStale represents an order that expired while queued
	QueueStatusStale QueueStatus = "stale"
)

// IsErrored returns true for queue statuses that represent a pre-submission failure
func (q QueueStatus) IsErrored() bool {
	switch q {
	case QueueStatusAppClosed, QueueStatusApprovalFailed, QueueStatusWrapFailed, QueueStatusSubmissionFailed, QueueStatusStale:
		return true
	}
	return false
}
