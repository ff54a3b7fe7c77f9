package enum

// SyncStatus is the terminal-side reconciliation state of a receipt.
// The backend never persists these values.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// QueueStatus is the lifecycle state of a sync queue record.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "PENDING"
	QueueStatusProcessing QueueStatus = "PROCESSING"
	QueueStatusFailed     QueueStatus = "FAILED"
)

// SyncEventType labels audit trail rows written by the backend.
type SyncEventType string

const (
	SyncEventReceiptCreated  SyncEventType = "RECEIPT_CREATED"
	SyncEventReceiptVoided   SyncEventType = "RECEIPT_VOIDED"
	SyncEventReceiptRefunded SyncEventType = "RECEIPT_REFUNDED"
)
