package enum

// ReceiptStatus is the canonical, backend-owned receipt state.
// PendingSync exists only on POS terminals; the backend never stores it.
type ReceiptStatus string

const (
	ReceiptStatusCompleted   ReceiptStatus = "COMPLETED"
	ReceiptStatusVoided      ReceiptStatus = "VOIDED"
	ReceiptStatusRefunded    ReceiptStatus = "REFUNDED"
	ReceiptStatusPendingSync ReceiptStatus = "PENDING_SYNC"
)

// Valid reports whether s is a status the backend accepts on the wire.
func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptStatusCompleted, ReceiptStatusVoided, ReceiptStatusRefunded:
		return true
	}
	return false
}
