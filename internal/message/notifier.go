package message

// Event kinds emitted to the realtime notifier
const (
	EventNewMessage  = "new-message"
	EventReadReceipt = "read-receipt"
)

// Notifier pushes events to a user's live connections. Delivery is
// best-effort: implementations must never block and their failures never
// roll back the mutation that produced the event.
type Notifier interface {
	Deliver(userID int64, event string, payload interface{})
}
