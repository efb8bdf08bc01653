package eventbus

// Event types published by ridebot components.
const (
	TypeRegistryAdded   = "registry.added"
	TypeRegistryRemoved = "registry.removed"

	TypeOrderSubmitted = "order.submitted"
	TypeOrderCancelled = "order.cancelled"
	TypeDispatchReport = "dispatch.report"

	TypeSessionEvicted = "session.evicted"

	TypeNotifySent   = "notify.sent"
	TypeNotifyFailed = "notify.failed"
)

// RegistryChange is the payload of registry.* events.
type RegistryChange struct {
	ID    int64 `json:"id"`
	Total int   `json:"total"`
}
