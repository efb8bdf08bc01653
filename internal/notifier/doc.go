// Package notifier delivers operator notifications.
//
// Notifications are short, high-signal messages for the operator: orders
// that reached no fulfiller, partial delivery failures, registry changes.
// They go through an async pipeline (queue, worker pool, rate limit,
// optional retry, dedup window) so a slow or failing operator chat never
// stalls the requester dialogue.
//
// # Operator chat
//
// The target chat comes from config (telegram.operator_chat_id) or is
// learned at runtime through SetOperatorChat when an authorized operator
// first issues a command. Until one is known, NotifyOperator returns
// ErrNoOperator and callers log the miss.
package notifier
