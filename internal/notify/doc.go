// Package notify delivers text alerts to a third-party service.
//
// Delivery is best-effort and at-most-once: the Dispatcher queues messages
// for a small worker pool, a full queue drops the message, and a failed send
// is logged and forgotten. Callers never see delivery errors.
package notify
