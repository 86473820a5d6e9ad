// Package broker connects the server to the MQTT broker.
//
// Client owns the paho connection: it subscribes the inbound topics on every
// (re)connect and pushes received messages into one buffered channel.
// Router drains that channel in a single goroutine and dispatches each
// message by topic, so handlers run strictly one at a time in arrival order.
package broker
