// Package alarm holds the alarm controller and the state publisher.
//
// The controller owns the process-wide alarm state: the enabled bit and the
// time of the last breach notification. Neither is persisted; a restart
// starts enabled with a cold cooldown.
package alarm
