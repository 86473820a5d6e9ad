// Package alarm contains the core domain types of the proximity alarm.
//
// It defines Reading (a distance sample), Event (an alarm audit record),
// Presence (the device connectivity singleton) and the decision values the
// controller and the presence tracker report, together with the sentinel
// errors shared by every layer.
package alarm
