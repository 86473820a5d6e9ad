// Package client implements the proximity-ctl subcommands.
//
// Each subcommand loads the configuration, connects to the server query API,
// performs one call and prints a short human-readable report.
package client
