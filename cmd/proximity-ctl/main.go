// Command proximity-ctl queries and toggles a running proximity-server.
package main

import "github.com/oshokin/proximity-alarm/cmd/proximity-ctl/cmd"

func main() {
	cmd.Execute()
}
