// Command proximity-server runs the proximity alarm controller.
package main

import "github.com/oshokin/proximity-alarm/cmd/proximity-server/cmd"

func main() {
	cmd.Execute()
}
