// Command radixrunner runs a computation module against a shared counter
// region and monitors its tick rate.
package main

import (
	"github.com/Hyphaeic/radixrunner-wasm/radixrunner/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	atexit.Exit(cmd.Execute())
}
