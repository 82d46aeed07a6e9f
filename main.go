// BikeGuard detects bicycle crashes from accelerometer data and alerts
// emergency contacts.
package main

import (
	"os"

	"github.com/manav03panchal/bikeguard/cmd"
	"github.com/manav03panchal/bikeguard/internal/runtime"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(runtime.ExitCode(err))
	}
}
