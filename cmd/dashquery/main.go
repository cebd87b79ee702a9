// Command dashquery runs time-series dashboard queries from the command line.
package main

import (
	"os"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
