// The main package for the ingest executable.
package main

import (
	"github.com/JakeFAU/growth-metrics-ingestion/cmd"
)

func main() {
	cmd.Execute()
}
