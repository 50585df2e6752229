// Command sqltyper infers the types of SQL functions and queries.
package main

import (
	"os"

	"github.com/leapstack-labs/sqltyper/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
