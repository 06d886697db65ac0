// Command tspgen compiles IDL schema files into API bindings and
// OpenAPI documents.
package main

import (
	"os"

	"github.com/adi-family/lib-typespec-api/cmd/tspgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
