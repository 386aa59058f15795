// Package main provides the entry point for the vaultmcp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/noteworks/vaultmcp/cmd/vaultmcp/cmd"
	vaulterrors "github.com/noteworks/vaultmcp/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, vaulterrors.FormatForCLI(err))
		os.Exit(1)
	}
}
