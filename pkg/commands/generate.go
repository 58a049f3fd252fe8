// Package commands provides public access to clientgen commands for embedding in other CLIs.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/pixie-sh/clientgen-cli/internal/cli/clientgen/generate_cmd"
)

// GenerateCmd returns the generate command for embedding.
// It generates a statically typed API client from an OpenAPI 3.x document.
func GenerateCmd() *cobra.Command {
	return generate_cmd.GenerateCmd()
}
