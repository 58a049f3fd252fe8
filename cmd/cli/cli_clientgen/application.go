package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixie-sh/clientgen-cli/internal/cli/clientgen/generate_cmd"
	"github.com/pixie-sh/clientgen-cli/internal/generator"
	"github.com/pixie-sh/clientgen-cli/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "clientgen",
		Short:   "Clientgen - OpenAPI Typed Client Generator",
		Long:    "Clientgen generates statically typed API clients from OpenAPI 3.x documents.",
		Version: version.Info(),
	}

	// Custom version template
	rootCmd.SetVersionTemplate("clientgen version {{.Version}}\n")

	// Register commands
	rootCmd.AddCommand(generate_cmd.GenerateCmd())

	// Add version command for explicit version info
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("clientgen version %s\n", version.Info())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(generator.ExitCode(err))
	}
}
