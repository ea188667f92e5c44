package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailtable application
var rootCmd = &cobra.Command{
	Use:   "mailtable",
	Short: "Forwards mail messages into an Airtable-style record backend",
	Long: `mailtable turns mail messages into records. It reads a message from
your mailbox, extracts and titles its links, delivers its attachments
to file hosting and creates a task, doc or note record in the
configured record backend.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - A standalone CLI tool (forward command)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailtable version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newForwardCmd())
	rootCmd.AddCommand(newAuthorizeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
