package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	noColor    bool

	runtimeName string
	markdown    bool
	webAddr     string
	toolArgs    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "salesagent",
		Short:         "Sales Enablement Agent",
		Long:          "Research leads, refine sales briefs and draft outreach with the sales enablement agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to salesagent.yaml (default: search the usual locations)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", os.Getenv("SALESAGENT_VERBOSE") != "", "Enable verbose output (debug mode)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
	chatCmd.Flags().StringVar(&runtimeName, "runtime", "", "Agent runtime: remote or local (overrides config)")
	chatCmd.Flags().BoolVar(&markdown, "markdown", false, "Render each reply as markdown once it is complete")

	webCmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the browser chat UI",
		Args:  cobra.NoArgs,
		RunE:  runWeb,
	}
	webCmd.Flags().StringVar(&runtimeName, "runtime", "", "Agent runtime: remote or local (overrides config)")
	webCmd.Flags().StringVar(&webAddr, "addr", "", "Listen address (overrides config)")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and run the sales tools directly",
	}
	toolsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the sales tools",
			Args:  cobra.NoArgs,
			RunE:  runToolsList,
		},
		&cobra.Command{
			Use:   "instruction",
			Short: "Print the agent's system instruction",
			Args:  cobra.NoArgs,
			RunE:  runToolsInstruction,
		},
	)
	runCmd := &cobra.Command{
		Use:   "run <tool>",
		Short: "Run one tool with JSON arguments",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsRun,
	}
	runCmd.Flags().StringVar(&toolArgs, "args", "{}", "Tool arguments as a JSON object")
	toolsCmd.AddCommand(runCmd)

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the sales tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}

	rootCmd.AddCommand(chatCmd, webCmd, toolsCmd, mcpCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
