package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"salesagent/internal/cli"
	"salesagent/internal/conversation"
	"salesagent/internal/mcp"
	"salesagent/internal/tool/sales"
	"salesagent/internal/web"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rt, err := a.runtime(ctx)
	if err != nil {
		return err
	}

	ctrl := conversation.New(rt, a.cfg.Agent.TerminalUser, conversation.Options{
		Timeout: a.cfg.Agent.QueryTimeout,
		Log:     a.log,
	})

	writer := cli.NewStreamingWriter(os.Stdout)
	color := !noColor && !a.cfg.Log.NoColor && term.IsTerminal(int(os.Stdout.Fd()))
	writer.SetColorMode(color)

	input, err := cli.NewLineReader(os.Stdin, os.Stdout, a.cfg.Terminal.HistoryFile)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}

	repl := cli.NewREPL(ctrl, input, writer, a.log)
	if markdown || a.cfg.Terminal.Markdown {
		renderer, err := cli.NewMarkdownRenderer(color, 100)
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		repl.SetMarkdown(renderer)
	}
	return repl.Run(ctx)
}

func runWeb(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rt, err := a.runtime(ctx)
	if err != nil {
		return err
	}

	srv := web.NewServer(rt, a.cfg.Agent.WebUser, conversation.Options{
		Timeout: a.cfg.Agent.QueryTimeout,
		Log:     a.log,
	}, a.log)
	return srv.ListenAndServe(ctx, a.cfg.Web.Addr)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	// Listing needs no model, so any client will do
	for _, t := range sales.New(nil, 0) {
		fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", t.Name(), t.Description())
	}
	return nil
}

func runToolsInstruction(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(sales.RootInstruction))
	return nil
}

func runToolsRun(cmd *cobra.Command, args []string) error {
	if !json.Valid([]byte(toolArgs)) {
		return fmt.Errorf("--args must be a JSON object")
	}

	ctx := cmd.Context()
	a, err := newToolApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	call, err := a.executor.Run(ctx, args[0], json.RawMessage(toolArgs))
	if err != nil {
		return err
	}
	if !call.Result.Success {
		return fmt.Errorf("%s failed: %s", args[0], call.Result.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), call.Result.Output)
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newToolApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return mcp.NewServer(a.registry, a.executor, a.log).Run(ctx)
}
