// Command agentlink runs a headless agent turn: it binds a conversation,
// submits a prompt, prints the normalized event stream, and answers
// approval requests by policy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codedesk/agentlink/config"
	"github.com/codedesk/agentlink/driver"
	"github.com/codedesk/agentlink/event"
	"github.com/codedesk/agentlink/state"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agentlink",
		Short: "Drive an AI coding-agent CLI and normalize its event stream",
	}

	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type runFlags struct {
	configPath string
	model      string
	effort     string
	workspaces []string
	approve    bool
	showDeltas bool
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] <prompt>",
		Short: "Run one turn and print the event stream",
		Example: `  agentlink run "Summarize this repository"
  agentlink run --model claude-opus-4-6 --effort high --approve "Fix the failing test"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTurn(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "agentlink.yaml", "Path to the config file")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model override")
	cmd.Flags().StringVar(&flags.effort, "effort", "", "Reasoning-effort override")
	cmd.Flags().StringSliceVar(&flags.workspaces, "workspace", nil, "Workspace roots (first is the working directory)")
	cmd.Flags().BoolVar(&flags.approve, "approve", false, "Auto-approve tool requests (denies otherwise)")
	cmd.Flags().BoolVar(&flags.showDeltas, "deltas", false, "Print every text delta instead of the final text")

	return cmd
}

func runTurn(ctx context.Context, prompt string, flags *runFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	model := cfg.Model
	if flags.model != "" {
		model = flags.model
	}
	effort := cfg.Effort
	if flags.effort != "" {
		effort = flags.effort
	}
	roots := flags.workspaces
	if len(roots) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		roots = []string{wd}
	}

	registry := driver.NewRegistry(cfg.Options()...)
	defer registry.Close()

	client := registry.Bind(driver.BindCriteria{
		ConversationID: "cli",
		Model:          model,
		Effort:         effort,
		WorkspaceRoots: roots,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		client.Abort()
	}()

	if _, err := client.Send(ctx, prompt); err != nil {
		return err
	}

	session := state.New("cli", model, effort, roots)
	for ev := range client.Events() {
		session = state.Reduce(session, ev)
		printEvent(ev, flags)
		respondByPolicy(client, ev, flags.approve)

		switch ev.EventKind() {
		case event.KindDone:
			fmt.Printf("\ncost: $%.4f  context: %d%%\n", session.AccumulatedCostUSD, session.ContextUsage.Percent())
			return nil
		case event.KindFailed:
			return fmt.Errorf("turn failed: %s", ev.(event.Failed).Message)
		case event.KindAborted:
			fmt.Println("aborted")
			return nil
		}
	}
	return nil
}

func printEvent(ev event.Event, flags *runFlags) {
	switch e := ev.(type) {
	case event.SessionInfo:
		fmt.Printf("session %s (model %s)\n", e.SessionID, e.Model)
	case event.Delta:
		if flags.showDeltas {
			fmt.Print(e.Text)
		}
	case event.ToolUse:
		fmt.Printf("tool  %s %s\n", e.Name, e.ToolUseID)
	case event.ToolResult:
		status := "ok"
		if e.IsError {
			status = "error"
		}
		fmt.Printf("tool  %s -> %s\n", e.ToolUseID, status)
	case event.ApprovalRequest:
		fmt.Printf("approval requested for %s\n", e.ToolName)
	case event.SubagentStarted:
		fmt.Printf("subagent %s: %s\n", e.TaskID, e.Description)
	case event.SubagentDone:
		fmt.Printf("subagent %s: %s\n", e.TaskID, e.Outcome)
	case event.LimitHint:
		fmt.Printf("limit: %s\n", e.Message)
	case event.AuthExpired:
		fmt.Printf("auth expired: %s\n", e.Message)
	case event.Done:
		if !flags.showDeltas {
			fmt.Println(e.FullText)
		} else {
			fmt.Println()
		}
	}
}

// respondByPolicy answers approvals so a headless run never stalls until
// the gate times out.
func respondByPolicy(client *driver.Client, ev event.Event, approve bool) {
	switch e := ev.(type) {
	case event.ApprovalRequest:
		client.RespondToApproval(e.ApprovalID, driver.Decision{
			Allow:   approve,
			Message: "denied by policy",
		})
	case event.AskUser:
		// Headless runs cannot answer questions; deny so the agent moves on.
		client.RespondToApproval(e.ApprovalID, driver.Decision{
			Message: "no interactive user available",
		})
	}
}
