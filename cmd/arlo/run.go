package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"arlo/internal/agent/domain"
	"arlo/internal/agent/ports"
)

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func colorEnabled() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
}

func newRunCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "run [query...]",
		Short: "Run one query through the agent and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(runtimeOptions{
				interactive: true,
				listeners:   []ports.EventListener{&progressPrinter{}},
			})
			if err != nil {
				return err
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			query := strings.Join(args, " ")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			streamed := false
			sink := func(token string) {
				streamed = true
				fmt.Print(token)
			}

			job, err := rt.coordinator.ProcessQuery(ctx, sessionID, query, sink)
			if streamed {
				fmt.Println()
			}
			if err != nil {
				return err
			}
			if !streamed && job.Result != "" {
				fmt.Println(job.Result)
			}
			fmt.Println(gray(fmt.Sprintf("job %s %s (%d steps)", job.ID, job.Status, len(job.Steps))))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to continue a prior conversation")
	return cmd
}

// progressPrinter narrates plan and tool activity on stderr so the
// stdout stream stays clean for the answer itself.
type progressPrinter struct{}

func (p *progressPrinter) OnEvent(event ports.AgentEvent) {
	switch e := event.(type) {
	case *domain.PlanCreatedEvent:
		fmt.Fprintln(os.Stderr, cyan(fmt.Sprintf("plan: %d tasks", len(e.Plan.Tasks))))
	case *domain.TaskStartEvent:
		fmt.Fprintln(os.Stderr, bold(cyan(fmt.Sprintf("> task %d: %s", e.Index+1, e.Description))))
	case *domain.StepStartedEvent:
		fmt.Fprintln(os.Stderr, yellow(fmt.Sprintf("  %s ...", e.ToolName)))
	case *domain.StepCompletedEvent:
		if e.Status == ports.StepFailed {
			fmt.Fprintln(os.Stderr, red(fmt.Sprintf("  %s failed", e.ToolName)))
		} else {
			fmt.Fprintln(os.Stderr, green(fmt.Sprintf("  %s done", e.ToolName)))
		}
	case *domain.ErrorEvent:
		fmt.Fprintln(os.Stderr, red(e.Message))
	}
}
