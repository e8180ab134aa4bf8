package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/types"
	"github.com/jonathan/kb-refresh/internal/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Advance or report the restaurant onboarding workflow",
}

var workflowStepCmd = &cobra.Command{
	Use:   "step",
	Short: "Run the current restaurant's next automatic step",
	Long: `Runs one step per invocation for state.current.slug. The kb_desktop step copies the KB files
into the upload directory and advances to retell_agent; interactive steps are reported
unchanged. Prints {ok, slug, step, did, next} or {ok:false, error}.`,
	RunE: runWorkflowStep,
}

var workflowStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-line workflow reminder",
	RunE:  runWorkflowStatus,
}

func init() {
	workflowCmd.AddCommand(workflowStepCmd)
	workflowCmd.AddCommand(workflowStatusCmd)
	rootCmd.AddCommand(workflowCmd)
}

func runWorkflowStep(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fail("", "config", err)
	}
	st, err := workflow.Load(cfg.WorkflowStatePath)
	if err != nil {
		return emitFailure(workflow.StepResult{Error: err.Error()})
	}

	res := workflow.Step(st, cfg.WorkRoot, cfg.UploadRoot)
	if !res.OK {
		return emitFailure(res)
	}
	if res.Changed() {
		if err := workflow.Save(cfg.WorkflowStatePath, st, time.Now()); err != nil {
			return fail(res.Slug, res.Step, err)
		}
	}
	return emitResult(res)
}

type reminderResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func runWorkflowStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return emitFailure(reminderResult{Message: types.Summarize(err)})
	}
	st, err := workflow.Load(cfg.WorkflowStatePath)
	if err != nil {
		if errors.Is(err, workflow.ErrNoState) {
			return emitResult(reminderResult{OK: true, Message: workflow.Reminder(nil, time.Now())})
		}
		return emitFailure(reminderResult{Message: "Restaurant workflow: state unreadable: " + err.Error()})
	}
	return emitResult(reminderResult{OK: true, Message: workflow.Reminder(st, time.Now())})
}
