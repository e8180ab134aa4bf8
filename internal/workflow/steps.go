package workflow

import "fmt"

// Workflow step names, in order.
const (
	StepKBUpload    = "kb_desktop"
	StepRetellAgent = "retell_agent"
	StepMoveoDoc    = "moveo_doc"
	StepDone        = "done"
)

// StepDefinition defines metadata for a workflow step
type StepDefinition struct {
	Name string
	// Next is the step that follows; empty for the terminal step.
	Next string
	// Interactive steps are completed by a person and are never executed here.
	Interactive bool
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	StepKBUpload: {
		Name: StepKBUpload,
		Next: StepRetellAgent,
	},
	StepRetellAgent: {
		Name:        StepRetellAgent,
		Next:        StepMoveoDoc,
		Interactive: true,
	},
	StepMoveoDoc: {
		Name:        StepMoveoDoc,
		Next:        StepDone,
		Interactive: true,
	},
	StepDone: {
		Name:        StepDone,
		Interactive: true,
	},
}

// UnknownStepError is returned for a step name missing from the registry
type UnknownStepError struct {
	Step string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step: %s", e.Step)
}

// Lookup returns the definition of step.
func Lookup(step string) (StepDefinition, error) {
	def, ok := StepRegistry[step]
	if !ok {
		return StepDefinition{}, &UnknownStepError{Step: step}
	}
	return def, nil
}

// Order returns the step names from the first step to done.
func Order() []string {
	order := []string{}
	for step := StepKBUpload; step != ""; step = StepRegistry[step].Next {
		order = append(order, step)
	}
	return order
}
