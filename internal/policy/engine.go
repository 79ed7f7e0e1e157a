package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Actions returned by the tool policy.
const (
	ActionAllow = "allow"
	ActionBlock = "block"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Action string
	Reason string
}

// Allowed reports whether the tool call may run.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// Input is what the policy sees for one tool invocation.
type Input struct {
	ToolName string                 `json:"tool_name"`
	CallSID  string                 `json:"call_sid"`
	Args     map[string]interface{} `json:"args"`
	Exposed  []string               `json:"exposed"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.voice_tool_policy.decision"),
		rego.Module("voice_tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks whether a tool invocation may run. The policy must
// produce an object {"action": ..., "reason": ...}.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	if input.Args == nil {
		input.Args = map[string]interface{}{}
	}
	if input.Exposed == nil {
		input.Exposed = []string{}
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: ActionBlock, Reason: "policy produced no decision"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	action, _ := obj["action"].(string)
	reason, _ := obj["reason"].(string)
	switch action {
	case ActionAllow, ActionBlock:
		return Decision{Action: action, Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("unexpected policy action %q", action)
	}
}

// DefaultPolicy only allows tools that were exposed to the agent for the call.
const DefaultPolicy = `
package voice_tool_policy

default decision = {"action": "block", "reason": "tool is not exposed to the agent"}

decision = {"action": "allow", "reason": "exposed"} {
	input.exposed[_] == input.tool_name
}
`
