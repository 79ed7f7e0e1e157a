// Package policy evaluates OPA policies that decide whether a tool call
// requested by the agent may run.
package policy
