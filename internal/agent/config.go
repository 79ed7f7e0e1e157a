// Package agent builds the remote speech/LLM agent configuration sent when a
// call session starts.
package agent

import (
	"fmt"

	"github.com/xiaot623/gogo/voiceagent/internal/protocol"
)

// Hook paths the platform calls back on.
const (
	HookFinal    = "/final"
	HookEvent    = "/event"
	HookToolCall = "/toolCall"
)

// ToolGetWeather is the only tool exposed to the agent.
const ToolGetWeather = "get_weather"

// Temperature scales accepted by get_weather.
const (
	ScaleFahrenheit = "fahrenheit"
	ScaleCelsius    = "celsius"
)

// Configuration describes the remote agent for one session.
type Configuration struct {
	Vendor     string
	Model      string
	Credential string

	ActionHook string
	EventHook  string
	ToolHook   string
	Events     []string

	ListenModel   string
	ThinkModel    string
	ThinkProvider string
	Instructions  string
	Tools         []ToolDefinition
}

// ToolDefinition is a function the agent may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  ParameterSchema
}

// ParameterSchema describes a tool's arguments.
type ParameterSchema struct {
	Properties map[string]Parameter
	Required   []string
}

// Parameter is one tool argument.
type Parameter struct {
	Type        string
	Enum        []string
	Description string
}

// Build returns the agent configuration for a new session. It has no side
// effects and returns a fresh value on every call.
func Build(credential string) Configuration {
	return Configuration{
		Vendor:        "deepgram",
		Model:         "voice-agent",
		Credential:    credential,
		ActionHook:    HookFinal,
		EventHook:     HookEvent,
		ToolHook:      HookToolCall,
		Events:        []string{"all"},
		ListenModel:   "nova-2",
		ThinkModel:    "claude-3-haiku-20240307",
		ThinkProvider: "anthropic",
		Instructions:  "Please help the user with their request.",
		Tools: []ToolDefinition{
			{
				Name:        ToolGetWeather,
				Description: "Get the weather at a given location",
				Parameters: ParameterSchema{
					Properties: map[string]Parameter{
						"location": {
							Type:        "string",
							Description: "Location to get the weather from",
						},
						"scale": {
							Type: "string",
							Enum: []string{ScaleFahrenheit, ScaleCelsius},
						},
					},
					Required: []string{"location", "scale"},
				},
			},
		},
	}
}

// ToolNames returns the names of the tools exposed to the agent.
func (c Configuration) ToolNames() []string {
	names := make([]string, 0, len(c.Tools))
	for _, t := range c.Tools {
		names = append(names, t.Name)
	}
	return names
}

// Validate checks every tool definition.
func (c Configuration) Validate() error {
	seen := make(map[string]bool, len(c.Tools))
	for _, t := range c.Tools {
		if seen[t.Name] {
			return fmt.Errorf("duplicate tool %q", t.Name)
		}
		seen[t.Name] = true
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every required parameter is declared.
func (t ToolDefinition) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	for _, name := range t.Parameters.Required {
		if _, ok := t.Parameters.Properties[name]; !ok {
			return fmt.Errorf("tool %s: required parameter %q is not declared", t.Name, name)
		}
	}
	return nil
}

// Verb renders the configuration as the platform's llm verb.
func (c Configuration) Verb() protocol.LLMVerb {
	functions := make([]map[string]interface{}, 0, len(c.Tools))
	for _, t := range c.Tools {
		functions = append(functions, t.schema())
	}

	return protocol.LLMVerb{
		Verb:       protocol.VerbLLM,
		Vendor:     c.Vendor,
		Model:      c.Model,
		Auth:       protocol.LLMAuth{APIKey: c.Credential},
		ActionHook: c.ActionHook,
		EventHook:  c.EventHook,
		ToolHook:   c.ToolHook,
		Events:     c.Events,
		LLMOptions: map[string]interface{}{
			"settingsConfiguration": map[string]interface{}{
				"type": "SettingsConfiguration",
				"agent": map[string]interface{}{
					"listen": map[string]interface{}{
						"model": c.ListenModel,
					},
					"think": map[string]interface{}{
						"model": c.ThinkModel,
						"provider": map[string]interface{}{
							"type": c.ThinkProvider,
						},
						"instructions": c.Instructions,
						"functions":    functions,
					},
				},
			},
		},
	}
}

func (t ToolDefinition) schema() map[string]interface{} {
	properties := make(map[string]interface{}, len(t.Parameters.Properties))
	for name, p := range t.Parameters.Properties {
		prop := map[string]interface{}{"type": p.Type}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[name] = prop
	}
	return map[string]interface{}{
		"name":        t.Name,
		"description": t.Description,
		"parameters": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   t.Parameters.Required,
		},
	}
}
