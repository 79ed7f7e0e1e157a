package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	t.Run("exposed tool is allowed", func(t *testing.T) {
		d, err := engine.Evaluate(ctx, Input{
			ToolName: "get_weather",
			Args:     map[string]interface{}{"location": "Paris"},
			Exposed:  []string{"get_weather"},
		})
		require.NoError(t, err)
		assert.True(t, d.Allowed())
	})

	t.Run("unexposed tool is blocked", func(t *testing.T) {
		d, err := engine.Evaluate(ctx, Input{ToolName: "transfer_call", Exposed: []string{"get_weather"}})
		require.NoError(t, err)
		assert.False(t, d.Allowed())
		assert.Equal(t, "tool is not exposed to the agent", d.Reason)
	})

	t.Run("nothing exposed", func(t *testing.T) {
		d, err := engine.Evaluate(ctx, Input{ToolName: "get_weather"})
		require.NoError(t, err)
		assert.Equal(t, ActionBlock, d.Action)
	})
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package voice_tool_policy\n decision = {")
	assert.Error(t, err)
}

func TestEvaluateRejectsNonObjectDecision(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, "package voice_tool_policy\n\ndecision = \"allow\"\n")
	require.NoError(t, err)

	_, err = engine.Evaluate(ctx, Input{ToolName: "get_weather"})
	assert.ErrorContains(t, err, "unexpected policy result type")
}
