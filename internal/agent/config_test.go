package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	cfg := Build("dg-key")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "dg-key", cfg.Credential)
	assert.Equal(t, "nova-2", cfg.ListenModel)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.ThinkModel)
	assert.Equal(t, "anthropic", cfg.ThinkProvider)
	assert.Equal(t, []string{ToolGetWeather}, cfg.ToolNames())

	weather := cfg.Tools[0]
	assert.ElementsMatch(t, []string{"location", "scale"}, weather.Parameters.Required)
	assert.Equal(t, []string{"fahrenheit", "celsius"}, weather.Parameters.Properties["scale"].Enum)
}

func TestBuildReturnsIndependentValues(t *testing.T) {
	a := Build("k")
	b := Build("k")

	a.Tools[0].Parameters.Properties["scale"] = Parameter{Type: "string", Enum: []string{"kelvin"}}
	a.Events[0] = "none"

	assert.Equal(t, []string{"fahrenheit", "celsius"}, b.Tools[0].Parameters.Properties["scale"].Enum)
	assert.Equal(t, []string{"all"}, b.Events)
}

func TestValidateRequiredMustBeDeclared(t *testing.T) {
	def := ToolDefinition{
		Name: "broken",
		Parameters: ParameterSchema{
			Properties: map[string]Parameter{"a": {Type: "string"}},
			Required:   []string{"a", "b"},
		},
	}
	assert.ErrorContains(t, def.Validate(), `"b"`)

	cfg := Configuration{Tools: []ToolDefinition{{Name: "x"}, {Name: "x"}}}
	assert.ErrorContains(t, cfg.Validate(), "duplicate")
}

func TestVerbRendersSettingsConfiguration(t *testing.T) {
	data, err := json.Marshal(Build("dg-key").Verb())
	require.NoError(t, err)

	var verb map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &verb))

	assert.Equal(t, "llm", verb["verb"])
	assert.Equal(t, "deepgram", verb["vendor"])
	assert.Equal(t, "voice-agent", verb["model"])
	assert.Equal(t, "/final", verb["actionHook"])
	assert.Equal(t, "/event", verb["eventHook"])
	assert.Equal(t, "/toolCall", verb["toolHook"])
	assert.Equal(t, map[string]interface{}{"apiKey": "dg-key"}, verb["auth"])

	settings := verb["llmOptions"].(map[string]interface{})["settingsConfiguration"].(map[string]interface{})
	assert.Equal(t, "SettingsConfiguration", settings["type"])
	think := settings["agent"].(map[string]interface{})["think"].(map[string]interface{})
	assert.Equal(t, "Please help the user with their request.", think["instructions"])

	functions := think["functions"].([]interface{})
	require.Len(t, functions, 1)
	fn := functions[0].(map[string]interface{})
	assert.Equal(t, "get_weather", fn["name"])
	params := fn["parameters"].(map[string]interface{})
	assert.Equal(t, "object", params["type"])
	assert.ElementsMatch(t, []interface{}{"location", "scale"}, params["required"])
	scale := params["properties"].(map[string]interface{})["scale"].(map[string]interface{})
	assert.Equal(t, []interface{}{"fahrenheit", "celsius"}, scale["enum"])
}
