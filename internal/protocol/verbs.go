package protocol

// Verb is an instruction executed by the platform on the call.
type Verb interface {
	VerbName() string
}

// Verb names
const (
	VerbSay    = "say"
	VerbHangup = "hangup"
	VerbLLM    = "llm"
)

// SayVerb speaks text to the caller.
type SayVerb struct {
	Verb string `json:"verb"`
	Text string `json:"text"`
}

// VerbName implements Verb.
func (SayVerb) VerbName() string { return VerbSay }

// HangupVerb ends the call.
type HangupVerb struct {
	Verb string `json:"verb"`
}

// VerbName implements Verb.
func (HangupVerb) VerbName() string { return VerbHangup }

// LLMVerb connects the call to a remote speech/LLM agent.
type LLMVerb struct {
	Verb       string                 `json:"verb"`
	Vendor     string                 `json:"vendor"`
	Model      string                 `json:"model"`
	Auth       LLMAuth                `json:"auth"`
	ActionHook string                 `json:"actionHook,omitempty"`
	EventHook  string                 `json:"eventHook,omitempty"`
	ToolHook   string                 `json:"toolHook,omitempty"`
	Events     []string               `json:"events,omitempty"`
	LLMOptions map[string]interface{} `json:"llmOptions"`
}

// LLMAuth carries the vendor credential.
type LLMAuth struct {
	APIKey string `json:"apiKey"`
}

// VerbName implements Verb.
func (LLMVerb) VerbName() string { return VerbLLM }

// Say builds a say verb.
func Say(text string) SayVerb {
	return SayVerb{Verb: VerbSay, Text: text}
}

// Hangup builds a hangup verb.
func Hangup() HangupVerb {
	return HangupVerb{Verb: VerbHangup}
}
