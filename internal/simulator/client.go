// Package simulator plays the call platform's side of a call against a
// running voice agent, for local testing.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/voiceagent/internal/agent"
	"github.com/xiaot623/gogo/voiceagent/internal/protocol"
)

// Options describes the call to simulate.
type Options struct {
	Addr     string
	Location string
	Scale    string

	// Completion sent on the final hook. An empty reason ends the
	// conversation normally.
	CompletionReason string
	ErrorCode        string
	ErrorMessage     string

	// Timeout bounds each wait for a frame.
	Timeout time.Duration
}

// Client is a websocket client speaking the call platform's protocol.
type Client struct {
	conn    *websocket.Conn
	callSID string
	out     io.Writer
	timeout time.Duration
}

// Dial connects to the voice agent, negotiating the platform subprotocol.
func Dial(ctx context.Context, addr string, out io.Writer) (*Client, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{protocol.Subprotocol},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{
		conn:    conn,
		callSID: "CA" + uuid.New().String(),
		out:     out,
		timeout: 10 * time.Second,
	}, nil
}

// CallSID returns the call identifier used by the client.
func (c *Client) CallSID() string {
	return c.callSID
}

// Close sends a normal close frame and closes the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) send(msgType, hook string, data interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", msgType, err)
	}
	msg := protocol.Message{
		Type:    msgType,
		MsgID:   uuid.New().String(),
		CallSID: c.callSID,
		Hook:    hook,
		Data:    raw,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return "", fmt.Errorf("write %s: %w", msgType, err)
	}
	return msg.MsgID, nil
}

// SendSessionNew starts the call.
func (c *Client) SendSessionNew() (string, error) {
	return c.send(protocol.TypeSessionNew, "", protocol.CallInfo{
		CallSID:   c.callSID,
		Direction: "inbound",
		From:      "+15550100",
		To:        "+15550199",
	})
}

// SendToolCall asks for the weather at location.
func (c *Client) SendToolCall(location, scale string) (string, error) {
	toolCallID := "call_" + uuid.New().String()
	args, _ := json.Marshal(map[string]string{"location": location, "scale": scale})
	_, err := c.send(protocol.TypeLLMToolCall, "", protocol.ToolCallData{
		Name:       agent.ToolGetWeather,
		ToolCallID: toolCallID,
		Args:       args,
	})
	return toolCallID, err
}

// SendFinal delivers the agent's completion on the final hook.
func (c *Client) SendFinal(reason, code, message string) (string, error) {
	data := protocol.CompletionData{CompletionReason: reason}
	if code != "" || message != "" {
		data.Error = &protocol.CompletionError{Code: code, Message: message}
	}
	return c.send(protocol.TypeVerbHook, agent.HookFinal, data)
}

// Next reads the next frame and prints it.
func (c *Client) Next() (map[string]interface{}, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}

	formatted, _ := json.MarshalIndent(frame, "", "  ")
	fmt.Fprintf(c.out, "\n[%v] Received:\n%s\n", frame["type"], formatted)
	return frame, nil
}

// awaitAck reads frames until the ack of msgID arrives.
func (c *Client) awaitAck(msgID string) (map[string]interface{}, error) {
	for {
		frame, err := c.Next()
		if err != nil {
			return nil, err
		}
		if frame["type"] == protocol.TypeAck && frame["msgid"] == msgID {
			return frame, nil
		}
	}
}

// awaitToolOutput reads frames until the output of toolCallID arrives.
func (c *Client) awaitToolOutput(toolCallID string) (map[string]interface{}, error) {
	for {
		frame, err := c.Next()
		if err != nil {
			return nil, err
		}
		if frame["command"] == protocol.CommandToolOutput && frame["tool_call_id"] == toolCallID {
			return frame, nil
		}
	}
}

// Result is what the simulated call observed.
type Result struct {
	CallSID    string
	SessionAck map[string]interface{}
	ToolOutput map[string]interface{}
	FinalAck   map[string]interface{}
}

// Run plays one call: session:new, a weather tool call, then the final hook.
func Run(ctx context.Context, opts Options, out io.Writer) (*Result, error) {
	c, err := Dial(ctx, opts.Addr, out)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if opts.Timeout > 0 {
		c.timeout = opts.Timeout
	}

	res := &Result{CallSID: c.callSID}
	fmt.Fprintf(out, "Call %s connected to %s\n", c.callSID, opts.Addr)

	msgID, err := c.SendSessionNew()
	if err != nil {
		return res, err
	}
	if res.SessionAck, err = c.awaitAck(msgID); err != nil {
		return res, fmt.Errorf("session:new: %w", err)
	}
	if !hasVerb(res.SessionAck, protocol.VerbLLM) {
		return res, fmt.Errorf("call was not connected to the agent")
	}

	toolCallID, err := c.SendToolCall(opts.Location, opts.Scale)
	if err != nil {
		return res, err
	}
	if res.ToolOutput, err = c.awaitToolOutput(toolCallID); err != nil {
		return res, fmt.Errorf("tool call: %w", err)
	}

	msgID, err = c.SendFinal(opts.CompletionReason, opts.ErrorCode, opts.ErrorMessage)
	if err != nil {
		return res, err
	}
	if res.FinalAck, err = c.awaitAck(msgID); err != nil {
		return res, fmt.Errorf("final hook: %w", err)
	}
	return res, nil
}

func hasVerb(ack map[string]interface{}, name string) bool {
	verbs, _ := ack["data"].([]interface{})
	for _, v := range verbs {
		if m, ok := v.(map[string]interface{}); ok && m["verb"] == name {
			return true
		}
	}
	return false
}
