package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/voiceagent/internal/simulator"
)

var simulateFlags simulator.Options

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play one call against a running voice agent",
	Long: `Play the call platform's side of one call: session:new, a get_weather
tool call for --location, then the final hook. Every frame received from
the voice agent is printed.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateFlags.Addr, "addr", "ws://localhost:3000/voice-agent", "Voice agent websocket address")
	simulateCmd.Flags().StringVarP(&simulateFlags.Location, "location", "l", "Paris", "Location to ask the weather for")
	simulateCmd.Flags().StringVarP(&simulateFlags.Scale, "scale", "s", "celsius", "Temperature scale (celsius or fahrenheit)")
	simulateCmd.Flags().StringVar(&simulateFlags.CompletionReason, "completion-reason", "normal conversation end", "Completion reason sent on the final hook")
	simulateCmd.Flags().StringVar(&simulateFlags.ErrorCode, "error-code", "", "Error code sent on the final hook")
	simulateCmd.Flags().StringVar(&simulateFlags.ErrorMessage, "error-message", "", "Error message sent on the final hook")
	simulateCmd.Flags().DurationVar(&simulateFlags.Timeout, "timeout", 15*time.Second, "How long to wait for each frame")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	res, err := simulator.Run(cmd.Context(), simulateFlags, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nCall %s completed\n", res.CallSID)
	return nil
}
