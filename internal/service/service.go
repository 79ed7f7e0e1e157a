// Package service implements the call handling logic: it reacts to the
// notifications of one call session and drives the remote voice agent.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/policy"
	"github.com/xiaot623/gogo/voiceagent/internal/repository"
	"github.com/xiaot623/gogo/voiceagent/internal/session"
	"github.com/xiaot623/gogo/voiceagent/internal/tools"
	"github.com/xiaot623/gogo/voiceagent/internal/weather"
)

// WeatherLookup resolves places and their current weather.
type WeatherLookup interface {
	Geocode(ctx context.Context, location string) (*weather.Place, error)
	Current(ctx context.Context, latitude, longitude float64, unit string) (json.RawMessage, error)
}

// Options configures a Service.
type Options struct {
	// Credential is the voice agent API key. Calls are hung up when empty.
	Credential string
	Weather    WeatherLookup
	Policy     *policy.Engine
	// Store is optional; when nil, call records are not kept.
	Store  repository.Store
	Logger *slog.Logger
}

// Service handles the notifications of every call session.
type Service struct {
	credential string
	weather    WeatherLookup
	policy     *policy.Engine
	store      repository.Store
	registry   *tools.Registry
	logger     *slog.Logger
	metrics    *metrics
}

// New creates a Service and registers its tool executors.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		credential: opts.Credential,
		weather:    opts.Weather,
		policy:     opts.Policy,
		store:      opts.Store,
		registry:   tools.NewRegistry(),
		logger:     logger,
		metrics:    newMetrics(),
	}
	s.registry.MustRegister(toolGetWeather, s.getWeather)
	logger.Debug("tool executors registered", "tools", s.registry.Names())
	return s
}

// Handle processes one notification for sess. Calls for the same session
// must not overlap.
func (s *Service) Handle(ctx context.Context, sess *session.Session, n domain.Notification) {
	switch n := n.(type) {
	case domain.SessionNew:
		s.onSessionNew(ctx, sess, n)
	case domain.AgentEvent:
		s.onAgentEvent(sess, n)
	case domain.ToolCallRequest:
		s.onToolCall(ctx, sess, n.Invocation)
	case domain.Final:
		s.onFinal(ctx, sess, n)
	case domain.UnknownHook:
		s.onUnknownHook(sess, n)
	case domain.Closed:
		s.onClosed(ctx, sess, n)
	case domain.Failed:
		s.onFailed(ctx, sess, n)
	default:
		sess.Logger.Warn("unhandled notification", "type", fmt.Sprintf("%T", n))
	}
}
