// Package advisory produces short savings guidance from a hosted text model.
// Every entry point degrades to fixed text; callers never see an error.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

const (
	// FallbackAdvice is returned whenever customer advice cannot be generated.
	FallbackAdvice = "Ensure you stick to your weekly payment schedule to avoid delivery delays."
	// FallbackBriefing is returned whenever the admin briefing cannot be generated.
	FallbackBriefing = "Growth is steady across Rice and Livestock categories."

	DefaultEndpoint      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultAdviceModel   = "gemini-3-flash-preview"
	DefaultBriefingModel = "gemini-3-pro-preview"
	DefaultTimeout       = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// ErrEmptyResponse is returned when the model answers without text.
var ErrEmptyResponse = errors.New("advisory: empty response")

// Config configures the text service.
type Config struct {
	APIKey        string
	Endpoint      string
	AdviceModel   string
	BriefingModel string
	Timeout       time.Duration

	// FailureThreshold consecutive failures open the breaker for BreakerTimeout.
	FailureThreshold uint32
	BreakerTimeout   time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    observability.Metrics
}

// Service calls the generateContent REST endpoint.
type Service struct {
	apiKey        string
	endpoint      string
	adviceModel   string
	briefingModel string
	timeout       time.Duration

	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
	metrics observability.Metrics
}

// New creates a Service, filling unset fields with defaults.
func New(cfg Config) *Service {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.AdviceModel == "" {
		cfg.AdviceModel = DefaultAdviceModel
	}
	if cfg.BriefingModel == "" {
		cfg.BriefingModel = DefaultBriefingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}

	s := &Service{
		apiKey:        cfg.APIKey,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		adviceModel:   cfg.AdviceModel,
		briefingModel: cfg.BriefingModel,
		timeout:       cfg.Timeout,
		client:        cfg.HTTPClient,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}

	threshold := cfg.FailureThreshold
	s.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "advisory",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return s
}

// Enabled reports whether a key is configured.
func (s *Service) Enabled() bool {
	return s.apiKey != ""
}

// FinancialAdvice returns three savings tips for the described customer.
func (s *Service) FinancialAdvice(ctx context.Context, userContext string) string {
	prompt := "You are a financial advisor for a FoodThrift platform called PaySmallSmall. " +
		"Based on this user context: " + userContext + ", provide 3 short, actionable tips for food security and savings. " +
		"Keep it professional and encouraging."
	return s.generateOr(ctx, "advice", s.adviceModel, prompt, FallbackAdvice)
}

// PlanBriefing summarises subscriber contribution records for administrators.
// records is rendered as JSON into the prompt.
func (s *Service) PlanBriefing(ctx context.Context, records any) string {
	data, err := json.Marshal(records)
	if err != nil {
		s.logger.Warn("advisory briefing input not serialisable", "error", err)
		s.fallback("briefing", "encode")
		return FallbackBriefing
	}
	prompt := "Analyze these subscriber contribution records: " + string(data) + ". " +
		"Return a brief summary of total liquidity, top performing plan category, and any churn risks detected."
	return s.generateOr(ctx, "briefing", s.briefingModel, prompt, FallbackBriefing)
}

func (s *Service) generateOr(ctx context.Context, kind, model, prompt, fallback string) string {
	if !s.Enabled() {
		s.fallback(kind, "disabled")
		return fallback
	}

	text, err := s.breaker.Execute(func() (string, error) {
		return s.generate(ctx, model, prompt)
	})
	if err != nil {
		reason := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "circuit_open"
		}
		s.logger.Warn("advisory request failed, using fallback", "kind", kind, "model", model, "error", err)
		s.fallback(kind, reason)
		return fallback
	}
	return text
}

func (s *Service) fallback(kind, reason string) {
	s.metrics.Counter(observability.MetricAdvisoryFallbacks, 1,
		observability.T("kind", kind),
		observability.T("reason", reason),
	)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (s *Service) generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.endpoint, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %d: %s", model, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
