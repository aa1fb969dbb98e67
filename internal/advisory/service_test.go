package advisory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

type fakeModel struct {
	calls  atomic.Int32
	status int
	reply  string
	delay  time.Duration

	lastPath   atomic.Value
	lastKey    atomic.Value
	lastPrompt atomic.Value
}

func (f *fakeModel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastPath.Store(r.URL.Path)
	f.lastKey.Store(r.Header.Get("x-goog-api-key"))

	var req generateRequest
	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err == nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		f.lastPrompt.Store(req.Contents[0].Parts[0].Text)
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	if f.status != 0 && f.status != http.StatusOK {
		http.Error(w, "quota exceeded", f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, f.reply)
}

func newTestService(t *testing.T, model *fakeModel, metrics observability.Metrics) *Service {
	t.Helper()
	server := httptest.NewServer(model)
	t.Cleanup(server.Close)
	return New(Config{
		APIKey:         "test-key",
		Endpoint:       server.URL + "/v1beta/",
		Timeout:        time.Second,
		BreakerTimeout: time.Minute,
		HTTPClient:     server.Client(),
		Metrics:        metrics,
	})
}

const twoPartReply = `{"candidates":[{"content":{"parts":[{"text":"1. Pay early. "},{"text":"2. Buy in bulk."}]}}]}`

func TestFinancialAdvice_ReturnsModelText(t *testing.T) {
	model := &fakeModel{reply: twoPartReply}
	svc := newTestService(t, model, nil)

	got := svc.FinancialAdvice(context.Background(), "User John Doe saving 45000 of 60000")

	assert.Equal(t, "1. Pay early. 2. Buy in bulk.", got)
	assert.Equal(t, "/v1beta/models/"+DefaultAdviceModel+":generateContent", model.lastPath.Load())
	assert.Equal(t, "test-key", model.lastKey.Load())
	prompt, _ := model.lastPrompt.Load().(string)
	assert.Contains(t, prompt, "called PaySmallSmall")
	assert.Contains(t, prompt, "User John Doe saving 45000 of 60000")
	assert.Contains(t, prompt, "3 short, actionable tips")
}

func TestPlanBriefing_SendsRecordsAsJSON(t *testing.T) {
	model := &fakeModel{reply: `{"candidates":[{"content":{"parts":[{"text":"Liquidity is healthy."}]}}]}`}
	svc := newTestService(t, model, nil)

	records := []map[string]any{{"planId": "plan_1", "totalPaid": 45000}}
	got := svc.PlanBriefing(context.Background(), records)

	assert.Equal(t, "Liquidity is healthy.", got)
	assert.Equal(t, "/v1beta/models/"+DefaultBriefingModel+":generateContent", model.lastPath.Load())
	prompt, _ := model.lastPrompt.Load().(string)
	assert.Contains(t, prompt, `[{"planId":"plan_1","totalPaid":45000}]`)
	assert.Contains(t, prompt, "churn risks")
}

func TestFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"server error", &fakeModel{status: http.StatusTooManyRequests}},
		{"malformed body", &fakeModel{reply: `{not json`}},
		{"no candidates", &fakeModel{reply: `{"candidates":[]}`}},
		{"blank text", &fakeModel{reply: `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`}},
		{"timeout", &fakeModel{reply: twoPartReply, delay: 3 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewInMemoryMetrics()
			svc := newTestService(t, tt.model, metrics)

			assert.Equal(t, FallbackAdvice, svc.FinancialAdvice(context.Background(), "ctx"))
			assert.Equal(t, FallbackBriefing, svc.PlanBriefing(context.Background(), []string{"x"}))
			assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricAdvisoryFallbacks,
				observability.T("kind", "advice"), observability.T("reason", "error")))
		})
	}
}

func TestWithoutAPIKey_SkipsNetwork(t *testing.T) {
	model := &fakeModel{reply: twoPartReply}
	server := httptest.NewServer(model)
	defer server.Close()

	metrics := observability.NewInMemoryMetrics()
	svc := New(Config{Endpoint: server.URL, Metrics: metrics})

	assert.False(t, svc.Enabled())
	assert.Equal(t, FallbackAdvice, svc.FinancialAdvice(context.Background(), "ctx"))
	assert.Equal(t, FallbackBriefing, svc.PlanBriefing(context.Background(), nil))
	assert.Zero(t, model.calls.Load())
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricAdvisoryFallbacks,
		observability.T("kind", "briefing"), observability.T("reason", "disabled")))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	model := &fakeModel{status: http.StatusInternalServerError}
	metrics := observability.NewInMemoryMetrics()
	svc := newTestService(t, model, metrics)

	for range 3 {
		assert.Equal(t, FallbackAdvice, svc.FinancialAdvice(context.Background(), "ctx"))
	}
	require.Equal(t, int32(3), model.calls.Load())

	assert.Equal(t, FallbackAdvice, svc.FinancialAdvice(context.Background(), "ctx"))
	assert.Equal(t, int32(3), model.calls.Load(), "open breaker must not reach the server")
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricAdvisoryFallbacks,
		observability.T("kind", "advice"), observability.T("reason", "circuit_open")))
}

func TestPlanBriefing_UnencodableInput(t *testing.T) {
	model := &fakeModel{reply: twoPartReply}
	svc := newTestService(t, model, nil)

	got := svc.PlanBriefing(context.Background(), map[string]any{"bad": make(chan int)})
	assert.Equal(t, FallbackBriefing, got)
	assert.Zero(t, model.calls.Load())
}

func TestNew_Defaults(t *testing.T) {
	svc := New(Config{Endpoint: "https://example.test/v1/"})
	assert.Equal(t, "https://example.test/v1", svc.endpoint)
	assert.Equal(t, DefaultAdviceModel, svc.adviceModel)
	assert.Equal(t, DefaultBriefingModel, svc.briefingModel)
	assert.Equal(t, DefaultTimeout, svc.timeout)
	assert.True(t, strings.HasPrefix(DefaultEndpoint, "https://"))
}
