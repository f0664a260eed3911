package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/delivery"
	"github.com/jonathan/recruiter-agent/internal/intake"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/server/ratelimit"
	"github.com/jonathan/recruiter-agent/internal/types"
)

const validBody = `{
	"recruiter_name": "Jane Smith",
	"recruiter_email": "jane@talentco.example",
	"recruiter_website": "talentco.example"
}`

type fakePipeline struct {
	mu     sync.Mutex
	calls  int
	inputs []types.ProcessRequest
	status string
}

func (p *fakePipeline) Execute(ctx context.Context, r *run.Run) *types.Document {
	p.mu.Lock()
	p.calls++
	p.inputs = append(p.inputs, r.Input())
	p.mu.Unlock()

	_ = r.Start()
	observers := pipeline.ObserversFromContext(ctx)
	for _, obs := range observers {
		obs.RunStarted(ctx, r)
		obs.StageFinished(ctx, r, pipeline.StageEvent{Step: steps.StageICP, Stage: steps.StageICP, Visit: 1, Outcome: steps.OutcomeOK})
	}
	if p.status == "failed" {
		_ = r.Fail(pipeline.ReasonNoQualifyingOpportunities, "")
	} else {
		_ = r.Complete()
	}
	doc := pipeline.Assemble(r)
	for _, obs := range observers {
		obs.RunFinished(ctx, r, doc)
	}
	return doc
}

type fakeSink struct {
	err  error
	docs []*types.Document
}

func (s *fakeSink) Deliver(_ context.Context, doc *types.Document) error {
	s.docs = append(s.docs, doc)
	return s.err
}

type fakeAudit struct {
	runs   map[string]*db.RunRecord
	stages map[string][]db.StageRecord
}

func (a *fakeAudit) GetRun(_ context.Context, id string) (*db.RunRecord, error) {
	rec, ok := a.runs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return rec, nil
}

func (a *fakeAudit) ListStages(_ context.Context, id string) ([]db.StageRecord, error) {
	return a.stages[id], nil
}

func newTestServer(t *testing.T, cfg Config, deps Deps) *Server {
	t.Helper()
	if deps.Intake == nil {
		deps.Intake = intake.New(intake.Limits{DefaultMaxItems: 100, MaxItemsCeiling: 400})
	}
	if deps.Pipeline == nil {
		deps.Pipeline = &fakePipeline{}
	}
	deps.Logger = observability.Discard()
	s, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func post(t *testing.T, h http.Handler, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Config{}, Deps{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, Config{Version: "1.2.3"}, Deps{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "recruiter-agent", body["service"])
	assert.Equal(t, "1.2.3", body["version"])

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcess_Delivered(t *testing.T) {
	p := &fakePipeline{}
	sink := &fakeSink{}
	s := newTestServer(t, Config{}, Deps{Pipeline: p, Sink: sink})

	w := post(t, s.Handler(), "/process", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.True(t, resp.Delivered)
	assert.Nil(t, resp.Result)
	assert.NotEmpty(t, resp.RunID)

	require.Len(t, sink.docs, 1)
	assert.Equal(t, resp.RunID, sink.docs[0].RunID)
	require.Len(t, p.inputs, 1)
	assert.Equal(t, "https://talentco.example", p.inputs[0].RecruiterWebsite)
	assert.Equal(t, 100, p.inputs[0].MaxItems)
}

func TestProcess_FailedRunIsStill200(t *testing.T) {
	s := newTestServer(t, Config{}, Deps{Pipeline: &fakePipeline{status: "failed"}, Sink: &fakeSink{}})

	w := post(t, s.Handler(), "/process", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.True(t, resp.Delivered)
}

func TestProcess_UndeliveredIncludesResult(t *testing.T) {
	tests := []struct {
		name string
		sink delivery.Sink
	}{
		{name: "no sink"},
		{name: "sink skipped", sink: &fakeSink{err: delivery.ErrSkipped}},
		{name: "sink failed", sink: &fakeSink{err: errors.New("webhook returned 502")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{}, Deps{Sink: tt.sink})

			w := post(t, s.Handler(), "/process", validBody)

			require.Equal(t, http.StatusOK, w.Code)
			var resp ProcessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Delivered)
			require.NotNil(t, resp.Result)
			assert.Equal(t, resp.RunID, resp.Result.RunID)
		})
	}
}

func TestProcess_MalformedInputCreatesNoRun(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "malformed JSON", body: `{"recruiter_name":`, field: "body"},
		{name: "missing website", body: `{"recruiter_name": "Jane", "recruiter_email": "jane@talentco.example"}`, field: "recruiter_website"},
		{name: "bad email", body: `{"recruiter_name": "Jane", "recruiter_email": "nope", "recruiter_website": "https://talentco.example"}`, field: "recruiter_email"},
		{name: "max items over ceiling", body: `{"recruiter_name": "Jane", "recruiter_email": "jane@talentco.example", "recruiter_website": "https://talentco.example", "max_items": 5000}`, field: "max_items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{}
			sink := &fakeSink{}
			s := newTestServer(t, Config{}, Deps{Pipeline: p, Sink: sink})

			w := post(t, s.Handler(), "/process", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "invalid_request", body.Error)
			assert.Contains(t, body.Fields, tt.field)
			assert.Equal(t, 0, p.calls)
			assert.Empty(t, sink.docs)
		})
	}
}

func TestProcess_Auth(t *testing.T) {
	auth, err := NewJWTService("test-secret")
	require.NoError(t, err)
	s := newTestServer(t, Config{}, Deps{Auth: auth})

	w := post(t, s.Handler(), "/process", validBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.GenerateToken("talentco", time.Hour)
	require.NoError(t, err)
	w = post(t, s.Handler(), "/process", validBody, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays open.
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcess_RateLimited(t *testing.T) {
	s := newTestServer(t, Config{RateLimit: &ratelimit.Config{
		Enabled:         true,
		EndpointConfigs: []ratelimit.EndpointConfig{{Path: "/process", Method: "POST", Limit: 1, Window: time.Hour}},
	}}, Deps{})
	h := s.Handler()

	w := post(t, h, "/process", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = post(t, h, "/process", validBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestProcess_PipelinePanicIs500(t *testing.T) {
	s := newTestServer(t, Config{}, Deps{Pipeline: panicPipeline{}})

	w := post(t, s.Handler(), "/process", validBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type panicPipeline struct{}

func (panicPipeline) Execute(context.Context, *run.Run) *types.Document { panic("boom") }

func TestProcessStream(t *testing.T) {
	s := newTestServer(t, Config{}, Deps{Sink: &fakeSink{}})

	w := post(t, s.Handler(), "/process/stream", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var events []string
	scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	assert.Equal(t, []string{"progress", "progress", "progress", "result", "complete"}, events)
}

func TestGetRun(t *testing.T) {
	audit := &fakeAudit{
		runs: map[string]*db.RunRecord{
			"run-1": {ID: "run-1", Status: "completed", DataSource: "primary"},
		},
		stages: map[string][]db.StageRecord{
			"run-1": {{Step: "extract_icp", Stage: "extract_icp", Visit: 1, Outcome: "ok"}},
		},
	}
	s := newTestServer(t, Config{}, Deps{Audit: audit})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/run-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Run.Status)
	require.Len(t, resp.Stages, 1)
	assert.Equal(t, "extract_icp", resp.Stages[0].Stage)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRun_NoAudit(t *testing.T) {
	s := newTestServer(t, Config{}, Deps{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/run-1", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
