package stages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/discovery"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// fakeLLM answers by the first route whose marker appears in the prompt.
type fakeLLM struct {
	mu     sync.Mutex
	routes []route
	calls  []string
}

type route struct {
	marker string
	reply  string
	err    error
}

func (f *fakeLLM) on(marker, reply string) *fakeLLM {
	f.routes = append(f.routes, route{marker: marker, reply: reply})
	return f
}

func (f *fakeLLM) fail(marker string, err error) *fakeLLM {
	f.routes = append(f.routes, route{marker: marker, err: err})
	return f
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	prompt := req.Prompt
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()
	for _, rt := range f.routes {
		if strings.Contains(prompt, rt.marker) {
			if rt.err != nil {
				return nil, rt.err
			}
			return &llm.Completion{Text: rt.reply, Model: "fake", Usage: llm.Usage{InputTokens: 100, OutputTokens: 50}}, nil
		}
	}
	return nil, retry.Permanent(llm.Service, errors.New("no route for prompt"))
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePages struct {
	text        map[string]string
	textErr     error
	companyText func(ctx context.Context, website string) (string, error)
}

func (f *fakePages) Text(_ context.Context, url string) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text[url], nil
}

func (f *fakePages) CompanyText(ctx context.Context, website string) (string, error) {
	if f.companyText == nil {
		return "About " + website + ": we build software for clinics.", nil
	}
	return f.companyText(ctx, website)
}

type fakeSearcher struct {
	jobs  []types.JobPosting
	errs  []error
	calls int
	url   string
	limit int
}

func (f *fakeSearcher) Search(_ context.Context, searchURL string, limit int) ([]types.JobPosting, error) {
	f.calls++
	f.url, f.limit = searchURL, limit
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.jobs, nil
}

type fakeEngine struct {
	name   string
	mu     sync.Mutex
	search func(query string) ([]discovery.Hit, error)
	calls  []string
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Search(_ context.Context, query string, _ int) ([]discovery.Hit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()
	return f.search(query)
}

func testDeps() *Deps {
	single := retry.Policy{MaxAttempts: 1}
	return &Deps{
		LLM:   &fakeLLM{},
		Pages: &fakePages{},
		Policies: Policies{
			LLM:     single,
			HTTP:    single,
			Scraper: single,
		},
		Pricing: Pricing{
			LLMPer1KTokens:      1.0,
			ApifyPerRun:         0.05,
			ExaPerCredit:        0.005,
			ExaCreditsPerSearch: 21,
			GooglePerQuery:      0.005,
		},
		Settings: Settings{
			MaxCompanySize: 100,
			TopCompanies:   4,
			Workers:        2,
			RoleSimilarity: 0.85,
			SenderName:     "Alex",
			SenderEmail:    "alex@signals.example",
			Timezone:       "GMT",
		},
	}
}

func testRequest() types.ProcessRequest {
	return types.ProcessRequest{
		RecruiterName:    "Jane Smith",
		RecruiterEmail:   "jane@talentco.example",
		RecruiterWebsite: "https://talentco.example",
		MaxItems:         50,
	}
}

// newRun returns a running Run preloaded with artifacts.
func newRun(t *testing.T, artifacts map[string]any, opts ...run.Option) *run.Run {
	t.Helper()
	r := run.New(testRequest(), opts...)
	require.NoError(t, r.Start())
	for key, v := range artifacts {
		require.NoError(t, r.SetArtifact(key, "setup", v))
	}
	return r
}

func testICP() *types.ICPProfile {
	return &types.ICPProfile{
		RecruiterSummary: "Places engineers at health tech startups",
		Industries:       []string{"Health tech"},
		RolesFilled:      []string{"Backend Engineer", "Data Engineer"},
		Locations:        []string{"London"},
	}
}

func services(r *run.Run) []string {
	var out []string
	for _, c := range r.Costs() {
		out = append(out, c.Service)
	}
	return out
}
