package pipeline

import (
	"context"
	"time"

	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

type scripted struct {
	res   steps.Result
	err   error
	panic any
	// advance moves the test clock while the stage "runs"
	advance time.Duration
}

// fakeStage replays scripted results; the last entry repeats.
type fakeStage struct {
	def     steps.StepDefinition
	script  []scripted
	calls   int
	service string
	clock   *testClock
}

func (f *fakeStage) Definition() steps.StepDefinition { return f.def }

func (f *fakeStage) Execute(_ context.Context, r run.View) (steps.Result, error) {
	i := f.calls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.calls++
	s := f.script[i]

	if f.service != "" {
		r.RecordCost(f.service, 1, 0.01)
	}
	if f.clock != nil && s.advance > 0 {
		f.clock.Advance(s.advance)
	}
	if s.panic != nil {
		panic(s.panic)
	}
	return s.res, s.err
}

type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func ok(artifact any, count int) scripted {
	return scripted{res: steps.Result{
		Artifact: artifact,
		Signal:   steps.QualitySignal{Count: count},
		Outcome:  steps.OutcomeOK,
	}}
}

func jobs(n int) scripted {
	set := &types.JobSet{Qualifying: n}
	for i := 0; i < n; i++ {
		set.Jobs = append(set.Jobs, types.JobPosting{Title: "Engineer", CompanyName: "Co"})
	}
	return ok(set, n)
}

func validated(n int) scripted {
	v := &types.ValidatedCompanies{Considered: 20}
	for i := 0; i < n; i++ {
		v.Companies = append(v.Companies, types.Company{Name: "Co"})
	}
	return ok(v, n)
}

// harness wires one fake stage per registered stage name.
type harness struct {
	stages map[string]*fakeStage
	clock  *testClock
}

func newHarness() *harness {
	h := &harness{stages: make(map[string]*fakeStage), clock: newTestClock()}
	defaults := map[string]scripted{
		steps.StageICP:           ok(&types.ICPProfile{Industries: []string{"fintech"}}, 1),
		steps.StageSearchTerms:   ok(&types.SearchPlan{BooleanQuery: `"backend engineer"`}, 1),
		steps.StageLinkedInJobs:  jobs(50),
		steps.StageDiscoveryJobs: jobs(40),
		steps.StageValidate:      validated(12),
		steps.StagePrioritize: ok(&types.RankedCompanies{Companies: []types.Company{
			{Name: "Acme", Rank: 1}, {Name: "Globex", Rank: 2},
		}, Total: 12}, 2),
		steps.StageEnrich: ok(&types.EnrichedCompanies{Companies: []types.EnrichedCompany{
			{Company: types.Company{Name: "Acme", Rank: 1}},
			{Company: types.Company{Name: "Globex", Rank: 2}},
		}}, 2),
		steps.StageMessage: ok(&types.OutreachMessage{Subject: "Hiring", To: "jane@example.com", Body: "Hi"}, 1),
	}
	services := map[string]string{
		steps.StageICP:           "llm",
		steps.StageSearchTerms:   "llm",
		steps.StageLinkedInJobs:  "apify",
		steps.StageDiscoveryJobs: "exa",
		steps.StageValidate:      "llm",
		steps.StageEnrich:        "llm",
		steps.StageMessage:       "llm",
	}
	for name, s := range defaults {
		h.stages[name] = &fakeStage{
			def:     steps.StepRegistry[name],
			script:  []scripted{s},
			service: services[name],
			clock:   h.clock,
		}
	}
	return h
}

func (h *harness) script(name string, s ...scripted) {
	h.stages[name].script = s
}

func (h *harness) registry() *steps.Registry {
	var all []steps.Stage
	for _, s := range h.stages {
		all = append(all, s)
	}
	reg, err := steps.NewRegistry(all...)
	if err != nil {
		panic(err)
	}
	return reg
}

func (h *harness) orchestrator(th Thresholds, opts ...Option) *Orchestrator {
	sel, err := NewSelector(DefaultGraph(), th)
	if err != nil {
		panic(err)
	}
	o, err := New(h.registry(), sel, opts...)
	if err != nil {
		panic(err)
	}
	return o
}

func (h *harness) newRun(req types.ProcessRequest, budget time.Duration) *run.Run {
	return run.New(req, run.WithClock(h.clock.Now), run.WithDeadline(budget))
}

func testRequest() types.ProcessRequest {
	return types.ProcessRequest{
		RecruiterName:    "Jane Doe",
		RecruiterEmail:   "jane@example.com",
		RecruiterWebsite: "https://janedoe-talent.example.com",
		MaxItems:         100,
	}
}

// recordingObserver keeps every event it sees.
type recordingObserver struct {
	started  int
	events   []StageEvent
	finished []*types.Document
}

func (o *recordingObserver) RunStarted(context.Context, *run.Run) { o.started++ }

func (o *recordingObserver) StageFinished(_ context.Context, _ *run.Run, ev StageEvent) {
	o.events = append(o.events, ev)
}

func (o *recordingObserver) RunFinished(_ context.Context, _ *run.Run, doc *types.Document) {
	o.finished = append(o.finished, doc)
}

func (o *recordingObserver) stages() []string {
	var names []string
	for _, ev := range o.events {
		names = append(names, ev.Stage)
	}
	return names
}
