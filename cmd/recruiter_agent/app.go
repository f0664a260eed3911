package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/recruiter-agent/internal/config"
	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/delivery"
	"github.com/jonathan/recruiter-agent/internal/discovery"
	"github.com/jonathan/recruiter-agent/internal/fetch"
	"github.com/jonathan/recruiter-agent/internal/intake"
	"github.com/jonathan/recruiter-agent/internal/jobsource"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/schemas"
	"github.com/jonathan/recruiter-agent/internal/server/ratelimit"
	"github.com/jonathan/recruiter-agent/internal/stages"
)

const contactsPerRole = 2

// app is everything a command needs to execute runs.
type app struct {
	cfg      *config.Config
	log      *observability.Logger
	intake   *intake.Validator
	pipeline *pipeline.Orchestrator
	sink     delivery.Sink
	audit    *db.DB
	llm      llm.Client
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(lc config.LogConfig) *observability.Logger {
	logger := observability.NewLogger(&observability.LogConfig{
		Level:       lc.Level,
		Format:      lc.Format,
		ServiceName: "recruiter-agent",
		File:        lc.File,
		FileOnly:    lc.FileOnly,
		MaxSizeMB:   lc.MaxSizeMB,
		MaxBackups:  lc.MaxBackups,
		MaxAgeDays:  lc.MaxAgeDays,
		Compress:    lc.Compress,
	})
	observability.SetDefault(logger)
	return logger
}

// buildApp wires every collaborator from cfg. Missing credentials for a job
// source disable that source; its stage then fails permanently and the
// orchestrator falls back.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := newLogger(cfg.Log)
	a := &app{
		cfg:    cfg,
		log:    log,
		intake: intake.New(intake.Limits{DefaultMaxItems: cfg.Pipeline.DefaultMaxItems, MaxItemsCeiling: cfg.Pipeline.MaxItemsCeiling}),
	}

	key, err := llmAPIKey(cfg.LLM)
	if err != nil {
		return nil, err
	}
	provider, err := llm.ParseProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ctx, llm.ConfigFor(provider, cfg.LLM.Model, cfg.LLM.BaseURL), key)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.llm = client

	policy := retryPolicy(cfg.Retry)
	deps := &stages.Deps{
		LLM:      client,
		Pages:    newFetcher(cfg.Fetch, cfg.Retry.ScraperTimeout),
		Policies: stages.NewPolicies(policy, cfg.Retry.LLMTimeout, cfg.Retry.HTTPTimeout, cfg.Retry.ScraperTimeout),
		Pricing: stages.Pricing{
			LLMPer1KTokens:      cfg.Pricing.LLMPer1KTokens,
			ApifyPerRun:         cfg.Pricing.ApifyPerRun,
			ExaPerCredit:        cfg.Pricing.ExaPerCredit,
			ExaCreditsPerSearch: cfg.Pricing.ExaCreditsPerSearch,
			GooglePerQuery:      cfg.Pricing.GooglePerQuery,
		},
		Settings: stages.Settings{
			MaxCompanySize:   cfg.Pipeline.MaxCompanySize,
			TopCompanies:     cfg.Pipeline.TopCompanies,
			Workers:          cfg.Pipeline.Workers,
			RoleSimilarity:   cfg.Pipeline.RoleSimilarity,
			DiscoveryResults: cfg.Exa.NumResults,
			ContactsPerRole:  contactsPerRole,
			SenderName:       cfg.Message.SenderName,
			SenderEmail:      cfg.Message.SenderEmail,
			Timezone:         cfg.Message.Timezone,
		},
	}

	if jobs, err := jobsource.NewApifyClient(jobsource.ApifyConfig{
		Token:   cfg.Apify.Token,
		ActorID: cfg.Apify.ActorID,
		BaseURL: cfg.Apify.BaseURL,
	}); err != nil {
		log.WithError(err).Warn("primary job source disabled")
	} else {
		deps.Jobs = jobs
	}
	deps.Discovery, deps.People = newEngines(ctx, cfg, log)

	registry, err := steps.NewRegistry(stages.All(deps)...)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to register stages: %w", err)
	}
	selector, err := pipeline.NewSelector(pipeline.DefaultGraph(), thresholds(cfg.Pipeline))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to build stage graph: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithDocumentValidator(schemas.ValidateDocument),
	}
	if cfg.Database.URL != "" {
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.audit = database
		if err := database.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to prepare audit schema: %w", err)
		}
		opts = append(opts, pipeline.WithObserver(db.NewAuditLog(database)))
	}

	orch, err := pipeline.New(registry, selector, opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.pipeline = orch

	sink, err := newSink(ctx, cfg.Delivery, policy.WithCallTimeout(cfg.Retry.HTTPTimeout))
	if err != nil {
		a.close()
		return nil, err
	}
	a.sink = sink
	return a, nil
}

func (a *app) close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close LLM client")
		}
	}
	a.audit.Close()
	_ = observability.Sync()
}

func llmAPIKey(lc config.LLMConfig) (string, error) {
	key := lc.APIKey
	if llm.Provider(lc.Provider) == llm.ProviderOpenAI && lc.OpenAIAPIKey != "" {
		key = lc.OpenAIAPIKey
	}
	if key == "" {
		return "", fmt.Errorf("no API key for LLM provider %q (set GEMINI_API_KEY or OPENAI_API_KEY)", lc.Provider)
	}
	return key, nil
}

func retryPolicy(rc config.RetryConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if rc.MaxAttempts > 0 {
		p.MaxAttempts = rc.MaxAttempts
	}
	if rc.BaseDelay > 0 {
		p.BaseDelay = rc.BaseDelay
	}
	if rc.MaxDelay > 0 {
		p.MaxDelay = rc.MaxDelay
	}
	if rc.Multiplier >= 1 {
		p.Multiplier = rc.Multiplier
	}
	return p
}

func thresholds(pc config.PipelineConfig) pipeline.Thresholds {
	return pipeline.Thresholds{
		JobFloor:          pc.JobFloor,
		AlternateJobFloor: pc.AlternateJobFloor,
		CompanyFloor:      pc.CompanyFloor,
		MaxBackEdges:      pc.MaxBackEdges,
	}
}

func newFetcher(fc config.FetchConfig, browserTimeout time.Duration) *fetch.Fetcher {
	opts := []fetch.FetcherOption{fetch.WithUserAgent(fc.UserAgent)}
	if fc.MinContentLength > 0 {
		opts = append(opts, fetch.WithMinContentLength(fc.MinContentLength))
	}
	if fc.UseBrowser {
		opts = append(opts, fetch.WithBrowserFallback(browserTimeout))
	}
	return fetch.NewFetcher(opts...)
}

// newEngines returns the alternate job source engine and the people-search
// engine. People search prefers Google and falls back to Exa.
func newEngines(ctx context.Context, cfg *config.Config, log *observability.Logger) (jobs, people discovery.Engine) {
	var exa, google discovery.Engine
	if c, err := discovery.NewExaClient(discovery.ExaConfig{APIKey: cfg.Exa.APIKey, BaseURL: cfg.Exa.BaseURL}); err != nil {
		log.WithError(err).Debug("exa disabled")
	} else {
		exa = c
	}
	if c, err := discovery.NewGoogleClient(ctx, discovery.GoogleConfig{APIKey: cfg.Search.APIKey, CX: cfg.Search.CX}); err != nil {
		log.WithError(err).Debug("google search disabled")
	} else {
		google = c
	}

	jobs = exa
	if cfg.Pipeline.DiscoveryProvider == "google" {
		jobs = google
	}
	if jobs == nil {
		log.WithField("provider", cfg.Pipeline.DiscoveryProvider).Warn("alternate job source disabled")
	}

	people = google
	if people == nil {
		people = exa
	}
	return jobs, people
}

// newSink always includes the webhook sink, which honors per-request targets.
func newSink(ctx context.Context, dc config.DeliveryConfig, policy retry.Policy) (delivery.Sink, error) {
	sinks := delivery.Multi{delivery.NewWebhookSink(dc.WebhookURL, policy)}
	if dc.ArchiveBucket != "" {
		archive, err := delivery.NewArchiveSink(ctx, delivery.ArchiveConfig{
			Bucket:    dc.ArchiveBucket,
			Prefix:    dc.ArchivePrefix,
			Region:    dc.Region,
			Endpoint:  dc.Endpoint,
			AccessKey: dc.AccessKey,
			SecretKey: dc.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive sink: %w", err)
		}
		sinks = append(sinks, archive)
	}
	return sinks, nil
}

// rateLimitConfig returns nil when limiting is off.
func rateLimitConfig(sc config.ServerConfig) *ratelimit.Config {
	if sc.RateLimit <= 0 {
		return nil
	}
	return &ratelimit.Config{
		Enabled:         true,
		DefaultRate:     sc.RateLimit,
		DefaultBurst:    sc.RateBurst,
		CleanupInterval: 5 * time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	}
}
