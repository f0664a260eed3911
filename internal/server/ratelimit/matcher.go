package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig overrides the default rate for one route. A Path ending in
// "/" covers everything below it; an empty Method matches any method.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int // requests per Window; zero disables limiting
	Window time.Duration
	Burst  int // defaults to Limit
}

// DefaultEndpointConfigs limits the pipeline routes, since every run spends
// scraper, search and model credits.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/process", Method: "POST", Limit: 30, Window: time.Hour, Burst: 3},
		{Path: "/process/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 3},
		{Path: "/runs/", Method: "GET", Limit: 120, Window: time.Minute},
	}
}

// unlimited routes skip both endpoint and default limits.
var unlimited = map[string]bool{
	"GET /health": true,
}

// MatchEndpoint picks the config for a request. An exact path beats a prefix
// and a longer prefix beats a shorter one. Unlimited routes get a zero config.
func MatchEndpoint(configs []EndpointConfig, method, path string) (EndpointConfig, bool) {
	if unlimited[method+" "+path] {
		return EndpointConfig{}, true
	}

	best, bestLen := -1, -1
	for i, c := range configs {
		if c.Method != "" && !strings.EqualFold(c.Method, method) {
			continue
		}
		switch {
		case c.Path == path:
			return c, true
		case strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) && len(c.Path) > bestLen:
			best, bestLen = i, len(c.Path)
		}
	}
	if best < 0 {
		return EndpointConfig{}, false
	}
	return configs[best], true
}
