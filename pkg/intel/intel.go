// Package intel performs live validation of MCP server candidates: install
// the package into a scratch directory, spawn it as a subprocess, perform
// the MCP handshake over stdio, enumerate tools, probe them, and classify
// health.
//
// Collect never returns an error. Every failure mode degrades to a
// fallback_basic report so the candidate still flows into normalization
// with verified=false.
package intel

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// Config controls timeouts and concurrency for live validation.
// Zero values take the defaults below.
type Config struct {
	InstallTimeout   time.Duration // scratch install, default 120s
	SpawnTimeout     time.Duration // process start to first byte, default 10s
	HandshakeTimeout time.Duration // initialize round trip, default 10s
	ToolTimeout      time.Duration // single tools/call, default 5s
	TotalBudget      time.Duration // whole candidate, default 180s
	PoolSize         int           // concurrent collections, default 4
	ScratchRoot      string        // default os.TempDir()
	ProbeTools       bool          // invoke each tool with empty args
	MaxProbes        int           // tools probed per candidate, default 10
}

func (c Config) withDefaults() Config {
	if c.InstallTimeout <= 0 {
		c.InstallTimeout = 120 * time.Second
	}
	if c.SpawnTimeout <= 0 {
		c.SpawnTimeout = 10 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 5 * time.Second
	}
	if c.TotalBudget <= 0 {
		c.TotalBudget = 180 * time.Second
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.ScratchRoot == "" {
		c.ScratchRoot = os.TempDir()
	}
	if c.MaxProbes <= 0 {
		c.MaxProbes = 10
	}
	return c
}

// DefaultConfig returns the standard validation configuration.
func DefaultConfig() Config {
	cfg := Config{ProbeTools: true}
	return cfg.withDefaults()
}

// Collector runs live validations with bounded concurrency. Each collection
// gets its own scratch directory; nothing is shared between subprocesses.
type Collector struct {
	cfg Config
	sem chan struct{}
}

// NewCollector creates a collector from cfg, filling in defaults.
func NewCollector(cfg Config) *Collector {
	cfg = cfg.withDefaults()
	return &Collector{
		cfg: cfg,
		sem: make(chan struct{}, cfg.PoolSize),
	}
}

// Collect validates one candidate. install is the method to launch it with
// (normally the analyzer's primary). authHint, when non-nil, seeds the
// guessed auth fields of a fallback report.
func (c *Collector) Collect(ctx context.Context, cand model.Candidate, install model.InstallMethod, authHint *model.AuthRequirement) *model.IntelligenceReport {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return fallbackReport(authHint, "validation cancelled before start")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TotalBudget)
	defer cancel()

	scratch, err := os.MkdirTemp(c.cfg.ScratchRoot, "mcpcrawl-")
	if err != nil {
		return fallbackReport(authHint, "scratch dir: "+err.Error())
	}
	defer os.RemoveAll(scratch)

	if err := c.install(ctx, scratch, cand, install); err != nil {
		return fallbackReport(authHint, "install: "+err.Error())
	}

	report, stderr, err := c.validate(ctx, scratch, install)
	if err != nil {
		fb := fallbackReport(authHint, "handshake: "+err.Error())
		applyAuthSignals(fb, err.Error()+"\n"+stderr)
		// The server never completed a handshake. One last attempt: some
		// servers print their tool inventory as JSON on startup.
		if tools := c.captureToolBlob(ctx, scratch, install.Command); len(tools) > 0 {
			fb.Tools = tools
		}
		return fb
	}
	return report
}

// fallbackReport is the degraded result produced when any phase fails.
// Tools are empty, reliability is nil, and the auth fields are guesses
// carried over from documentation analysis.
func fallbackReport(authHint *model.AuthRequirement, pattern string) *model.IntelligenceReport {
	r := &model.IntelligenceReport{
		Strategy: model.StrategyFallbackBasic,
		Health:   model.HealthUnknown,
	}
	if pattern != "" {
		r.ErrorPatterns = []string{truncatePattern(pattern)}
	}
	if authHint != nil && authHint.Required {
		r.AuthRequired = true
		if len(authHint.Methods) > 0 {
			r.GuessedAuthMethod = authHint.Methods[0]
		}
		r.GuessedEnv = authHint.RequiredEnv
	}
	return r
}

var envVarRE = regexp.MustCompile(`[A-Z][A-Z0-9_]{2,}_(?:KEY|TOKEN|SECRET|ID|URL)`)

// applyAuthSignals folds a failed handshake's error text and captured
// stderr into the report's auth guesses. Servers that die during initialize
// for want of credentials usually name the missing variable on stderr.
func applyAuthSignals(r *model.IntelligenceReport, output string) {
	if !looksLikeAuthError(output) {
		return
	}
	r.AuthRequired = true
	if r.GuessedAuthMethod == "" {
		lower := strings.ToLower(output)
		switch {
		case strings.Contains(lower, "oauth"):
			r.GuessedAuthMethod = model.AuthOAuth
		case strings.Contains(lower, "token"):
			r.GuessedAuthMethod = model.AuthToken
		default:
			r.GuessedAuthMethod = model.AuthAPIKey
		}
	}
	seen := make(map[string]bool, len(r.GuessedEnv))
	for _, v := range r.GuessedEnv {
		seen[v] = true
	}
	for _, v := range envVarRE.FindAllString(output, -1) {
		if !seen[v] {
			seen[v] = true
			r.GuessedEnv = append(r.GuessedEnv, v)
		}
	}
}

// classifyHealth applies the health rules to the probe outcome.
func classifyHealth(handshakeOK bool, toolCount, worked, failed int, authRequired bool) model.HealthStatus {
	if !handshakeOK {
		return model.HealthUnknown
	}
	switch {
	case toolCount == 0 && !authRequired:
		// A server with no tools that starts and speaks the protocol is
		// healthy; resources-only servers are legitimate.
		return model.HealthHealthy
	case failed == 0 && !authRequired:
		return model.HealthHealthy
	case worked > 0 || authRequired:
		return model.HealthDegraded
	case failed > 0:
		return model.HealthDown
	default:
		return model.HealthHealthy
	}
}

var authErrRE = []string{
	"auth", "api key", "api_key", "apikey", "unauthorized", "unauthenticated",
	"credential", "token", "forbidden", "permission denied", "401", "403",
	"missing key", "not configured",
}

// looksLikeAuthError reports whether a tool error message indicates missing
// credentials rather than a broken server.
func looksLikeAuthError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range authErrRE {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

const maxErrorPatterns = 10

// recordPattern appends a deduplicated, truncated error message.
func recordPattern(patterns []string, msg string) []string {
	msg = truncatePattern(msg)
	if msg == "" || len(patterns) >= maxErrorPatterns {
		return patterns
	}
	for _, p := range patterns {
		if p == msg {
			return patterns
		}
	}
	return append(patterns, msg)
}

func truncatePattern(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// schemaToMap converts a marshalable JSON schema into the generic map the
// data model stores.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

// sortedNames returns keys of the outcome map in stable order.
func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
