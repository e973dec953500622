// Package model defines the crawler's shared data model: discovery
// candidates, tools, auth requirements, intelligence reports, and the
// canonical MCP record that gets persisted.
package model

import (
	"regexp"
	"strings"
	"time"
)

// Ecosystem identifies a package ecosystem the crawler understands.
type Ecosystem string

const (
	EcosystemNPM   Ecosystem = "npm"
	EcosystemPyPI  Ecosystem = "pypi"
	EcosystemCargo Ecosystem = "cargo"
	EcosystemGo    Ecosystem = "go"
)

// Ecosystems lists all supported ecosystems in discovery order.
var Ecosystems = []Ecosystem{EcosystemNPM, EcosystemPyPI, EcosystemCargo, EcosystemGo}

// Valid reports whether e is a known ecosystem.
func (e Ecosystem) Valid() bool {
	switch e {
	case EcosystemNPM, EcosystemPyPI, EcosystemCargo, EcosystemGo:
		return true
	}
	return false
}

// Candidate is the minimal result of discovery: a package that might be an
// MCP server. Identity is (Ecosystem, Identifier). Candidates are transient;
// they are consumed by scraping and never persisted.
type Candidate struct {
	Ecosystem       Ecosystem `json:"ecosystem"`
	Identifier      string    `json:"identifier"` // package name or import path
	Description     string    `json:"description,omitempty"`
	RepositoryURL   string    `json:"repository_url,omitempty"`
	DiscoveryMethod string    `json:"discovery_method"` // provenance, e.g. "keyword:mcp-server"
	DiscoveredAt    time.Time `json:"discovered_at"`
}

// Key returns the candidate's identity for dedup across discovery methods.
func (c Candidate) Key() string {
	return string(c.Ecosystem) + "/" + c.Identifier
}

// toolNameRE is the legality pattern for tool names.
var toolNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidToolName reports whether name is a legal MCP tool identifier.
func ValidToolName(name string) bool {
	return toolNameRE.MatchString(name)
}

// Tool is a named operation an MCP server exposes.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"` // JSON-Schema-shaped
	Category    string         `json:"category,omitempty"`
}

// InstallKind classifies how an MCP server is installed and launched.
type InstallKind string

const (
	InstallNPM    InstallKind = "npm"
	InstallPipx   InstallKind = "pipx"
	InstallCargo  InstallKind = "cargo"
	InstallGo     InstallKind = "go"
	InstallDocker InstallKind = "docker"
	InstallGit    InstallKind = "git"
	InstallBinary InstallKind = "binary"
)

// InstallMethod is one way to install and run an MCP server.
// Lower Priority numbers are preferred; the primary method determines the
// record's top-level endpoint command.
type InstallMethod struct {
	Kind        InstallKind `json:"kind"`
	Command     string      `json:"command"`
	Description string      `json:"description,omitempty"`
	Priority    int         `json:"priority"`
	Confidence  int         `json:"confidence"` // 0-100
}

// AuthMethod is a way an MCP server authenticates its upstream service.
type AuthMethod string

const (
	AuthNone        AuthMethod = "none"
	AuthAPIKey      AuthMethod = "api_key"
	AuthOAuth       AuthMethod = "oauth"
	AuthToken       AuthMethod = "token"
	AuthCredentials AuthMethod = "credentials"
	AuthBasic       AuthMethod = "basic"
	AuthCustom      AuthMethod = "custom"
)

// SetupComplexity grades how hard an MCP server is to configure.
type SetupComplexity string

const (
	SetupSimple   SetupComplexity = "simple"
	SetupModerate SetupComplexity = "moderate"
	SetupComplex  SetupComplexity = "complex"
)

// AuthRequirement describes what credentials an MCP server needs.
// If Required is true, Methods is non-empty.
type AuthRequirement struct {
	Required    bool            `json:"required"`
	Methods     []AuthMethod    `json:"methods,omitempty"`
	RequiredEnv []string        `json:"required_env,omitempty"` // uppercase identifiers, order preserved
	OptionalEnv []string        `json:"optional_env,omitempty"`
	Complexity  SetupComplexity `json:"setup_complexity,omitempty"`
	Summary     string          `json:"summary,omitempty"`
}

// HealthStatus classifies whether an MCP server actually works when launched.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
	HealthUnknown  HealthStatus = "unknown"
)

// TestingStrategy records how far live validation got.
type TestingStrategy string

const (
	StrategyFull          TestingStrategy = "full"
	StrategyFallbackBasic TestingStrategy = "fallback_basic"
)

// ConnectionType is the transport an MCP server speaks.
type ConnectionType string

const (
	ConnectionStdio     ConnectionType = "stdio"
	ConnectionHTTP      ConnectionType = "http"
	ConnectionWebsocket ConnectionType = "websocket"
)

// IntelligenceReport is the product of live validation: install, spawn,
// MCP handshake, tool enumeration, and probing.
type IntelligenceReport struct {
	ProtocolVersion   string          `json:"protocol_version,omitempty"`
	Capabilities      map[string]any  `json:"capabilities,omitempty"`
	InitTimeMS        int64           `json:"init_time_ms"`
	Tools             []Tool          `json:"tools,omitempty"` // authoritative when Strategy is full
	WorkingTools      []string        `json:"working_tools,omitempty"`
	FailingTools      []string        `json:"failing_tools,omitempty"`
	AvgToolTimeMS     int64           `json:"avg_tool_time_ms,omitempty"`
	ReliabilityScore  *float64        `json:"reliability_score,omitempty"` // 0-1, nil on fallback
	ErrorPatterns     []string        `json:"error_patterns,omitempty"`
	Strategy          TestingStrategy `json:"testing_strategy"`
	Health            HealthStatus    `json:"health"`
	AuthRequired      bool            `json:"auth_required"`
	GuessedAuthMethod AuthMethod      `json:"guessed_auth_method,omitempty"` // fallback only
	GuessedEnv        []string        `json:"guessed_env,omitempty"`         // fallback only
}

// Verified reports whether live validation completed the full strategy.
func (r *IntelligenceReport) Verified() bool {
	return r != nil && r.Strategy == StrategyFull
}

// FieldSource records who last wrote a canonical field.
// Operator-owned fields are never overwritten by the crawler.
type FieldSource string

const (
	SourceCrawler  FieldSource = "crawler"
	SourceOperator FieldSource = "operator"
)

// MCP is the canonical, persisted record consumed by downstream systems.
type MCP struct {
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	DisplayName      string          `json:"display_name,omitempty"`
	ShortDescription string          `json:"short_description,omitempty"`
	LongDescription  string          `json:"long_description,omitempty"`
	Ecosystem        Ecosystem       `json:"ecosystem"`
	Identifier       string          `json:"identifier"` // registry identity within the ecosystem
	InstallType      InstallKind     `json:"install_type,omitempty"`
	Endpoint         string          `json:"endpoint,omitempty"` // primary install method's command
	InstallMethods   []InstallMethod `json:"installation_methods,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	ToolCount        int             `json:"tool_count"`
	WorkingTools     []string        `json:"working_tools,omitempty"`
	FailingTools     []string        `json:"failing_tools,omitempty"`
	Auth             AuthRequirement `json:"auth"`
	ProtocolVersion  string          `json:"protocol_version,omitempty"`
	ConnectionType   ConnectionType  `json:"connection_type,omitempty"`
	Category         Category        `json:"category"`
	Tags             []string        `json:"tags,omitempty"`
	UseCases         []string        `json:"use_cases,omitempty"`
	RepositoryURL    string          `json:"repository_url,omitempty"`
	DocumentationURL string          `json:"documentation_url,omitempty"`
	HomepageURL      string          `json:"homepage_url,omitempty"`
	Author           string          `json:"author,omitempty"`
	Company          string          `json:"company,omitempty"`
	License          string          `json:"license,omitempty"`
	HealthStatus     HealthStatus    `json:"health_status"`
	Verified         bool            `json:"verified"`
	AutoDiscovered   bool            `json:"auto_discovered"`
	DiscoverySource  string          `json:"discovery_source,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	LastScrapedAt    *time.Time      `json:"last_scraped_at,omitempty"`
	LastValidatedAt  *time.Time      `json:"last_validated_at,omitempty"`

	// FieldSources maps canonical field names (JSON names) to who owns them.
	// Missing entries default to crawler ownership.
	FieldSources map[string]FieldSource `json:"field_sources,omitempty"`
}

// OwnedByOperator reports whether the named field was operator-edited.
func (m *MCP) OwnedByOperator(field string) bool {
	return m.FieldSources[field] == SourceOperator
}

// SearchText derives the full-text-search value from the record's
// name, description, tags, use cases, category, and author.
func (m *MCP) SearchText() string {
	parts := []string{m.Name, m.ShortDescription, m.LongDescription}
	parts = append(parts, m.Tags...)
	parts = append(parts, m.UseCases...)
	parts = append(parts, string(m.Category), m.Author)
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(p))
	}
	return b.String()
}

// RunStatus is the terminal state of a crawl run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// RunCounts aggregates per-run candidate accounting.
type RunCounts struct {
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
	New        int `json:"new"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Conflicts  int `json:"conflicts"`
}

// Run is one row of append-only run history.
type Run struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      RunStatus  `json:"status"`
	Counts      RunCounts  `json:"counts"`
	Errors      []string   `json:"errors,omitempty"` // bounded list of candidate error messages
	Cause       string     `json:"cause,omitempty"`  // top-level cause for failed runs

	// LastCandidate is the candidate most recently picked up before a run
	// failed; empty on completed runs.
	LastCandidate string `json:"last_candidate,omitempty"`
}

// Duration returns the run's wall clock duration, or zero while in flight.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
