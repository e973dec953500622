package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/normalize"
)

// UpsertOutcome classifies one Upsert call.
type UpsertOutcome string

const (
	OutcomeCreated   UpsertOutcome = "created"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
	OutcomeConflict  UpsertOutcome = "conflict"
)

// Upsert writes a canonical record, idempotently by slug. When a record with
// the slug exists, the merge rules apply over it; a no-op merge leaves the
// row (and updated_at) untouched. A unique-constraint conflict is retried
// once before being reported.
func (s *Store) Upsert(ctx context.Context, fresh *model.MCP) (UpsertOutcome, error) {
	lock := s.slugLock(fresh.Slug)
	lock.Lock()
	defer lock.Unlock()

	outcome, err := s.upsertOnce(ctx, fresh)
	if isConstraintErr(err) {
		outcome, err = s.upsertOnce(ctx, fresh)
		if isConstraintErr(err) {
			return OutcomeConflict, crawlerrors.Wrap(crawlerrors.ErrCodeConflict, err, "upsert %s", fresh.Slug)
		}
	}
	return outcome, err
}

func (s *Store) upsertOnce(ctx context.Context, fresh *model.MCP) (UpsertOutcome, error) {
	existing, err := s.Get(ctx, fresh.Slug)
	if err != nil && !crawlerrors.Is(err, crawlerrors.ErrCodeRecordNotFound) {
		return "", err
	}

	if existing == nil {
		if err := s.insert(ctx, fresh); err != nil {
			return "", err
		}
		return OutcomeCreated, nil
	}

	merged, changed := normalize.Merge(existing, fresh, time.Now().UTC())
	if !changed {
		// Bookkeeping timestamps still advance.
		if err := s.touch(ctx, merged); err != nil {
			return "", err
		}
		return OutcomeUnchanged, nil
	}
	if err := s.update(ctx, merged); err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}

func (s *Store) insert(ctx context.Context, m *model.MCP) error {
	cols, args := recordArgs(m)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := "INSERT INTO mcps (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders + ")"
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) update(ctx context.Context, m *model.MCP) error {
	cols, args := recordArgs(m)
	var sets []string
	for _, c := range cols[1:] { // skip slug
		sets = append(sets, c+" = ?")
	}
	query := "UPDATE mcps SET " + strings.Join(sets, ", ") + " WHERE slug = ?"
	args = append(args[1:], m.Slug)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) touch(ctx context.Context, m *model.MCP) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE mcps SET last_scraped_at = ?, last_validated_at = ? WHERE slug = ?`,
		nullTime(m.LastScrapedAt), nullTime(m.LastValidatedAt), m.Slug)
	return err
}

// recordArgs flattens a record into column names and values, in one place so
// insert and update cannot drift.
func recordArgs(m *model.MCP) (cols []string, args []any) {
	add := func(col string, val any) {
		cols = append(cols, col)
		args = append(args, val)
	}
	add("slug", m.Slug)
	add("name", m.Name)
	add("display_name", m.DisplayName)
	add("short_description", m.ShortDescription)
	add("long_description", m.LongDescription)
	add("ecosystem", string(m.Ecosystem))
	add("identifier", m.Identifier)
	add("install_type", string(m.InstallType))
	add("endpoint", m.Endpoint)
	add("install_methods", asJSON(m.InstallMethods))
	add("tools", asJSON(m.Tools))
	add("tool_count", m.ToolCount)
	add("working_tools", asJSON(m.WorkingTools))
	add("failing_tools", asJSON(m.FailingTools))
	add("auth", asJSON(m.Auth))
	add("protocol_version", m.ProtocolVersion)
	add("connection_type", string(m.ConnectionType))
	add("category", string(m.Category))
	add("tags", asJSON(m.Tags))
	add("use_cases", asJSON(m.UseCases))
	add("repository_url", m.RepositoryURL)
	add("documentation_url", m.DocumentationURL)
	add("homepage_url", m.HomepageURL)
	add("author", m.Author)
	add("company", m.Company)
	add("license", m.License)
	add("health_status", string(m.HealthStatus))
	add("verified", boolInt(m.Verified))
	add("auto_discovered", boolInt(m.AutoDiscovered))
	add("discovery_source", m.DiscoverySource)
	add("field_sources", asJSON(m.FieldSources))
	add("search_text", m.SearchText())
	add("created_at", m.CreatedAt.UTC().Format(time.RFC3339Nano))
	add("updated_at", m.UpdatedAt.UTC().Format(time.RFC3339Nano))
	add("last_scraped_at", nullTime(m.LastScrapedAt))
	add("last_validated_at", nullTime(m.LastValidatedAt))
	return cols, args
}

const selectColumns = `slug, name, display_name, short_description, long_description,
	ecosystem, identifier, install_type, endpoint, install_methods, tools, tool_count,
	working_tools, failing_tools, auth, protocol_version, connection_type, category,
	tags, use_cases, repository_url, documentation_url, homepage_url, author, company,
	license, health_status, verified, auto_discovered, discovery_source, field_sources,
	created_at, updated_at, last_scraped_at, last_validated_at`

// Get loads one record by slug.
func (s *Store) Get(ctx context.Context, slug string) (*model.MCP, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM mcps WHERE slug = ?", slug)
	m, err := scanMCP(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crawlerrors.New(crawlerrors.ErrCodeRecordNotFound, "no record with slug %q", slug)
	}
	return m, err
}

// All returns every record ordered by slug, for index building and the
// health-check command.
func (s *Store) All(ctx context.Context) ([]*model.MCP, error) {
	return s.query(ctx, "SELECT "+selectColumns+" FROM mcps ORDER BY slug")
}

// AgentReady returns the records visible through the agent_ready_mcps view.
func (s *Store) AgentReady(ctx context.Context) ([]*model.MCP, error) {
	return s.query(ctx, "SELECT "+selectColumns+" FROM agent_ready_mcps ORDER BY slug")
}

// Count returns the number of persisted records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mcps").Scan(&n)
	return n, err
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*model.MCP, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.MCP
	for rows.Next() {
		m, err := scanMCP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMCP(row scanner) (*model.MCP, error) {
	var m model.MCP
	var installMethods, tools, working, failing string
	var auth, tags, useCases, fieldSources string
	var eco, installType, connType, category, health string
	var verified, autoDiscovered int
	var createdAt, updatedAt string
	var lastScraped, lastValidated sql.NullString
	err := row.Scan(
		&m.Slug, &m.Name, &m.DisplayName, &m.ShortDescription, &m.LongDescription,
		&eco, &m.Identifier, &installType, &m.Endpoint, &installMethods, &tools, &m.ToolCount,
		&working, &failing, &auth, &m.ProtocolVersion, &connType, &category,
		&tags, &useCases, &m.RepositoryURL, &m.DocumentationURL, &m.HomepageURL, &m.Author, &m.Company,
		&m.License, &health, &verified, &autoDiscovered, &m.DiscoverySource, &fieldSources,
		&createdAt, &updatedAt, &lastScraped, &lastValidated,
	)
	if err != nil {
		return nil, err
	}

	m.Ecosystem = model.Ecosystem(eco)
	m.InstallType = model.InstallKind(installType)
	m.ConnectionType = model.ConnectionType(connType)
	m.Category = model.Category(category)
	m.HealthStatus = model.HealthStatus(health)
	m.Verified = verified != 0
	m.AutoDiscovered = autoDiscovered != 0

	fromJSON(installMethods, &m.InstallMethods)
	fromJSON(tools, &m.Tools)
	fromJSON(working, &m.WorkingTools)
	fromJSON(failing, &m.FailingTools)
	fromJSON(auth, &m.Auth)
	fromJSON(tags, &m.Tags)
	fromJSON(useCases, &m.UseCases)
	fromJSON(fieldSources, &m.FieldSources)

	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	if lastScraped.Valid {
		t := parseTime(lastScraped.String)
		m.LastScrapedAt = &t
	}
	if lastValidated.Valid {
		t := parseTime(lastValidated.String)
		m.LastValidatedAt = &t
	}
	return &m, nil
}

// RecordMergeEvent stores a cross-slug dedup hit for operator review.
func (s *Store) RecordMergeEvent(ctx context.Context, ev normalize.MergeEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO merge_events (candidate_slug, existing_slug, via, at) VALUES (?, ?, ?, ?)`,
		ev.CandidateSlug, ev.ExistingSlug, string(ev.Via), ev.At.UTC().Format(time.RFC3339Nano))
	return err
}

// MergeEvents returns the most recent n recorded dedup hits, newest first.
func (s *Store) MergeEvents(ctx context.Context, n int) ([]normalize.MergeEvent, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_slug, existing_slug, via, at
		 FROM merge_events ORDER BY at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []normalize.MergeEvent
	for rows.Next() {
		var ev normalize.MergeEvent
		var via, at string
		if err := rows.Scan(&ev.CandidateSlug, &ev.ExistingSlug, &via, &at); err != nil {
			return nil, err
		}
		ev.Via = normalize.MatchKey(via)
		ev.At = parseTime(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SlugExists reports which identity owns a slug, for collision resolution.
func (s *Store) SlugExists(ctx context.Context) func(slug string) (model.Ecosystem, string, bool) {
	return func(slug string) (model.Ecosystem, string, bool) {
		var eco, identifier string
		err := s.db.QueryRowContext(ctx,
			"SELECT ecosystem, identifier FROM mcps WHERE slug = ?", slug).Scan(&eco, &identifier)
		if err != nil {
			return "", "", false
		}
		return model.Ecosystem(eco), identifier, true
	}
}

func asJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}

func fromJSON[T any](raw string, dst *T) {
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), dst)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint")
}
