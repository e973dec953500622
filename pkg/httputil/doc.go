// Package httputil provides the crawler's outbound HTTP layer.
//
// Every request the crawler makes to a package registry, repository host, or
// documentation site goes through [Fetcher], which enforces per-host token
// bucket rate limits, applies per-request timeouts, retries transient
// failures with exponential backoff, and identifies the crawler with a fixed
// User-Agent.
//
// Hosts are grouped into categories (registry, repo_api, doc_site, generic)
// with independently configurable request rates. Public registries get
// conservative defaults; operators can raise them in configuration.
package httputil
