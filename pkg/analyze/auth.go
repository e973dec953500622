package analyze

import (
	"regexp"
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

var envVarRE = regexp.MustCompile(`[A-Z][A-Z0-9_]{2,}_(?:KEY|TOKEN|SECRET|ID|URL)`)

// ExtractAuth scans the combined text and the scraper's auth hints for
// authentication requirements. Deterministic: fixed token tables, fixed
// method order, env vars deduplicated in first-seen order.
func ExtractAuth(text string, hints []string) model.AuthRequirement {
	combined := text + "\n" + strings.Join(hints, "\n")
	lower := strings.ToLower(combined)

	var methods []model.AuthMethod
	add := func(m model.AuthMethod) {
		for _, have := range methods {
			if have == m {
				return
			}
		}
		methods = append(methods, m)
	}

	if strings.Contains(lower, "api_key") || strings.Contains(lower, "api key") {
		add(model.AuthAPIKey)
	}
	if strings.Contains(lower, "oauth") || strings.Contains(lower, "authorization code") {
		add(model.AuthOAuth)
	}
	if strings.Contains(lower, "bearer") || containsWord(lower, "token") {
		add(model.AuthToken)
	}
	if (strings.Contains(lower, "username") && strings.Contains(lower, "password")) ||
		strings.Contains(lower, "credentials") {
		add(model.AuthCredentials)
	}

	explicitNone := strings.Contains(lower, "no auth") || strings.Contains(lower, "anonymous")

	var required, optional []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(combined, "\n") {
		for _, v := range envVarRE.FindAllString(line, -1) {
			if seen[v] {
				continue
			}
			seen[v] = true
			if strings.Contains(strings.ToLower(line), "optional") {
				optional = append(optional, v)
			} else {
				required = append(required, v)
			}
		}
	}

	req := model.AuthRequirement{
		RequiredEnv: required,
		OptionalEnv: optional,
	}
	switch {
	case len(methods) > 0:
		req.Required = true
		req.Methods = methods
	case explicitNone || len(required) == 0:
		req.Methods = []model.AuthMethod{model.AuthNone}
	default:
		// Env vars without a recognizable method still mean setup is needed.
		req.Required = true
		req.Methods = []model.AuthMethod{model.AuthCustom}
	}

	req.Complexity = classifyComplexity(req.Methods, len(required))
	req.Summary = authSummary(req)
	return req
}

// containsWord matches token as a whole word, so "token" does not fire on
// "tokenizer".
func containsWord(text, word string) bool {
	for i := strings.Index(text, word); i >= 0; {
		before := i == 0 || !isWordChar(text[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(text) || !isWordChar(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[i+1:], word)
		if next < 0 {
			return false
		}
		i += 1 + next
	}
	return false
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func classifyComplexity(methods []model.AuthMethod, envCount int) model.SetupComplexity {
	hasOAuth := false
	simpleMethod := true
	for _, m := range methods {
		if m == model.AuthOAuth {
			hasOAuth = true
		}
		if m != model.AuthNone && m != model.AuthAPIKey {
			simpleMethod = false
		}
	}
	switch {
	case hasOAuth || envCount >= 4:
		return model.SetupComplex
	case simpleMethod && envCount <= 1:
		return model.SetupSimple
	default:
		return model.SetupModerate
	}
}

func authSummary(req model.AuthRequirement) string {
	if !req.Required {
		return "No authentication required"
	}
	var names []string
	for _, m := range req.Methods {
		names = append(names, strings.ReplaceAll(string(m), "_", " "))
	}
	s := "Requires " + strings.Join(names, " or ")
	if n := len(req.RequiredEnv); n == 1 {
		s += " via " + req.RequiredEnv[0]
	} else if n > 1 {
		s += " via environment variables"
	}
	return s
}
