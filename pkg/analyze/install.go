package analyze

import (
	"regexp"
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

// Priorities: lower is preferred. The order encodes how directly a method
// runs the server (npx runs it in place; git clone still needs a build).
var kindPriority = map[model.InstallKind]int{
	model.InstallNPM:    1,
	model.InstallPipx:   2,
	model.InstallCargo:  3,
	model.InstallGo:     4,
	model.InstallDocker: 5,
	model.InstallGit:    6,
	model.InstallBinary: 7,
}

const (
	confidenceExplicit = 95 // command found verbatim in docs
	confidenceInferred = 80 // derived from the package's ecosystem
	confidenceFallback = 50 // generic last resort
)

// priorityFallback ranks an inferred method below every documented one, so
// the fallback never shadows a command the docs actually show.
const priorityFallback = 9

// commandKinds maps a command's first token to an install kind.
var commandKinds = map[string]model.InstallKind{
	"npx":    model.InstallNPM,
	"npm":    model.InstallNPM,
	"yarn":   model.InstallNPM,
	"pnpm":   model.InstallNPM,
	"pipx":   model.InstallPipx,
	"pip":    model.InstallPipx,
	"uvx":    model.InstallPipx,
	"uv":     model.InstallPipx,
	"cargo":  model.InstallCargo,
	"go":     model.InstallGo,
	"docker": model.InstallDocker,
	"git":    model.InstallGit,
}

var (
	commentRE = regexp.MustCompile(`^\s*(#|//)`)
	// Insert a space between an alphanumeric and a glued --flag or short
	// docker flag. Applied only to docker commands, where pasted docs
	// commonly concatenate flags.
	gluedLongFlagRE  = regexp.MustCompile(`([A-Za-z0-9])(--[A-Za-z])`)
	gluedShortFlagRE = regexp.MustCompile(`([A-Za-z0-9])-([A-Za-z])(\s|$)`)
	wsRE             = regexp.MustCompile(`\s+`)
)

// ExtractInstallMethods parses installation commands out of the scraped
// shell blocks and always appends the ecosystem-idiomatic fallback, so every
// candidate has at least one runnable method.
func ExtractInstallMethods(b *scrape.Bundle) []model.InstallMethod {
	var methods []model.InstallMethod
	seen := make(map[string]bool)

	add := func(m model.InstallMethod) {
		if m.Command == "" || seen[m.Command] {
			return
		}
		seen[m.Command] = true
		methods = append(methods, m)
	}

	for _, block := range b.InstallHints {
		for _, line := range strings.Split(block, "\n") {
			if m, ok := parseCommandLine(line); ok {
				add(m)
			}
		}
	}

	if fb := fallbackMethod(b.Candidate.Ecosystem, b.Candidate.Identifier); fb.Command != "" {
		fb.Confidence = confidenceInferred
		if len(methods) > 0 {
			fb.Confidence = confidenceFallback
			fb.Priority = priorityFallback
		}
		add(fb)
	}
	return methods
}

// parseCommandLine classifies one shell line as an install method.
func parseCommandLine(line string) (model.InstallMethod, bool) {
	line = strings.TrimSpace(line)
	if line == "" || commentRE.MatchString(line) {
		return model.InstallMethod{}, false
	}
	line = strings.TrimPrefix(line, "$ ")

	first := strings.Fields(line)
	if len(first) == 0 {
		return model.InstallMethod{}, false
	}
	kind, ok := commandKinds[first[0]]
	if !ok {
		return model.InstallMethod{}, false
	}
	// Only go install/run launch a published module. go build is a source
	// build and ranks with git, below docker.
	if first[0] == "go" && (len(first) < 2 || (first[1] != "install" && first[1] != "run")) {
		kind = model.InstallGit
	}

	command := NormalizeCommand(line, kind)
	return model.InstallMethod{
		Kind:        kind,
		Command:     command,
		Description: describeMethod(kind),
		Priority:    kindPriority[kind],
		Confidence:  confidenceExplicit,
	}, true
}

// NormalizeCommand collapses whitespace and, for docker commands, repairs
// flag concatenation: "docker run -i--rm-e VAR" -> "docker run -i --rm -e VAR".
func NormalizeCommand(cmd string, kind model.InstallKind) string {
	cmd = strings.TrimSpace(cmd)
	if kind == model.InstallDocker {
		cmd = gluedLongFlagRE.ReplaceAllString(cmd, "$1 $2")
		// Repeated application handles chains like "-i--rm-e".
		for {
			fixed := gluedShortFlagRE.ReplaceAllString(cmd, "$1 -$2$3")
			if fixed == cmd {
				break
			}
			cmd = fixed
		}
	}
	return wsRE.ReplaceAllString(cmd, " ")
}

func describeMethod(kind model.InstallKind) string {
	switch kind {
	case model.InstallNPM:
		return "Run with npx (Node.js)"
	case model.InstallPipx:
		return "Run with pipx/uvx (Python)"
	case model.InstallCargo:
		return "Install with cargo (Rust)"
	case model.InstallGo:
		return "Install with the Go toolchain"
	case model.InstallDocker:
		return "Run as a Docker container"
	case model.InstallGit:
		return "Clone and build from source"
	default:
		return "Download the released binary"
	}
}

// fallbackMethod is the ecosystem-idiomatic way to run the package even when
// the docs are silent.
func fallbackMethod(eco model.Ecosystem, identifier string) model.InstallMethod {
	switch eco {
	case model.EcosystemNPM:
		return model.InstallMethod{
			Kind:        model.InstallNPM,
			Command:     "npx " + identifier,
			Description: describeMethod(model.InstallNPM),
			Priority:    kindPriority[model.InstallNPM],
		}
	case model.EcosystemPyPI:
		return model.InstallMethod{
			Kind:        model.InstallPipx,
			Command:     "pipx run " + identifier,
			Description: describeMethod(model.InstallPipx),
			Priority:    kindPriority[model.InstallPipx],
		}
	case model.EcosystemCargo:
		return model.InstallMethod{
			Kind:        model.InstallCargo,
			Command:     "cargo install " + identifier,
			Description: describeMethod(model.InstallCargo),
			Priority:    kindPriority[model.InstallCargo],
		}
	case model.EcosystemGo:
		return model.InstallMethod{
			Kind:        model.InstallGo,
			Command:     "go run " + identifier + "@latest",
			Description: describeMethod(model.InstallGo),
			Priority:    kindPriority[model.InstallGo],
		}
	}
	return model.InstallMethod{}
}
