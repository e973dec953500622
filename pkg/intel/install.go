package intel

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// install provisions the candidate into the scratch directory. Runner-style
// kinds (npx, pipx run, go run, docker) resolve the package themselves at
// spawn time, so only kinds with a separate install step do work here.
func (c *Collector) install(ctx context.Context, scratch string, cand model.Candidate, method model.InstallMethod) error {
	args := installArgs(method.Kind, cand.Identifier, scratch)
	if args == nil {
		return nil
	}

	ictx, cancel := context.WithTimeout(ctx, c.cfg.InstallTimeout)
	defer cancel()

	cmd := exec.CommandContext(ictx, args[0], args[1:]...)
	cmd.Dir = scratch
	cmd.Env = scratchEnv(scratch)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return crawlerrors.Wrap(crawlerrors.ErrCodeInstallFailed, err,
			"%s install of %s: %s", method.Kind, cand.Identifier, firstLine(string(out)))
	}
	return nil
}

// installArgs returns the install command for kinds that need one, or nil
// when spawn handles resolution itself.
func installArgs(kind model.InstallKind, identifier, scratch string) []string {
	switch kind {
	case model.InstallNPM:
		return []string{"npm", "install", "--prefix", scratch, "--no-audit", "--no-fund", identifier}
	case model.InstallPipx:
		return []string{"python3", "-m", "pip", "install", "--quiet", "--target", filepath.Join(scratch, "site-packages"), identifier}
	case model.InstallCargo:
		return []string{"cargo", "install", "--quiet", "--root", scratch, identifier}
	default:
		return nil
	}
}

// scratchEnv is the subprocess environment: the parent's, with the scratch
// install locations prepended so spawn finds what install produced.
func scratchEnv(scratch string) []string {
	env := os.Environ()
	extra := strings.Join([]string{
		filepath.Join(scratch, "node_modules", ".bin"),
		filepath.Join(scratch, "bin"),
	}, string(os.PathListSeparator))

	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + extra + string(os.PathListSeparator) + strings.TrimPrefix(kv, "PATH=")
			return append(env, "PYTHONPATH="+filepath.Join(scratch, "site-packages"))
		}
	}
	return append(env, "PATH="+extra, "PYTHONPATH="+filepath.Join(scratch, "site-packages"))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
