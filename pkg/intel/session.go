package intel

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcpscout/mcpcrawl/pkg/buildinfo"
	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// validate spawns the server, performs the MCP handshake, enumerates tools,
// and probes them. The returned report has Strategy full; any error means
// the caller must fall back. On error the server's captured stderr is
// returned alongside, since dying servers explain themselves there.
func (c *Collector) validate(ctx context.Context, scratch string, method model.InstallMethod) (*model.IntelligenceReport, string, error) {
	cmd, err := buildCommand(scratch, method.Command)
	if err != nil {
		return nil, "", err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "mcpcrawl",
		Version: buildinfo.Version,
	}, nil)

	connectCtx, connectCancel := context.WithTimeout(ctx, c.cfg.SpawnTimeout+c.cfg.HandshakeTimeout)
	defer connectCancel()

	start := time.Now()
	session, err := client.Connect(connectCtx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, stderr.String(), crawlerrors.Wrap(crawlerrors.ErrCodeHandshakeFailed, err, "connect %q", method.Command)
	}
	initTime := time.Since(start)
	defer session.Close()

	// The SDK tears the subprocess down on Close; the watchdog covers the
	// case where the server ignores stdin EOF past the candidate budget.
	stopWatchdog := watchProcess(ctx, cmd)
	defer stopWatchdog()

	report := &model.IntelligenceReport{
		Strategy:   model.StrategyFull,
		InitTimeMS: initTime.Milliseconds(),
	}
	if init := session.InitializeResult(); init != nil {
		report.ProtocolVersion = init.ProtocolVersion
		report.Capabilities = schemaToMap(init.Capabilities)
	}

	listCtx, listCancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer listCancel()
	listed, err := session.ListTools(listCtx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, stderr.String(), crawlerrors.Wrap(crawlerrors.ErrCodeHandshakeFailed, err, "tools/list")
	}
	for _, t := range listed.Tools {
		report.Tools = append(report.Tools, model.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
		})
	}

	worked, failedNonAuth := c.probeTools(ctx, session, report)

	report.Health = classifyHealth(true, len(report.Tools), worked, failedNonAuth, report.AuthRequired)
	score := 1.0
	if probed := worked + failedNonAuth; probed > 0 {
		score = float64(worked) / float64(probed)
	}
	report.ReliabilityScore = &score
	return report, "", nil
}

// probeTools invokes up to MaxProbes tools with empty arguments and fills
// the report's working/failing lists. Auth-flavored failures flip
// AuthRequired instead of counting against the server.
func (c *Collector) probeTools(ctx context.Context, session *mcp.ClientSession, report *model.IntelligenceReport) (worked, failedNonAuth int) {
	if !c.cfg.ProbeTools {
		return 0, 0
	}

	working := make(map[string]bool)
	failing := make(map[string]bool)
	var totalTime time.Duration

	for i, tool := range report.Tools {
		if i >= c.cfg.MaxProbes || ctx.Err() != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.ToolTimeout)
		start := time.Now()
		res, err := session.CallTool(callCtx, &mcp.CallToolParams{
			Name:      tool.Name,
			Arguments: map[string]any{},
		})
		totalTime += time.Since(start)
		cancel()

		switch {
		case err == nil && (res == nil || !res.IsError):
			working[tool.Name] = true
			worked++
		default:
			failing[tool.Name] = true
			msg := errorText(res, err)
			report.ErrorPatterns = recordPattern(report.ErrorPatterns, msg)
			if looksLikeAuthError(msg) {
				report.AuthRequired = true
			} else {
				failedNonAuth++
			}
		}
	}

	report.WorkingTools = sortedNames(working)
	report.FailingTools = sortedNames(failing)
	if probed := len(working) + len(failing); probed > 0 {
		report.AvgToolTimeMS = (totalTime / time.Duration(probed)).Milliseconds()
	}
	return worked, failedNonAuth
}

// errorText extracts a message from a tool failure: transport error first,
// then any text content of an IsError result.
func errorText(res *mcp.CallToolResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if res == nil {
		return ""
	}
	var parts []string
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok && tc.Text != "" {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, " ")
}

// buildCommand parses a launch command line into an exec.Cmd rooted in the
// scratch directory, in its own process group.
func buildCommand(scratch, command string) (*exec.Cmd, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, crawlerrors.New(crawlerrors.ErrCodeSpawnFailed, "empty launch command")
	}
	// npx prompts before downloading unless told not to.
	if fields[0] == "npx" && !contains(fields, "-y") {
		fields = append([]string{"npx", "-y"}, fields[1:]...)
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Dir = scratch
	cmd.Env = scratchEnv(scratch)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd, nil
}

// watchProcess terminates the server's process group if ctx expires before
// the session is closed: SIGTERM, a 2 second grace, then SIGKILL.
func watchProcess(ctx context.Context, cmd *exec.Cmd) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		if cmd.Process == nil {
			return
		}
		pgid := -cmd.Process.Pid
		_ = syscall.Kill(pgid, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = syscall.Kill(pgid, syscall.SIGKILL)
		}
	}()
	return func() { close(done) }
}

func contains(fields []string, want string) bool {
	for _, f := range fields {
		if f == want {
			return true
		}
	}
	return false
}
