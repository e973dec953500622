package intel

import (
	"context"
	"encoding/json"
	"strings"
	"syscall"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// captureToolBlob is the last resort when the handshake fails: run the
// server briefly and scan whatever it prints for a JSON tool inventory.
// Some servers dump their tools on startup before (or instead of) speaking
// the protocol.
func (c *Collector) captureToolBlob(ctx context.Context, scratch, command string) []model.Tool {
	if ctx.Err() != nil {
		return nil
	}
	cmd, err := buildCommand(scratch, command)
	if err != nil {
		return nil
	}

	bctx, cancel := context.WithTimeout(ctx, c.cfg.SpawnTimeout)
	defer cancel()

	var buf strings.Builder
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Start(); err != nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-bctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			<-done
		}
	}
	return ParseToolBlob(buf.String())
}

// ParseToolBlob extracts tool definitions from free-form process output
// containing a JSON object with a "tools" array, e.g.
//
//	{"tools": [{"name": "read_file", "description": "..."}]}
//
// Illegal tool names are dropped; a blob that yields none returns nil.
func ParseToolBlob(output string) []model.Tool {
	idx := strings.Index(output, `"tools"`)
	if idx < 0 {
		return nil
	}
	// Backtrack to the object that owns the "tools" key.
	start := strings.LastIndexByte(output[:idx], '{')
	if start < 0 {
		return nil
	}

	var blob struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	dec := json.NewDecoder(strings.NewReader(output[start:]))
	if err := dec.Decode(&blob); err != nil {
		return nil
	}

	var tools []model.Tool
	seen := make(map[string]bool)
	for _, t := range blob.Tools {
		if !model.ValidToolName(t.Name) || seen[strings.ToLower(t.Name)] {
			continue
		}
		seen[strings.ToLower(t.Name)] = true
		tools = append(tools, model.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return tools
}
