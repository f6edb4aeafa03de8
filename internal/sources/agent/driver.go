package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"content-harvest/internal/entity"
)

// ProcessDriver is the real Driver: it shells out to the agent-browser
// binary once per step, matching the original subprocess protocol exactly.
type ProcessDriver struct {
	// BinaryPath is the agent-browser executable; defaults to "agent-browser"
	// on PATH when empty.
	BinaryPath string
}

func (d *ProcessDriver) binary() string {
	if d.BinaryPath != "" {
		return d.BinaryPath
	}
	return "agent-browser"
}

// Run executes one agent-browser step scoped to session.
func (d *ProcessDriver) Run(ctx context.Context, session string, args ...string) (map[string]any, error) {
	fullArgs := append([]string{"--session", session}, args...)
	cmd := exec.CommandContext(ctx, d.binary(), fullArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return nil, &entity.FetchError{Message: fmt.Sprintf("agent-browser failed: %s", msg), Cause: err}
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return nil, nil
	}
	return parseJSONObject(output)
}

// parseJSONObject extracts the first {...} span from output and decodes
// it, tolerating log lines the agent-browser binary may print around its
// JSON payload.
func parseJSONObject(output string) (map[string]any, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(output[start:end+1]), &obj); err != nil {
		return nil, nil
	}
	return obj, nil
}
