package out_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	pluginout "daytask/internal/modules/plugin/adapter/out"
	"daytask/internal/modules/plugin/domain"
)

func TestGRPCHostIntegrationReferencePlugin(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the reference plugin")
	}
	binPath, checksum := buildReferencePlugin(t)
	manifest := domain.Manifest{
		Name:         "reference",
		Version:      "1.0.0",
		Binary:       binPath,
		SHA256:       checksum,
		Enabled:      true,
		Capabilities: []domain.Capability{domain.CapabilityCommand, domain.CapabilityAnalyze},
	}

	var logs bytes.Buffer
	host := pluginout.NewGRPCHost(&logs)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := host.CheckLifecycle(ctx, manifest); err != nil {
		t.Fatalf("check lifecycle: %v", err)
	}
	metadata, err := host.GetMetadata(ctx, manifest)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if metadata.Name != "reference" || metadata.Version != "1.0.0" {
		t.Fatalf("unexpected metadata: %+v", metadata)
	}
	commands, err := host.ListCommands(ctx, manifest)
	if err != nil {
		t.Fatalf("list commands: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(commands))
	}

	execCtx := domain.ExecuteContext{DataDir: t.TempDir(), Cwd: t.TempDir(), Day: "2024-03-10"}
	echo, err := host.Execute(ctx, manifest, domain.ExecuteRequest{
		CommandID: "echo",
		InputJSON: `{"message":"hello"}`,
		Context:   execCtx,
	})
	if err != nil {
		t.Fatalf("execute echo: %v", err)
	}
	if echo.ExitCode != 0 || echo.Stdout != `{"message":"hello"}` {
		t.Fatalf("unexpected echo result: %+v", echo)
	}

	execCtx.Tasks = []domain.TaskRef{
		{ID: "a", Title: "Gym", DueAt: time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)},
		{ID: "b", Title: "Standup", DueAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), Completed: true},
	}
	summary, err := host.Execute(ctx, manifest, domain.ExecuteRequest{CommandID: "day-summary", Context: execCtx})
	if err != nil {
		t.Fatalf("execute day-summary: %v", err)
	}
	var payload struct {
		Day       string `json:"day"`
		Total     int    `json:"total"`
		Completed int    `json:"completed"`
		Open      int    `json:"open"`
	}
	if err := json.Unmarshal([]byte(summary.OutputJSON), &payload); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if payload.Day != "2024-03-10" || payload.Total != 2 || payload.Completed != 1 || payload.Open != 1 {
		t.Fatalf("unexpected summary: %+v", payload)
	}
}

func buildReferencePlugin(t *testing.T) (string, string) {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "reference-plugin")
	cmd := exec.Command("go", "build", "-o", binPath, "./plugins/reference")
	cmd.Dir = repositoryRoot(t)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build reference plugin: %v\n%s", err, string(out))
	}
	payload, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatalf("read built plugin: %v", err)
	}
	hash := sha256.Sum256(payload)
	return binPath, hex.EncodeToString(hash[:])
}

func repositoryRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "../../../../../"))
}
