package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// execute runs a fresh command tree with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want loading config failure", err)
	}
}

func TestRun_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [not a map"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := run(context.Background(), path); err == nil {
		t.Fatal("run() should fail with malformed config")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(configEnv, "")
	if got := resolveConfigPath(""); got != defaultConfigPath {
		t.Errorf("resolveConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv(configEnv, "/etc/assetsync/config.yaml")
	if got := resolveConfigPath(""); got != "/etc/assetsync/config.yaml" {
		t.Errorf("resolveConfigPath() = %q, want env value", got)
	}

	if got := resolveConfigPath("./local.yaml"); got != "./local.yaml" {
		t.Errorf("resolveConfigPath() = %q, flag should win", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	want := "assetsync dev (commit unknown, built unknown)\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestServeCommand_MissingConfig(t *testing.T) {
	if _, err := execute(t, "serve", "--config", "/nonexistent/config.yaml"); err == nil {
		t.Fatal("serve should fail without a config file")
	}
}

func TestClassifyCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scans.csv")
	out := filepath.Join(dir, "classified.csv")

	data := "barcode\nSN103441045\n402198765\n"
	if err := os.WriteFile(in, []byte(data), 0600); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	if _, err := execute(t, "classify", "--in", in, "--out", out); err != nil {
		t.Fatalf("classify: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := "barcode,regex_result,barcode_type\n" +
		"SN103441045,103441045,network_attached\n" +
		"402198765,402198765,gateway_routed\n"
	if string(got) != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestClassifyCommand_MissingInput(t *testing.T) {
	if _, err := execute(t, "classify", "--in", filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("classify should fail for a missing input file")
	}
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	out, err := execute(t, "migrate", "--db", dbPath, "status")
	if err != nil {
		t.Fatalf("migrate status: %v", err)
	}
	if !strings.Contains(out, "pending  20260301_100000  tracking_items") {
		t.Errorf("status before up = %q, want pending tracking_items", out)
	}

	if _, err := execute(t, "migrate", "--db", dbPath); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	out, err = execute(t, "migrate", "--db", dbPath, "status")
	if err != nil {
		t.Fatalf("migrate status: %v", err)
	}
	if !strings.Contains(out, "applied  20260301_100100") {
		t.Errorf("status after up = %q, want reconciliation_log applied", out)
	}
	if strings.Contains(out, "pending") {
		t.Errorf("status after up = %q, want nothing pending", out)
	}

	if _, err := execute(t, "migrate", "--db", dbPath, "down"); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	out, err = execute(t, "migrate", "--db", dbPath, "status")
	if err != nil {
		t.Fatalf("migrate status: %v", err)
	}
	if !strings.Contains(out, "pending  20260301_100100  reconciliation_log") {
		t.Errorf("status after down = %q, want reconciliation_log pending", out)
	}
}

func TestMigrateCommand_UnknownAction(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	if _, err := execute(t, "migrate", "--db", dbPath, "sideways"); err == nil {
		t.Fatal("migrate should reject unknown actions")
	}
}
