package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config file whose data and log directories live
// under a fresh temp base, returning its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[analyzer]
mode = "off"

[logging]
format = "json"
level = "error"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))

	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestRootShowsHelpWithoutArgs(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", configPath)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	// Root help prints the long description and the command list.
	requireContains(t, out, "reelcat fingerprints video files by content")
	requireContains(t, out, "Available Commands:")
}

func TestDBStatsOnFreshCatalog(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", configPath, "db", "stats")
	if err != nil {
		t.Fatalf("db stats: %v", err)
	}
	requireContains(t, out, "Contents:            0")
	requireContains(t, out, "Locations:           0")
}

func TestDBHealthOnFreshCatalog(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", configPath, "db", "health")
	if err != nil {
		t.Fatalf("db health: %v", err)
	}
	requireContains(t, out, "Integrity:     yes")
}

func TestScanThenDupesEndToEnd(t *testing.T) {
	configPath := writeTestConfig(t)

	media := t.TempDir()
	payload := bytes.Repeat([]byte{0x41, 0x42, 0x43, 0x44}, 4096)
	for _, name := range []string{"one.mkv", "two.mkv"} {
		if err := os.WriteFile(filepath.Join(media, name), payload, 0o644); err != nil {
			t.Fatalf("write media: %v", err)
		}
	}

	out, err := runCLI(t, "--config", configPath, "scan", media)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "2 files processed")

	out, err = runCLI(t, "--config", configPath, "dupes")
	if err != nil {
		t.Fatalf("dupes: %v", err)
	}
	requireContains(t, out, "1 duplicate group")
}

func TestRemoveUnknownPathFails(t *testing.T) {
	configPath := writeTestConfig(t)
	_, err := runCLI(t, "--config", configPath, "rm", "/media/never-indexed.mkv")
	if err == nil {
		t.Fatal("expected error removing unknown path")
	}
}
