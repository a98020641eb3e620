package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"commentator/internal/config"
	"commentator/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("NO_COLOR", "1")

	configPath := filepath.Join(base, "commentator.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nworking_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n", cfg.Paths.WorkingDir, cfg.Paths.StateDir, cfg.Paths.LogDir)
	fmt.Fprintf(&b, "[llm]\napi_key = %q\n", cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		fmt.Fprintf(&b, "base_url = %q\n", cfg.LLM.BaseURL)
	}
	fmt.Fprintf(&b, "\n[tts]\napi_key = %q\n", cfg.TTS.APIKey)
	if cfg.TTS.BaseURL != "" {
		fmt.Fprintf(&b, "base_url = %q\n", cfg.TTS.BaseURL)
	}
	fmt.Fprintf(&b, "\n[export]\nffmpeg_binary = %q\nffprobe_binary = %q\n", cfg.Export.FFmpegBinary, cfg.Export.FFprobeBinary)
	fmt.Fprintf(&b, "\n[api]\nbind = %q\n", cfg.API.Bind)
	fmt.Fprintf(&b, "\n[logging]\nlevel = \"error\"\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeScript installs an executable shell script under the env's bin dir.
func writeScript(t *testing.T, env *cliTestEnv, name, body string) string {
	t.Helper()
	dir := filepath.Join(env.baseDir, "scripts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir scripts: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
