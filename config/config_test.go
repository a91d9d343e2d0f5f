package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codedesk/agentlink/driver"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Executable != "agent" {
		t.Errorf("Executable = %q, want agent", cfg.Executable)
	}
	if cfg.EffortModelPattern != "opus" {
		t.Errorf("EffortModelPattern = %q, want opus", cfg.EffortModelPattern)
	}
	if time.Duration(cfg.ApprovalTimeout) != driver.DefaultApprovalTimeout {
		t.Errorf("ApprovalTimeout = %v, want %v", cfg.ApprovalTimeout, driver.DefaultApprovalTimeout)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentlink.yaml")
	content := `
executable: /opt/agent/bin/agent
model: claude-opus-4-6
effort: high
approval_timeout: 90s
permission_mode: acceptEdits
extra_args:
  - --verbose
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Executable != "/opt/agent/bin/agent" {
		t.Errorf("Executable = %q", cfg.Executable)
	}
	if cfg.Model != "claude-opus-4-6" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if time.Duration(cfg.ApprovalTimeout) != 90*time.Second {
		t.Errorf("ApprovalTimeout = %v", cfg.ApprovalTimeout)
	}
	// Keys the file omits keep their defaults.
	if cfg.EffortModelPattern != "opus" {
		t.Errorf("EffortModelPattern = %q, want opus", cfg.EffortModelPattern)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentlink.yaml")
	if err := os.WriteFile(path, []byte("executable: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestOptions(t *testing.T) {
	f := Default()
	f.PermissionMode = "plan"
	f.OneShot = true

	if n := len(f.Options()); n < 4 {
		t.Errorf("expected at least 4 options, got %d", n)
	}
}
