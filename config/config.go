// Package config loads installation-level settings from a YAML file and
// translates them into driver options. Per-session settings (model,
// effort, workspace roots) arrive through bind criteria instead.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codedesk/agentlink/driver"
)

// Duration wraps time.Duration so YAML values like "90s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// File holds the settings read from agentlink.yaml.
type File struct {
	// Executable is the agent CLI binary.
	Executable string `yaml:"executable"`

	// Model is the default model for new conversations.
	Model string `yaml:"model"`

	// Effort is the default reasoning-effort level.
	Effort string `yaml:"effort"`

	// EffortModelPattern gates the effort flag: the model name must
	// contain this substring, case-insensitively, for effort to apply.
	EffortModelPattern string `yaml:"effort_model_pattern"`

	// PermissionMode controls tool execution approval.
	PermissionMode string `yaml:"permission_mode"`

	// ApprovalTimeout bounds how long an approval may stay pending
	// before it auto-denies.
	ApprovalTimeout Duration `yaml:"approval_timeout"`

	// OneShot runs each turn as a single blocking invocation.
	OneShot bool `yaml:"one_shot"`

	// ExtraArgs are appended verbatim to every CLI invocation.
	ExtraArgs []string `yaml:"extra_args"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Executable:         "agent",
		EffortModelPattern: "opus",
		PermissionMode:     string(driver.PermissionModeDefault),
		ApprovalTimeout:    Duration(driver.DefaultApprovalTimeout),
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// a present file is overlaid on top of them.
func Load(path string) (File, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Executable == "" {
		cfg.Executable = "agent"
	}
	if cfg.EffortModelPattern == "" {
		cfg.EffortModelPattern = "opus"
	}
	if cfg.ApprovalTimeout <= 0 {
		cfg.ApprovalTimeout = Duration(driver.DefaultApprovalTimeout)
	}

	return cfg, nil
}

// Options translates the file into base driver options.
func (f File) Options() []driver.Option {
	opts := []driver.Option{
		driver.WithExecutable(f.Executable),
		driver.WithEffortModelPattern(f.EffortModelPattern),
		driver.WithApprovalTimeout(time.Duration(f.ApprovalTimeout)),
	}
	if f.PermissionMode != "" {
		opts = append(opts, driver.WithPermissionMode(driver.PermissionMode(f.PermissionMode)))
	}
	if f.OneShot {
		opts = append(opts, driver.WithOneShot())
	}
	if len(f.ExtraArgs) > 0 {
		opts = append(opts, driver.WithExtraArgs(f.ExtraArgs...))
	}
	return opts
}
