package driver

import "strings"

// nestedMarkerEnv is set by the agent CLI in its own tool subprocesses.
// It must be stripped from the child environment so the agent does not
// conclude it is running inside itself.
const nestedMarkerEnv = "AGENTLINK_NESTED"

// EffortApplies reports whether the effort flag should be passed for the
// given model. It requires a non-empty model and effort, and the model
// name must contain the pattern, case-insensitively.
func EffortApplies(model, effort, pattern string) bool {
	if model == "" || effort == "" || pattern == "" {
		return false
	}
	return strings.Contains(strings.ToLower(model), strings.ToLower(pattern))
}

// BuildArgs builds the CLI arguments for a persistent streaming session.
func BuildArgs(cfg Config) []string {
	args := []string{
		"--output-format", "stream-json",
		"--input-format", "stream-json",
		"--verbose",
	}

	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}

	if EffortApplies(cfg.Model, cfg.Effort, cfg.EffortModelPattern) {
		args = append(args, "--effort", cfg.Effort)
	}

	if cfg.PermissionMode != "" && cfg.PermissionMode != PermissionModeDefault {
		args = append(args, "--permission-mode", string(cfg.PermissionMode))
	}

	if cfg.Resume != "" {
		args = append(args, "--resume", cfg.Resume)
	} else if cfg.ForceSessionID != "" {
		args = append(args, "--session-id", cfg.ForceSessionID)
	}

	// The first root is the working directory; the rest are granted as
	// additional directories.
	if len(cfg.WorkspaceRoots) > 1 {
		for _, root := range cfg.WorkspaceRoots[1:] {
			args = append(args, "--add-dir", root)
		}
	}

	args = append(args, cfg.ExtraArgs...)

	return args
}

// BuildOneShotArgs builds the CLI arguments for a single blocking
// invocation that prints one JSON document and exits.
func BuildOneShotArgs(cfg Config, prompt string) []string {
	args := []string{
		"-p", prompt,
		"--output-format", "json",
	}

	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}

	if EffortApplies(cfg.Model, cfg.Effort, cfg.EffortModelPattern) {
		args = append(args, "--effort", cfg.Effort)
	}

	if cfg.Resume != "" {
		args = append(args, "--resume", cfg.Resume)
	}

	if len(cfg.WorkspaceRoots) > 1 {
		for _, root := range cfg.WorkspaceRoots[1:] {
			args = append(args, "--add-dir", root)
		}
	}

	args = append(args, cfg.ExtraArgs...)

	return args
}
