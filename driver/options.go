package driver

import "time"

// PermissionMode controls tool execution approval.
type PermissionMode string

const (
	// PermissionModeDefault prompts for each dangerous operation.
	PermissionModeDefault PermissionMode = "default"
	// PermissionModeAcceptEdits auto-approves file modifications.
	PermissionModeAcceptEdits PermissionMode = "acceptEdits"
	// PermissionModePlan reviews a plan before execution.
	PermissionModePlan PermissionMode = "plan"
	// PermissionModeBypass auto-approves all tools (use with caution).
	PermissionModeBypass PermissionMode = "bypassPermissions"
)

// DefaultApprovalTimeout is how long an approval request may stay pending
// before it auto-resolves as a deny.
const DefaultApprovalTimeout = 5 * time.Minute

// Config holds per-client configuration.
type Config struct {
	// Executable is the agent CLI binary (uses PATH lookup if not absolute).
	Executable string

	// Model selects the model for this conversation.
	Model string

	// Effort is the reasoning-effort level. It is only passed to the CLI
	// when the model name matches EffortModelPattern.
	Effort string

	// EffortModelPattern is the case-insensitive substring a model name
	// must contain for the effort flag to apply. Product policy, not a
	// structural rule, so it is configuration.
	EffortModelPattern string

	// WorkspaceRoots are the directories the agent may operate on. The
	// first root is the working directory; the rest are passed as
	// additional directories.
	WorkspaceRoots []string

	// PermissionMode controls tool execution approval.
	PermissionMode PermissionMode

	// Resume is an external session id to resume instead of starting fresh.
	Resume string

	// ForceSessionID pins the external session id for a new session.
	ForceSessionID string

	// Env is extra environment variables for the agent process.
	Env map[string]string

	// StderrHandler optionally observes raw stderr output.
	StderrHandler func([]byte)

	// ApprovalTimeout bounds how long an approval may stay pending.
	ApprovalTimeout time.Duration

	// EventBufferSize is the event channel buffer size.
	EventBufferSize int

	// ExtraArgs are appended verbatim to the CLI invocation (escape hatch).
	ExtraArgs []string

	// OneShot runs each turn as a single process invocation that returns
	// one document at exit, instead of a persistent streaming process.
	OneShot bool
}

// Option is a functional option for configuring a Client.
type Option func(*Config)

// WithExecutable sets the agent CLI binary path.
func WithExecutable(path string) Option {
	return func(c *Config) {
		c.Executable = path
	}
}

// WithModel sets the model to use.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithEffort sets the reasoning-effort level.
func WithEffort(effort string) Option {
	return func(c *Config) {
		c.Effort = effort
	}
}

// WithEffortModelPattern overrides the model pattern gating the effort flag.
func WithEffortModelPattern(pattern string) Option {
	return func(c *Config) {
		c.EffortModelPattern = pattern
	}
}

// WithWorkspaceRoots sets the directories the agent may operate on.
func WithWorkspaceRoots(roots ...string) Option {
	return func(c *Config) {
		c.WorkspaceRoots = roots
	}
}

// WithPermissionMode sets the permission mode.
func WithPermissionMode(mode PermissionMode) Option {
	return func(c *Config) {
		c.PermissionMode = mode
	}
}

// WithResume sets an external session id to resume.
func WithResume(sessionID string) Option {
	return func(c *Config) {
		c.Resume = sessionID
	}
}

// WithForceSessionID pins the external session id for a new session.
func WithForceSessionID(sessionID string) Option {
	return func(c *Config) {
		c.ForceSessionID = sessionID
	}
}

// WithEnv adds environment variables for the agent process.
func WithEnv(env map[string]string) Option {
	return func(c *Config) {
		c.Env = env
	}
}

// WithStderrHandler sets a handler for agent stderr output.
func WithStderrHandler(h func([]byte)) Option {
	return func(c *Config) {
		c.StderrHandler = h
	}
}

// WithApprovalTimeout overrides the approval auto-deny timeout.
func WithApprovalTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ApprovalTimeout = d
	}
}

// WithEventBufferSize sets the event channel buffer size.
func WithEventBufferSize(n int) Option {
	return func(c *Config) {
		c.EventBufferSize = n
	}
}

// WithExtraArgs appends raw CLI arguments.
func WithExtraArgs(args ...string) Option {
	return func(c *Config) {
		c.ExtraArgs = args
	}
}

// WithOneShot switches the client to the one-shot transport.
func WithOneShot() Option {
	return func(c *Config) {
		c.OneShot = true
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Executable:         "agent",
		EffortModelPattern: "opus",
		PermissionMode:     PermissionModeDefault,
		ApprovalTimeout:    DefaultApprovalTimeout,
		EventBufferSize:    100,
	}
}
