package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codedesk/agentlink/event"
	"github.com/codedesk/agentlink/protocol"
)

// feedLine runs one raw JSON line through the real parse path and the
// normalizer, mirroring what the client's read loop does.
func feedLine(t *testing.T, n *streamNormalizer, line string) []event.Event {
	t.Helper()
	msg, err := protocol.ParseMessage([]byte(line))
	require.NoError(t, err)
	return n.Normalize(msg)
}

func TestNormalize_Init(t *testing.T) {
	n := newStreamNormalizer("r1")
	evs := feedLine(t, n, `{"type":"system","subtype":"init","session_id":"ext-1","model":"claude-opus-4-6","slash_commands":["compact","review"],"tools":["Bash","Edit"]}`)

	require.Len(t, evs, 2)
	info, ok := evs[0].(event.SessionInfo)
	require.True(t, ok)
	assert.Equal(t, "ext-1", info.SessionID)
	assert.Equal(t, "claude-opus-4-6", info.Model)

	cmds, ok := evs[1].(event.Commands)
	require.True(t, ok)
	assert.Equal(t, []string{"compact", "review"}, cmds.Names)
}

func TestNormalize_DeltasAccumulate(t *testing.T) {
	n := newStreamNormalizer("r1")

	evs := feedLine(t, n, `{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}}`)
	require.Len(t, evs, 1)
	first := evs[0].(event.Delta)
	assert.Equal(t, "Hel", first.Text)
	assert.Equal(t, "Hel", first.FullText)

	evs = feedLine(t, n, `{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}}`)
	second := evs[0].(event.Delta)
	assert.Equal(t, "lo", second.Text)
	assert.Equal(t, "Hello", second.FullText)
}

func TestNormalize_ThinkingDelta(t *testing.T) {
	n := newStreamNormalizer("r1")
	evs := feedLine(t, n, `{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"hmm"}}}`)

	require.Len(t, evs, 1)
	think := evs[0].(event.ThinkingDelta)
	assert.Equal(t, "hmm", think.Text)
}

func TestNormalize_UnknownKindNeverFails(t *testing.T) {
	n := newStreamNormalizer("r1")

	evs := feedLine(t, n, `{"type":"telemetry_snapshot","payload":{"x":1}}`)
	require.Len(t, evs, 1)
	unknown, ok := evs[0].(event.Unknown)
	require.True(t, ok)
	assert.Equal(t, "telemetry_snapshot", unknown.RawType)

	evs = feedLine(t, n, `{"type":"stream_event","event":{"type":"brand_new_event"}}`)
	require.Len(t, evs, 1)
	assert.Equal(t, event.KindUnknown, evs[0].EventKind())
}

func TestNormalize_PerCallUsage(t *testing.T) {
	n := newStreamNormalizer("r1")

	// First model call of the turn.
	feedLine(t, n, `{"type":"stream_event","event":{"type":"message_start","message":{"role":"assistant","content":"","usage":{"input_tokens":50000,"cache_read_input_tokens":10000,"context_window":200000}}}}`)
	feedLine(t, n, `{"type":"stream_event","event":{"type":"message_delta","usage":{"output_tokens":400}}}`)

	// Second call replaces the snapshot instead of accumulating.
	evs := feedLine(t, n, `{"type":"stream_event","event":{"type":"message_start","message":{"role":"assistant","content":"","usage":{"input_tokens":61000,"cache_read_input_tokens":12000,"context_window":200000}}}}`)
	require.Len(t, evs, 1)
	status := evs[0].(event.Status)
	assert.Equal(t, 61000, status.Usage.InputTokens)
	assert.Equal(t, 0, status.Usage.OutputTokens, "output counter resets per call")
	assert.Equal(t, 37, status.Usage.Percent())

	// The terminal message's cumulative usage must not leak into the
	// context accounting even when it is absurdly large.
	evs = feedLine(t, n, `{"type":"result","subtype":"success","session_id":"ext-1","result":"done","is_error":false,"total_cost_usd":0.42,"usage":{"input_tokens":500000,"output_tokens":9000}}`)
	require.Len(t, evs, 1)
	done := evs[0].(event.Done)
	assert.Equal(t, 61000, done.Usage.InputTokens)
	assert.LessOrEqual(t, done.Usage.Percent(), 100)
	assert.InDelta(t, 0.42, done.CostUSD, 1e-9)
}

func TestNormalize_ResultError(t *testing.T) {
	n := newStreamNormalizer("r1")
	evs := feedLine(t, n, `{"type":"result","subtype":"error_during_execution","session_id":"ext-1","result":"Session id not found","is_error":true}`)

	require.Len(t, evs, 1)
	failed := evs[0].(event.Failed)
	assert.True(t, failed.RecoverableSession)
	assert.Equal(t, "Session id not found", failed.Message)
}

func TestNormalize_ResultDenials(t *testing.T) {
	n := newStreamNormalizer("r1")
	evs := feedLine(t, n, `{"type":"result","subtype":"success","result":"ok","is_error":false,"permission_denials":[{"tool_name":"Bash"}]}`)

	require.Len(t, evs, 2)
	denied := evs[0].(event.PermissionDenied)
	assert.Equal(t, "Bash", denied.ToolName)
	assert.Equal(t, event.KindDone, evs[1].EventKind())
}

func TestNormalize_TaskLifecycle(t *testing.T) {
	n := newStreamNormalizer("r1")

	evs := feedLine(t, n, `{"type":"system","subtype":"task_started","task_id":"task-1","tool_use_id":"T1","description":"explore"}`)
	require.Len(t, evs, 1)
	started := evs[0].(event.SubagentStarted)
	assert.Equal(t, "task-1", started.TaskID)
	assert.Equal(t, "T1", started.ToolUseID)

	evs = feedLine(t, n, `{"type":"system","subtype":"task_notification","task_id":"task-1","status":"completed"}`)
	done := evs[0].(event.SubagentDone)
	assert.Equal(t, "completed", done.Outcome)
}

func TestNormalize_LimitHintFromSystemChatter(t *testing.T) {
	n := newStreamNormalizer("r1")
	evs := feedLine(t, n, `{"type":"system","subtype":"status","message":"You have used 80% of your weekly limit. Resets Friday."}`)

	require.Len(t, evs, 1)
	hint := evs[0].(event.LimitHint)
	assert.Equal(t, 80, hint.UsedPercent)
}

func TestNormalize_ToolUseOnlyOnce(t *testing.T) {
	n := newStreamNormalizer("r1")

	evs := feedLine(t, n, `{"type":"stream_event","event":{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"T1","name":"Bash","input":{"command":"ls"}}}}`)
	require.Len(t, evs, 1)
	use := evs[0].(event.ToolUse)
	assert.Equal(t, "Bash", use.Name)

	// The complete assistant message repeats the block; it must not be
	// reported a second time.
	evs = feedLine(t, n, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"T1","name":"Bash","input":{"command":"ls"}}],"stop_reason":null}}`)
	assert.Empty(t, evs)
}

func TestNormalize_ToolResultFromUserMessage(t *testing.T) {
	n := newStreamNormalizer("r1")
	evs := feedLine(t, n, `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"T1","content":"files listed","is_error":false}],"stop_reason":null}}`)

	require.Len(t, evs, 1)
	result := evs[0].(event.ToolResult)
	assert.Equal(t, "T1", result.ToolUseID)
	assert.False(t, result.IsError)
}

func TestNormalize_AuthExpired(t *testing.T) {
	n := newStreamNormalizer("r1")
	evs := feedLine(t, n, `{"type":"auth_status","status":"expired","message":"please sign in again"}`)

	require.Len(t, evs, 1)
	auth := evs[0].(event.AuthExpired)
	assert.Equal(t, "please sign in again", auth.Message)

	evs = feedLine(t, n, `{"type":"auth_status","status":"ok"}`)
	assert.Empty(t, evs)
}
