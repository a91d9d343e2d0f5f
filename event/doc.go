// Package event defines the canonical tagged event union emitted by the
// driver and consumed by the state reducer and any UI layer.
//
// The two upstream transports (streaming NDJSON and one-shot document) use
// different field names for the same concepts. Shape-specific adapters in
// the driver package translate both into this single vocabulary, so
// consumers never see transport details.
//
// Events come in two families:
//
//   - session.* events carry information about the agent installation or
//     account and are not tied to a particular turn (Info, AuthExpired,
//     Commands).
//
//   - run.* events are tagged with the RequestID of the turn that produced
//     them (Started, Delta, ToolUse, ToolResult, ApprovalRequest, AskUser,
//     SubagentStarted, SubagentDone, Status, LimitHint, Compacted,
//     PermissionDenied, Done, Failed, Aborted).
//
// Raw message kinds the adapters do not recognize normalize to Unknown,
// which reducers ignore. New upstream message kinds therefore never crash
// a consumer built against this package.
package event
