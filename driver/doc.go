// Package driver owns the external agent process for a conversation: it
// spawns the CLI, writes prompts to its stdin, reads its NDJSON output,
// normalizes every line into the canonical event union, and routes tool
// approval requests through a correlation-id gate.
//
// One Client drives one conversation. A Registry hands out Clients keyed
// by conversation id and reuses a live process when the bind criteria
// (model, effort, workspace roots) still match.
package driver
