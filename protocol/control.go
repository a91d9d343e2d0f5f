package protocol

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// ControlRequest wraps control messages from the agent. Tool approval
// requests (can_use_tool) arrive on this channel; the agent blocks the
// affected tool call until a ControlResponse with the same request id is
// written back.
type ControlRequest struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id"`
	Request   json.RawMessage `json:"request"`
}

// MsgType returns the message type.
func (m ControlRequest) MsgType() MessageType { return MessageTypeControlRequest }

// ControlRequestSubtype is the subtype of a control request.
type ControlRequestSubtype string

const (
	ControlRequestSubtypeCanUseTool ControlRequestSubtype = "can_use_tool"
	ControlRequestSubtypeInterrupt  ControlRequestSubtype = "interrupt"
)

// CanUseToolRequest asks permission for a tool invocation.
type CanUseToolRequest struct {
	SubtypeField ControlRequestSubtype  `json:"subtype"`
	ToolName     string                 `json:"tool_name"`
	Input        map[string]interface{} `json:"input"`
	BlockedPath  *string                `json:"blocked_path,omitempty"`
}

// ParseCanUseTool extracts the tool approval request from a control
// request. Returns nil for any other subtype.
func ParseCanUseTool(msg ControlRequest) *CanUseToolRequest {
	var base struct {
		Subtype ControlRequestSubtype `json:"subtype"`
	}
	if err := json.Unmarshal(msg.Request, &base); err != nil {
		return nil
	}
	if base.Subtype != ControlRequestSubtypeCanUseTool {
		slog.Debug("ignoring control request subtype", "subtype", base.Subtype)
		return nil
	}

	var req CanUseToolRequest
	if err := json.Unmarshal(msg.Request, &req); err != nil {
		return nil
	}
	return &req
}

// ControlResponse wraps decisions sent back to the agent.
type ControlResponse struct {
	Type     MessageType            `json:"type"`
	Response ControlResponsePayload `json:"response"`
}

// MsgType returns the message type.
func (m ControlResponse) MsgType() MessageType { return MessageTypeControlResponse }

// Marshal serializes the control response to a JSON line.
func (m ControlResponse) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal ControlResponse: %w", err)
	}
	return b, nil
}

// ControlResponsePayload is the inner response payload.
type ControlResponsePayload struct {
	Subtype   string      `json:"subtype"`
	RequestID string      `json:"request_id"`
	Response  interface{} `json:"response,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// PermissionBehavior is the behavior of a permission decision.
type PermissionBehavior string

const (
	PermissionBehaviorAllow PermissionBehavior = "allow"
	PermissionBehaviorDeny  PermissionBehavior = "deny"
)

// PermissionResultAllow grants tool execution. The wire format forbids a
// null updatedInput, so callers pass the original input when no
// modification was made.
type PermissionResultAllow struct {
	Behavior     PermissionBehavior     `json:"behavior"`
	UpdatedInput map[string]interface{} `json:"updatedInput"`
}

// PermissionResultDeny blocks tool execution. Message is the
// human-readable reason; Interrupt asks the agent to stop the whole turn.
type PermissionResultDeny struct {
	Behavior  PermissionBehavior `json:"behavior"`
	Message   string             `json:"message,omitempty"`
	Interrupt bool               `json:"interrupt,omitempty"`
}

// NewPermissionAllow constructs a control_response that grants tool execution.
func NewPermissionAllow(requestID string, input map[string]interface{}) ControlResponse {
	if input == nil {
		input = map[string]interface{}{}
	}
	return ControlResponse{
		Type: MessageTypeControlResponse,
		Response: ControlResponsePayload{
			Subtype:   "success",
			RequestID: requestID,
			Response: PermissionResultAllow{
				Behavior:     PermissionBehaviorAllow,
				UpdatedInput: input,
			},
		},
	}
}

// NewPermissionDeny constructs a control_response that blocks tool execution.
func NewPermissionDeny(requestID, message string, interrupt bool) ControlResponse {
	return ControlResponse{
		Type: MessageTypeControlResponse,
		Response: ControlResponsePayload{
			Subtype:   "success",
			RequestID: requestID,
			Response: PermissionResultDeny{
				Behavior:  PermissionBehaviorDeny,
				Message:   message,
				Interrupt: interrupt,
			},
		},
	}
}

// ControlRequestToSend is a control request written to the agent.
type ControlRequestToSend struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
	Request   interface{} `json:"request"`
}

// Marshal serializes the control request to a JSON line.
func (m ControlRequestToSend) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal ControlRequestToSend: %w", err)
	}
	return b, nil
}

// NewInterrupt constructs a control_request that cancels the current turn.
func NewInterrupt(requestID string) ControlRequestToSend {
	return ControlRequestToSend{
		Type:      "control_request",
		RequestID: requestID,
		Request: map[string]string{
			"subtype": string(ControlRequestSubtypeInterrupt),
		},
	}
}
