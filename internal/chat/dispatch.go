package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownAction indicates a request envelope with an unrecognized action.
var ErrUnknownAction = errors.New("unknown action")

// envelope is the outer shape of every inbound client message.
type envelope struct {
	Action string `json:"action"`
}

// DecodeRequest parses one inbound client message into its typed request.
// The action field selects the variant; payload fields are validated later
// by the handler for that variant.
func DecodeRequest(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing request envelope: %w", err)
	}

	switch env.Action {
	case ActionSendMessage:
		var req SendMessage
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parsing %s request: %w", env.Action, err)
		}
		return &req, nil
	case ActionSubmitFeedback:
		var req SubmitFeedback
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parsing %s request: %w", env.Action, err)
		}
		return &req, nil
	case ActionSubmitEscalation:
		var req SubmitEscalation
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parsing %s request: %w", env.Action, err)
		}
		return &req, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
}
