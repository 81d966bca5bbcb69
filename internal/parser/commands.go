package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"invoicer/internal/domain"
)

const (
	reasonNoResponse    = "no response from the model"
	reasonNotArray      = "response must be a JSON array"
	reasonMalformedJSON = "malformed JSON: "

	feedbackMissingAction  = "missing 'action' property in a command"
	feedbackNoValidCommand = "no valid command found in the response"
	feedbackTechnicalError = "Sorry, a technical error occurred while interpreting the response."
)

// ParseCommands maps sanitized model output to commands. The result is never empty:
// anything that cannot be recovered becomes an Unknown command, and a failure in one
// array element never affects the others. Order follows the model's array.
func ParseCommands(text string) []domain.Command {
	if strings.TrimSpace(text) == "" {
		return []domain.Command{domain.NewUnknown(reasonNoResponse)}
	}

	var root json.RawMessage
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		u := domain.NewUnknown(reasonMalformedJSON + err.Error())
		u.SetFeedback(feedbackTechnicalError)
		return []domain.Command{u}
	}

	root = bytes.TrimSpace(root)
	if len(root) == 0 || root[0] != '[' {
		return []domain.Command{domain.NewUnknown(reasonNotArray)}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(root, &items); err != nil {
		u := domain.NewUnknown(reasonMalformedJSON + err.Error())
		u.SetFeedback(feedbackTechnicalError)
		return []domain.Command{u}
	}

	cmds := make([]domain.Command, 0, len(items))
	for _, item := range items {
		if cmd, ok := parseItem(item); ok {
			cmds = append(cmds, cmd)
		}
	}

	if len(cmds) == 0 {
		u := domain.NewUnknown("")
		u.SetFeedback(feedbackNoValidCommand)
		cmds = append(cmds, u)
	}
	return cmds
}

// parseItem handles one array element. ok is false only for non-object elements,
// which are skipped without producing a command.
func parseItem(item json.RawMessage) (cmd domain.Command, ok bool) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 || item[0] != '{' {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return nil, false
	}

	actionRaw, found := fields["action"]
	if !found {
		u := domain.NewUnknown("")
		u.SetFeedback(feedbackMissingAction)
		return u, true
	}

	cmd, err := decodeItem(readAction(actionRaw), fields["data"])
	if err != nil {
		cmd = domain.NewUnknown(err.Error())
	}

	if feedback, isString := readString(fields["feedback"]); isString {
		cmd.SetFeedback(feedback)
	}
	return cmd, true
}

// decodeItem maps an action and its data payload to a command variant.
func decodeItem(action domain.Action, data json.RawMessage) (domain.Command, error) {
	cmd, ok := domain.NewCommand(action)
	if !ok {
		return nil, fmt.Errorf("unrecognized action %q", action)
	}

	data = bytes.TrimSpace(data)
	if action == domain.ActionUnknown {
		if len(data) == 0 || data[0] != '{' {
			return cmd, nil
		}
		if err := json.Unmarshal(data, cmd); err != nil {
			return nil, fmt.Errorf("invalid %q payload: %w", action, err)
		}
		return cmd, nil
	}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("missing 'data' payload for action %q", action)
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("'data' payload for action %q must be an object", action)
	}
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("invalid %q payload: %w", action, err)
	}
	return cmd, nil
}

// readAction returns the action string, or ActionUnknown when the value is not a
// non-empty string.
func readAction(raw json.RawMessage) domain.Action {
	s, ok := readString(raw)
	if !ok || s == "" {
		return domain.ActionUnknown
	}
	return domain.Action(s)
}

func readString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
