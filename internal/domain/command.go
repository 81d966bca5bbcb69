package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Action is the discriminant that identifies a command variant.
type Action string

const (
	ActionAddLine          Action = "addLine"
	ActionRemoveLine       Action = "removeLine"
	ActionDuplicate        Action = "duplicate"
	ActionChangePrice      Action = "changePrice"
	ActionUpdateHeader     Action = "updateHeader"
	ActionSetCustomer      Action = "setCustomer"
	ActionApplyDiscount    Action = "applyDiscount"
	ActionApplyTax         Action = "applyTax"
	ActionSummarizeInvoice Action = "summarizeInvoice"
	ActionUnknown          Action = "unknown"
)

// Actions lists every recognized action in catalogue order. ActionUnknown is last.
var Actions = []Action{
	ActionAddLine,
	ActionRemoveLine,
	ActionDuplicate,
	ActionChangePrice,
	ActionUpdateHeader,
	ActionSetCustomer,
	ActionApplyDiscount,
	ActionApplyTax,
	ActionSummarizeInvoice,
	ActionUnknown,
}

// DefaultUnknownReason is reported by an Unknown command built without a reason.
const DefaultUnknownReason = "unrecognized or invalid input"

// Command is a typed edit or query against an invoice, recovered from model output.
// The set of implementations is closed: only the variants in this file satisfy it.
type Command interface {
	Action() Action
	Feedback() string
	SetFeedback(feedback string)
	sealed()
}

// commandBase carries the fields shared by every variant.
type commandBase struct {
	feedback string
}

// Feedback returns the short human-readable explanation attached by the model.
func (b *commandBase) Feedback() string { return b.feedback }

// SetFeedback attaches a display explanation. It has no effect on command semantics.
func (b *commandBase) SetFeedback(feedback string) { b.feedback = feedback }

func (*commandBase) sealed() {}

// AddLine appends a new line to the invoice.
type AddLine struct {
	commandBase
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (*AddLine) Action() Action { return ActionAddLine }

// RemoveLine deletes the line with the given 1-based number.
type RemoveLine struct {
	commandBase
	LineNumber int `json:"lineNumber"`
}

func (*RemoveLine) Action() Action { return ActionRemoveLine }

// DuplicateLine copies the line with the given 1-based number.
type DuplicateLine struct {
	commandBase
	LineNumber int `json:"lineNumber"`
}

func (*DuplicateLine) Action() Action { return ActionDuplicate }

// ChangePrice sets a new unit price on an existing line.
type ChangePrice struct {
	commandBase
	LineNumber int             `json:"lineNumber"`
	NewPrice   decimal.Decimal `json:"newPrice"`
}

func (*ChangePrice) Action() Action { return ActionChangePrice }

// UpdateHeader changes invoice header fields. Nil fields are left untouched.
type UpdateHeader struct {
	commandBase
	DueDate  *Date   `json:"dueDate,omitempty"`
	PONumber *string `json:"poNumber,omitempty"`
	Status   *string `json:"status,omitempty"`
}

func (*UpdateHeader) Action() Action { return ActionUpdateHeader }

// SetCustomer assigns a customer to the invoice by name.
type SetCustomer struct {
	commandBase
	CustomerName string `json:"customerName"`
}

func (*SetCustomer) Action() Action { return ActionSetCustomer }

// ApplyDiscount applies a global discount, either as a percentage or a fixed amount.
type ApplyDiscount struct {
	commandBase
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
	FixedAmount *decimal.Decimal `json:"fixedAmount,omitempty"`
}

func (*ApplyDiscount) Action() Action { return ActionApplyDiscount }

// ApplyTax applies a named tax at the given rate (percent).
type ApplyTax struct {
	commandBase
	TaxName string          `json:"taxName"`
	Rate    decimal.Decimal `json:"rate"`
}

func (*ApplyTax) Action() Action { return ActionApplyTax }

// SummarizeInvoice asks for a summary such as "totalAmount" or "lineCount".
type SummarizeInvoice struct {
	commandBase
	Query string `json:"query"`
}

func (*SummarizeInvoice) Action() Action { return ActionSummarizeInvoice }

// Unknown marks input that could not be mapped to a recognized command.
type Unknown struct {
	commandBase
	reason string
}

// NewUnknown returns an Unknown command. An empty reason falls back to DefaultUnknownReason.
func NewUnknown(reason string) *Unknown {
	return &Unknown{reason: reason}
}

func (*Unknown) Action() Action { return ActionUnknown }

// Reason explains why the input was not recognized. It is never empty.
func (u *Unknown) Reason() string {
	if u.reason == "" {
		return DefaultUnknownReason
	}
	return u.reason
}

// MarshalJSON renders the reason as the command's only data field.
func (u *Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Reason string `json:"reason"`
	}{Reason: u.Reason()})
}

// UnmarshalJSON reads the reason from an unknown-action payload.
func (u *Unknown) UnmarshalJSON(data []byte) error {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	u.reason = payload.Reason
	return nil
}

// NewCommand returns a zero-valued command for the given action.
// The switch is kept exhaustive over Actions; ok is false for anything else.
func NewCommand(action Action) (cmd Command, ok bool) {
	switch action {
	case ActionAddLine:
		return &AddLine{}, true
	case ActionRemoveLine:
		return &RemoveLine{}, true
	case ActionDuplicate:
		return &DuplicateLine{}, true
	case ActionChangePrice:
		return &ChangePrice{}, true
	case ActionUpdateHeader:
		return &UpdateHeader{}, true
	case ActionSetCustomer:
		return &SetCustomer{}, true
	case ActionApplyDiscount:
		return &ApplyDiscount{}, true
	case ActionApplyTax:
		return &ApplyTax{}, true
	case ActionSummarizeInvoice:
		return &SummarizeInvoice{}, true
	case ActionUnknown:
		return &Unknown{}, true
	default:
		return nil, false
	}
}

// CommandEnvelope is the wire shape of a command: {"action", "data", "feedback"}.
type CommandEnvelope struct {
	Action   Action  `json:"action"`
	Data     Command `json:"data"`
	Feedback string  `json:"feedback,omitempty"`
}

// Envelope wraps a command in its wire shape for downstream consumers.
func Envelope(cmd Command) CommandEnvelope {
	return CommandEnvelope{Action: cmd.Action(), Data: cmd, Feedback: cmd.Feedback()}
}

// Envelopes wraps a batch, preserving order.
func Envelopes(cmds []Command) []CommandEnvelope {
	out := make([]CommandEnvelope, len(cmds))
	for i, c := range cmds {
		out[i] = Envelope(c)
	}
	return out
}
