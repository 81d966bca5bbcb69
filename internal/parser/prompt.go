package parser

import (
	"strconv"
	"strings"

	"invoicer/internal/domain"
)

// CatalogueVersion identifies the action catalogue presented to the model.
// Bump it whenever a schema line below changes.
const CatalogueVersion = "2"

// actionSpec describes one catalogue entry.
type actionSpec struct {
	summary string
	schema  string
}

var catalogue = map[domain.Action]actionSpec{
	domain.ActionAddLine: {
		summary: "Add a new line to the invoice.",
		schema:  `{"action": "addLine", "data": {"description": "string", "quantity": number, "unitPrice": number}, "feedback": "string"}`,
	},
	domain.ActionRemoveLine: {
		summary: "Remove a line by its number.",
		schema:  `{"action": "removeLine", "data": {"lineNumber": number}, "feedback": "string"}`,
	},
	domain.ActionDuplicate: {
		summary: "Duplicate a line.",
		schema:  `{"action": "duplicate", "data": {"lineNumber": number}, "feedback": "string"}`,
	},
	domain.ActionChangePrice: {
		summary: "Change the unit price of a line.",
		schema:  `{"action": "changePrice", "data": {"lineNumber": number, "newPrice": number}, "feedback": "string"}`,
	},
	domain.ActionUpdateHeader: {
		summary: "Update the invoice header (due date, PO number, status).",
		schema:  `{"action": "updateHeader", "data": {"dueDate": "YYYY-MM-DD", "poNumber": "string", "status": "string"}, "feedback": "string"}`,
	},
	domain.ActionSetCustomer: {
		summary: "Assign a customer to the invoice.",
		schema:  `{"action": "setCustomer", "data": {"customerName": "string"}, "feedback": "string"}`,
	},
	domain.ActionApplyDiscount: {
		summary: "Apply a global discount.",
		schema:  `{"action": "applyDiscount", "data": {"percentage": number} or {"fixedAmount": number}, "feedback": "string"}`,
	},
	domain.ActionApplyTax: {
		summary: "Apply a tax.",
		schema:  `{"action": "applyTax", "data": {"taxName": "string", "rate": number}, "feedback": "string"}`,
	},
	domain.ActionSummarizeInvoice: {
		summary: "Request a summary of the invoice.",
		schema:  `{"action": "summarizeInvoice", "data": {"query": "totalAmount" or "lineCount"}, "feedback": "string"}`,
	},
	domain.ActionUnknown: {
		summary: "The request is ambiguous or not supported.",
		schema:  `{"action": "unknown", "data": {"reason": "description of the ambiguity"}, "feedback": "string"}`,
	},
}

const systemInstruction = `You are an expert accounting assistant. Convert the user's request into JSON commands. Each command contains an action, the associated data, and a "feedback" field with a short, friendly text answer for the user.
The output must ALWAYS be a JSON array whose items have this structure: {"action": "action_name", "data": {...}, "feedback": "Your text answer here."}
If a request is complex, you may return several actions in the array.
Return only the JSON array. Make sure every [ ] and { } is balanced.`

// BuildCommandPrompt composes the instruction block sent to the generation engine.
// The invoice context segment is included only when it is not blank. The output is
// byte-identical for identical inputs.
func BuildCommandPrompt(userPrompt, invoiceContext string) string {
	var b strings.Builder

	b.WriteString("<|system|>\n")
	b.WriteString(systemInstruction)
	b.WriteString("\n<|end|>\n")

	b.WriteString("<|user|>\n")
	b.WriteString("AVAILABLE_ACTIONS (v" + CatalogueVersion + "):\n")
	n := 0
	for _, action := range domain.Actions {
		if action == domain.ActionUnknown {
			continue
		}
		n++
		entry := catalogue[action]
		b.WriteString(strconv.Itoa(n) + ". " + string(action) + ": " + entry.summary + " Schema: " + entry.schema + "\n")
	}
	fallback := catalogue[domain.ActionUnknown]
	b.WriteString("If the request is ambiguous, use: " + fallback.schema + "\n")

	if strings.TrimSpace(invoiceContext) != "" {
		b.WriteString("\nUSER_CONTEXT:\n")
		b.WriteString("The user is working on the following invoice:\n")
		b.WriteString(invoiceContext)
		b.WriteString("\n")
	}

	b.WriteString("\nUSER_REQUEST:\n")
	b.WriteString(userPrompt)
	b.WriteString("\n<|end|>\n")
	b.WriteString("<|assistant|>\n")

	return b.String()
}
