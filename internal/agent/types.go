package agent

import (
	"encoding/json"
	"fmt"
)

// Envelope is one event emitted by the agent runtime during a query.
type Envelope struct {
	ID           string   `json:"id,omitempty"`
	InvocationID string   `json:"invocation_id,omitempty"`
	Author       string   `json:"author,omitempty"`
	Content      *Content `json:"content,omitempty"`
	ErrorCode    string   `json:"error_code,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part carries at most one of text, a function call or a function response.
// Anything else the runtime sends is kept in Extra and classified as
// Unrecognized.
type Part struct {
	Text             *string                    `json:"text,omitempty"`
	FunctionCall     *FunctionCall              `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse          `json:"function_response,omitempty"`
	Extra            map[string]json.RawMessage `json:"-"`
}

type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// TextPart builds a text part
func TextPart(text string) Part {
	return Part{Text: &text}
}

// UnmarshalJSON accepts both snake_case and camelCase field names
func (p *Part) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode part: %w", err)
	}

	*p = Part{}
	for key, value := range raw {
		if string(value) == "null" {
			continue
		}
		switch key {
		case "text":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("decode part text: %w", err)
			}
			p.Text = &s
		case "function_call", "functionCall":
			var fc FunctionCall
			if err := json.Unmarshal(value, &fc); err != nil {
				return fmt.Errorf("decode function_call: %w", err)
			}
			p.FunctionCall = &fc
		case "function_response", "functionResponse":
			var fr FunctionResponse
			if err := json.Unmarshal(value, &fr); err != nil {
				return fmt.Errorf("decode function_response: %w", err)
			}
			p.FunctionResponse = &fr
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[key] = value
		}
	}
	return nil
}
