package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PromptMetaKind discriminates the two accepted shapes of prompt metadata.
type PromptMetaKind string

const (
	PromptPlainText      PromptMetaKind = "text"
	PromptReferenceChain PromptMetaKind = "chain"
)

// PromptMeta is either free prompt text or an ordered chain of upstream asset
// references followed by the trailing prompt text. The wire/storage form is
// either a bare JSON string or `[{"id": "..."}, ..., "trailing text"]`.
type PromptMeta struct {
	Kind PromptMetaKind
	Text string
	Refs []string
}

// PromptMetaFormatError reports an invalid prompt metadata shape.
type PromptMetaFormatError struct {
	Reason string
}

func (e *PromptMetaFormatError) Error() string {
	return "invalid prompt metadata: " + e.Reason
}

func formatErr(reason string) error {
	return &PromptMetaFormatError{Reason: reason}
}

// PlainText builds a text-only prompt metadata value.
func PlainText(text string) *PromptMeta {
	return &PromptMeta{Kind: PromptPlainText, Text: text}
}

// ReferenceChain builds a chain value; trailing text may be empty.
func ReferenceChain(refs []string, trailing string) *PromptMeta {
	return &PromptMeta{Kind: PromptReferenceChain, Refs: refs, Text: trailing}
}

// ParsePromptMeta validates raw JSON against the prompt metadata contract.
// A JSON null yields nil. Anything that is not a string or a reference chain
// ending in a string is rejected with a PromptMetaFormatError.
func ParsePromptMeta(raw json.RawMessage) (*PromptMeta, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, formatErr("malformed string value")
		}
		return PlainText(text), nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, formatErr("malformed reference list")
		}
		if len(elems) == 0 {
			return nil, formatErr("reference lists must include a trailing prompt string")
		}

		// json.Unmarshal leaves a string untouched on a null token, so check
		// the raw token is actually a string before decoding it.
		last := bytes.TrimSpace(elems[len(elems)-1])
		if len(last) == 0 || last[0] != '"' {
			return nil, formatErr("reference lists must end with the prompt text string")
		}
		var trailing string
		if err := json.Unmarshal(last, &trailing); err != nil {
			return nil, formatErr("reference lists must end with the prompt text string")
		}

		refs := make([]string, 0, len(elems)-1)
		for _, elem := range elems[:len(elems)-1] {
			id, err := parseReference(elem)
			if err != nil {
				return nil, err
			}
			refs = append(refs, id)
		}
		return ReferenceChain(refs, trailing), nil
	default:
		return nil, formatErr("must be a string or a reference list")
	}
}

func parseReference(elem json.RawMessage) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil {
		return "", formatErr("references must be objects containing only an 'id' field")
	}
	rawID, ok := fields["id"]
	if !ok || len(fields) != 1 {
		return "", formatErr("references must be objects containing only an 'id' field")
	}
	var id string
	if err := json.Unmarshal(rawID, &id); err != nil || id == "" {
		return "", formatErr("reference ids must be non-empty strings")
	}
	return id, nil
}

// PromptText returns the human-visible prompt text: the plain value itself,
// or a chain's trailing text.
func (m *PromptMeta) PromptText() string {
	if m == nil {
		return ""
	}
	return m.Text
}

type promptRef struct {
	ID string `json:"id"`
}

func (m *PromptMeta) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	if m.Kind == PromptPlainText {
		return json.Marshal(m.Text)
	}
	elems := make([]any, 0, len(m.Refs)+1)
	for _, id := range m.Refs {
		elems = append(elems, promptRef{ID: id})
	}
	elems = append(elems, m.Text)
	return json.Marshal(elems)
}

func (m *PromptMeta) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePromptMeta(data)
	if err != nil {
		return err
	}
	if parsed == nil {
		return formatErr("must be a string or a reference list")
	}
	*m = *parsed
	return nil
}

// Value implements driver.Valuer so the union persists as its JSON wire form.
func (m *PromptMeta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the JSON column.
func (m *PromptMeta) Scan(value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported prompt_meta column type %T", value)
	}
	return m.UnmarshalJSON(data)
}
