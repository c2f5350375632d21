package orders

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Comment is either plain text or a structured map of fields. Clients send
// either a JSON string or a JSON object; older clients sent objects encoded
// inside a string, which decode to the structured form as well.
type Comment struct {
	Text   string
	Fields map[string]any
}

func TextComment(s string) Comment { return Comment{Text: s} }

func (c Comment) IsStructured() bool { return c.Fields != nil }

func (c Comment) IsZero() bool { return c.Text == "" && len(c.Fields) == 0 }

// String renders the comment for display and search.
func (c Comment) String() string {
	if !c.IsStructured() {
		return c.Text
	}
	b, _ := json.Marshal(c.Fields)
	return string(b)
}

func (c Comment) MarshalJSON() ([]byte, error) {
	if c.IsStructured() {
		return json.Marshal(c.Fields)
	}
	return json.Marshal(c.Text)
}

func (c *Comment) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*c = Comment{}
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '{':
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		c.Fields = m
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if t := strings.TrimSpace(s); strings.HasPrefix(t, "{") {
			var m map[string]any
			if json.Unmarshal([]byte(t), &m) == nil {
				c.Fields = m
				return nil
			}
		}
		c.Text = s
		return nil
	default:
		// numbers and booleans from loosely typed clients
		c.Text = string(b)
		return nil
	}
}

// encode returns the jsonb representation stored in the database.
func (c Comment) encode() []byte {
	b, err := c.MarshalJSON()
	if err != nil {
		return []byte(`""`)
	}
	return b
}

func decodeComment(b []byte) Comment {
	var c Comment
	if err := c.UnmarshalJSON(b); err != nil {
		return Comment{Text: string(b)}
	}
	return c
}
