package orders

import (
	"encoding/json"
	"testing"
)

func TestCommentDecodesVariants(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		structured bool
		text       string
		field      string
	}{
		{"plain string", `"needs docking station"`, false, "needs docking station", ""},
		{"object", `{"note":"rush","ticket":"IT-4"}`, true, "", "rush"},
		{"object inside string", `"{\"note\":\"rush\"}"`, true, "", "rush"},
		{"broken object inside string", `"{not json"`, false, "{not json", ""},
		{"null", `null`, false, "", ""},
		{"number", `42`, false, "42", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Comment
			if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if c.IsStructured() != tt.structured {
				t.Fatalf("structured = %v, want %v", c.IsStructured(), tt.structured)
			}
			if c.Text != tt.text {
				t.Fatalf("text = %q, want %q", c.Text, tt.text)
			}
			if tt.field != "" && c.Fields["note"] != tt.field {
				t.Fatalf("fields = %v", c.Fields)
			}
		})
	}
}

func TestCommentEncodesOneForm(t *testing.T) {
	if got := string(TextComment("hi").encode()); got != `"hi"` {
		t.Fatalf("text encode = %s", got)
	}
	c := Comment{Fields: map[string]any{"note": "rush"}}
	if got := string(c.encode()); got != `{"note":"rush"}` {
		t.Fatalf("structured encode = %s", got)
	}
	if got := decodeComment(c.encode()); got.Fields["note"] != "rush" {
		t.Fatalf("decode = %+v", got)
	}
	if got := string(Comment{}.encode()); got != `""` {
		t.Fatalf("zero encode = %s", got)
	}
}
