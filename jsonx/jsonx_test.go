package jsonx

import (
	"errors"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{
			name: "fenced json block",
			in:   "Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps.",
			want: `{"a": 1}`,
		},
		{
			name: "bare fence",
			in:   "```\n[1, 2, 3]\n```",
			want: `[1, 2, 3]`,
		},
		{
			name: "fenced json preferred over surrounding braces",
			in:   "{not json}\n```json\n{\"b\": 2}\n```",
			want: `{"b": 2}`,
		},
		{
			name: "brace delimited with trailing commentary",
			in:   `The answer is {"c": 3} as requested.`,
			want: `{"c": 3}`,
		},
		{
			name: "bracket delimited",
			in:   "Ranking: [2, 0, 1] done",
			want: `[2, 0, 1]`,
		},
		{
			name: "no payload",
			in:   "I cannot answer that.",
			err:  true,
		},
		{
			name: "unterminated fence falls through to braces",
			in:   "```json\n{\"d\": 4}",
			want: `{"d": 4}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.in)
			if tt.err {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("expected ErrNoJSON, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("extract error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	var out struct {
		CaseType string   `json:"case_type"`
		Parties  []string `json:"parties"`
	}
	text := "```json\n{\"case_type\": \"民事\", \"parties\": [\"张某\", \"李某\"]}\n```"
	if err := Unmarshal(text, &out); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if out.CaseType != "民事" || len(out.Parties) != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}

	if err := Unmarshal("{broken", &out); err == nil {
		t.Fatal("expected decode error for malformed JSON")
	}
}
