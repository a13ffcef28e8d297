package service

import "testing"

func TestCleanJSONOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `  {"a": 1}  `, want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "bare fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "prose around fence", in: "Here you go:\n```json\n{\"a\": 1}\n```\nThanks", want: `{"a": 1}`},
		{name: "first block wins", in: "```{\"a\": 1}``` and ```{\"b\": 2}```", want: `{"a": 1}`},
		{name: "no json", in: "not json at all", want: "not json at all"},
		{name: "invalid utf8", in: "{\"a\": \"x\xffy\"}", want: `{"a": "xy"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONOutput(tt.in); got != tt.want {
				t.Errorf("CleanJSONOutput(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
