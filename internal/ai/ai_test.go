package ai

import "testing"

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"selected_specialist": "technical"}`,
			want: `{"selected_specialist": "technical"}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "plain fence",
			in:   "```\n[\"q1\", \"q2\"]\n```",
			want: `["q1", "q2"]`,
		},
		{
			name: "surrounding whitespace",
			in:   "  \n {\"a\": 1} \n",
			want: `{"a": 1}`,
		},
		{
			name: "stray backticks",
			in:   "`{\"a\": 1}`",
			want: `{"a": 1}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
