package notification

import "testing"

func TestEscapeMarkdown(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"entry 500.00 (target 510.00)!", `entry 500\.00 \(target 510\.00\)\!`},
		{"SBIN-EQ *BUY*", `SBIN\-EQ \*BUY\*`},
	}
	for _, tc := range cases {
		if got := escapeMarkdown(tc.in); got != tc.want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
