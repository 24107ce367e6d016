package agent

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChatTitleTruncation(t *testing.T) {
	if got := chatTitle("  Plan the gala  "); got != "Plan the gala" {
		t.Fatalf("expected trimmed title, got %q", got)
	}

	long := strings.Repeat("会場の装飾について相談したい", 10)
	got := chatTitle(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is not valid UTF-8: %q", got)
	}
	if count := utf8.RuneCountInString(got); count > chatTitleMaxLen {
		t.Fatalf("title has %d runes, want at most %d", count, chatTitleMaxLen)
	}
	if !strings.HasPrefix(long, got) {
		t.Fatalf("truncated title is not a prefix of the input: %q", got)
	}

	short := "Quick question"
	if got := chatTitle(short); got != short {
		t.Fatalf("short title should be untouched, got %q", got)
	}
}
