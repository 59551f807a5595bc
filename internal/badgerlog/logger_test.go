package badgerlog

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"warn", WarningLevel, false},
		{" DEBUG ", DebugLevel, false},
		{"none", NoLogging, false},
		{"error", ErrorLevel, false},
		{"loud", NoLogging, true},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			l, err := ParseLevel(test.in)
			if (err != nil) != test.err {
				t.Fatalf("unexpected error state: %v", err)
			}
			if l != test.want {
				t.Fatalf("expected %v, got %v", test.want, l)
			}
		})
	}
}

func TestLoggerFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(log.New(&buf, "", 0), WarningLevel).WithPrefix("history")

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warningf("shown %d\n", 3)
	l.Errorf("shown %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	if lines[0] != "history: warning: shown 3" {
		t.Errorf("unexpected line %q", lines[0])
	}
	if lines[1] != "history: error: shown 4" {
		t.Errorf("unexpected line %q", lines[1])
	}
}
