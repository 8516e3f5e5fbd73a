package loghandler

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"testing"
)

var linePrefix = regexp.MustCompile(`^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} `)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, slog.LevelInfo))

	log.Info("session opened", "tag", "lobby", "session", "abc", "players", 20)

	line := buf.String()
	if !linePrefix.MatchString(line) {
		t.Fatalf("expected timestamp prefix, got %q", line)
	}
	rest := linePrefix.ReplaceAllString(line, "")
	if rest != "[lobby] session opened session=abc players=20\n" {
		t.Errorf("unexpected line %q", rest)
	}
}

func TestCompactHandlerLevelMarker(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, slog.LevelInfo))

	log.Warn("rejected action", "tag", "session")
	log.Error("write failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "[WARN] [session] rejected action") {
		t.Errorf("unexpected warn line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] write failed") {
		t.Errorf("unexpected error line %q", lines[1])
	}
}

func TestCompactHandlerMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, slog.LevelWarn))

	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got %q", buf.String())
	}
}

func TestCompactHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, slog.LevelInfo)).With("tag", "autohost", "session", "s1")

	log.Info("picked card", "card", 2)

	rest := linePrefix.ReplaceAllString(buf.String(), "")
	if rest != "[autohost] picked card session=s1 card=2\n" {
		t.Errorf("unexpected line %q", rest)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"Error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected an error for unknown level")
	}
}
