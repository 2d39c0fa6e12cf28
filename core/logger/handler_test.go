package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"log/slog"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	flush := func() string {
		if err := aw.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}
		if err := aw.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		return strings.TrimSpace(buf.String())
	}
	return slog.New(handler), flush
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, flush := newTestLogger(t, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", CompShop), slog.LevelInfo, "order.recorded",
		slog.String("status", "ok"),
		slog.String("product_id", "p-1"),
	)

	line := flush()
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=shop", "event=order.recorded", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, flush := newTestLogger(t, formatJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithHandler(ctx, "action.buy")

	LogEvent(ctx, log.With("component", CompPayments), slog.LevelError, "fulfill.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "NOT_FOUND"),
	)

	line := flush()
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"payments"`, `"event":"fulfill.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"handler":"action.buy"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	log, flush := newTestLogger(t, formatKV)
	rawRID := BuildRID(123, 456, 789)
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")

	line := flush()
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	log, flush := newTestLogger(t, formatJSON)
	rawRID := "12:34:56"
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")

	line := flush()
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerNormalizesValues(t *testing.T) {
	log, flush := newTestLogger(t, formatKV)
	LogEvent(Background(), log, slog.LevelInfo, "normalize",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("wait", 2*time.Second),
		slog.String("outcome", "exploded"),
		slog.String("status", "DUPLICATE"),
	)

	line := flush()
	for _, want := range []string{"duration_ms=2", "wait_ms=2000", "status=duplicate", "component=app"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped, got %s", line)
	}
}

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	if L != nil {
		t.Skip("global logger already initialised")
	}
	Info(Background(), CompStore, "noop")
	Debug(nil, CompStore, "noop")
	TG.Info("discarded")
}

func TestCompactRIDRejectsForeignFormat(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"abc":        "abc",
		"1:2":        "1:2",
		"1:x:3":      "1:x:3",
		"35:36:1295": "z.10.zz",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\nd", 10); got != "abc\nd" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	var passed []bool
	for i := 0; i < 10; i++ {
		passed = append(passed, s.Allow())
	}
	want := []bool{true, true, false, false, false, true, true, false, false, false}
	for i := range want {
		if passed[i] != want[i] {
			t.Fatalf("event %d: got %v want %v", i, passed[i], want[i])
		}
	}

	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must pass everything")
	}
}

func TestParseRatio(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		"20":   {1, 20},
		"0":    {0, 0},
		"x/2":  {0, 0},
		"":     {0, 0},
	}
	for ratio, want := range cases {
		num, den := parseRatio(ratio)
		if num != want[0] || den != want[1] {
			t.Fatalf("%q: got %d/%d want %d/%d", ratio, num, den, want[0], want[1])
		}
	}
}

func TestAsyncWriterRejectsWritesAfterClose(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 0)
	if err := aw.Write([]byte("one\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := aw.Write([]byte("two\n")); err != errWriterClosed {
		t.Fatalf("got %v, want errWriterClosed", err)
	}
	if got := buf.String(); got != "one\n" {
		t.Fatalf("got %q", got)
	}
}
