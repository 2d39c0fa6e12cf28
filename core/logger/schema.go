package logger

import "strings"

// Canonical level names written to the "level" field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var levelAliases = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// Known values for "status". Unknown values pass through unchanged.
var knownStatus = map[string]struct{}{
	"ok":        {},
	"fail":      {},
	"skip":      {},
	"retry":     {},
	"duplicate": {},
	"denied":    {},
	"cancelled": {},
}

// Allowed values for "outcome". Anything else is dropped.
var knownOutcome = map[string]struct{}{
	"ok":        {},
	"fail":      {},
	"cancelled": {},
	"denied":    {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := levelAliases[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(value string, known map[string]struct{}) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	_, ok := known[value]
	return value, ok
}

// defaultKeyOrder pins the leading columns of every line; remaining keys are sorted.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"kind",
	"action",
	"state",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"product_id",
	"order_id",
	"payment_id",
	"price",
	"admins",
	"count",
	"driver",
	"path",
	"listen",
	"mode",
	"err",
	"err_code",
	"cause",
	"attempts",
}
