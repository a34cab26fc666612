package logger

import (
	"log/slog"
	"strings"
)

// Authorization schemes whose credential part is masked wherever it shows up.
var sensitiveSchemes = []string{
	"Token ",
	"Bearer ",
	"Basic ",
}

// Key names whose values are never logged.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"credential",
	"authorization",
	"cookie",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		for _, scheme := range sensitiveSchemes {
			if strings.HasPrefix(strVal, scheme) {
				return slog.String(a.Key, scheme+Mask(strVal[len(scheme):]))
			}
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// Mask keeps the first and last three characters of a secret.
//
// Values of eight characters or fewer are fully hidden.
func Mask(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactHeader returns an Authorization header value safe for display.
func RedactHeader(value string) string {
	for _, scheme := range sensitiveSchemes {
		if strings.HasPrefix(value, scheme) {
			return scheme + Mask(value[len(scheme):])
		}
	}
	if value == "" {
		return ""
	}
	return Mask(value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
