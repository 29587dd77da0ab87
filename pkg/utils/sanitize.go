package utils

import (
	"regexp"
)

// Upstream failures are shown to moderators, and their messages can carry
// URLs or header dumps. Anything secret-shaped is redacted before the text
// reaches an embed.
var (
	webhookURLPattern = regexp.MustCompile(`(?i)(discord(?:app)?\.com/api/(?:v\d+/)?webhooks/\d+)/[\w-]+`)
	bearerPattern     = regexp.MustCompile(`(?i)\bbearer\s+[\w.~+/-]+=*`)
	botTokenPattern   = regexp.MustCompile(`(?i)\bbot\s+[\w.-]{20,}`)
	queryParamPattern = regexp.MustCompile(`(?i)\b(token|secret|key|api_key|apikey|password)=[^&\s"']+`)
)

// SanitizeError strips tokens and secrets from an error message before it is
// rendered to a user.
func SanitizeError(message string) string {
	message = webhookURLPattern.ReplaceAllString(message, "$1/[redacted]")
	message = bearerPattern.ReplaceAllString(message, "Bearer [redacted]")
	message = botTokenPattern.ReplaceAllString(message, "Bot [redacted]")
	message = queryParamPattern.ReplaceAllString(message, "$1=[redacted]")

	return message
}

// TruncateString shortens a string to the given rune length, appending an
// ellipsis when it was cut. Discord embed fields cap out at 1024 characters.
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	return string(runes[:maxLength-3]) + "..."
}
