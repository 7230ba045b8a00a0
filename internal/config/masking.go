package config

import "strings"

// maskSecret keeps the first and last four characters of secret.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 8 {
		return "***"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// MaskTelegramToken hides the secret part of a bot token and keeps the bot
// id visible for diagnostics.
func MaskTelegramToken(token string) string {
	botID, secret, ok := strings.Cut(token, ":")
	if !ok {
		return maskSecret(token)
	}
	return botID + ":" + maskSecret(secret)
}

// formatValidationError builds a ValidationError that shows secret only in
// masked form.
func formatValidationError(field, message, secret string) error {
	msg := field + ": " + message
	if secret != "" {
		msg += " (value: " + MaskTelegramToken(secret) + ")"
	}
	return &ValidationError{Field: field, Message: msg}
}

// ValidationError is a configuration problem tied to one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
