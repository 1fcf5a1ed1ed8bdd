package logger

import (
	"log/slog"
	"strings"
)

// SanitizedLogin masks a login for logging. Emails keep their first character
// and TLD ("u***@*******.com"); usernames keep their first character.
func SanitizedLogin(login string) string {
	if login == "" {
		return ""
	}
	if strings.Contains(login, "@") {
		return SanitizedEmail(login)
	}
	if len(login) == 1 {
		return "*"
	}
	return login[:1] + strings.Repeat("*", len(login)-1)
}

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Keep only the TLD readable
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// RedactedAttr returns "[REDACTED]" for key in production and the real value elsewhere
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

var sensitiveParams = []string{
	"password",
	"token",
	"refresh",
	"secret",
	"login",
	"email",
	"auth",
}

// SanitizeQueryString reports whether rawQuery mentions a sensitive parameter
// and should be redacted entirely
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
