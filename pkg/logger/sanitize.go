package logger

import (
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@*******.com")
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "[invalid-email]"
	}

	if len(local) > 1 {
		local = local[:1] + strings.Repeat("*", len(local)-1)
	}

	// keep only the TLD readable
	if i := strings.LastIndex(domain, "."); i > 0 {
		domain = strings.Repeat("*", i) + domain[i:]
	}

	return local + "@" + domain
}

var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"email",
	"auth",
	"term", // member search terms are user names
}

// SensitiveQuery reports whether a raw query string should be redacted from request logs
func SensitiveQuery(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
