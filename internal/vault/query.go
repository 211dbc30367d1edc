package vault

import (
	"strings"
	"unicode"

	"github.com/vault-cli/credman/internal/domain"
)

// ParseSearchTokens splits the raw search string into lower-cased tokens.
// Tokens are delimited by '+' or any whitespace character.
func ParseSearchTokens(raw string) []string {
	fields := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return unicode.IsSpace(r) || r == '+'
	})
	if len(fields) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		tokens = append(tokens, strings.ToLower(field))
	}
	return tokens
}

// MatchesFilter reports whether a secret passes the filter. Every search
// token must be contained in the name, the username or, for API keys, the
// description. Secret values are never searched.
func MatchesFilter(secret domain.Secret, filter *domain.Filter) bool {
	if filter == nil || secret == nil {
		return true
	}

	tokens := filter.SearchTokens
	if len(tokens) == 0 {
		tokens = ParseSearchTokens(filter.Search)
	}
	if len(tokens) == 0 {
		return true
	}

	haystack := searchableText(secret)
	for _, token := range tokens {
		token = strings.ToLower(token)
		if token == "" {
			continue
		}
		if !containsAny(haystack, token) {
			return false
		}
	}
	return true
}

func searchableText(secret domain.Secret) []string {
	fields := []domain.Field{domain.FieldName, domain.FieldUsername}
	if secret.Kind() == domain.KindAPI {
		fields = append(fields, domain.FieldDescription)
	}

	values := make([]string, 0, len(fields))
	for _, f := range fields {
		if v, err := secret.Get(f); err == nil {
			values = append(values, strings.ToLower(v))
		}
	}
	return values
}

func containsAny(values []string, token string) bool {
	for _, v := range values {
		if strings.Contains(v, token) {
			return true
		}
	}
	return false
}
