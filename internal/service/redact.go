package service

import "regexp"

// apiKeyPattern matches API-key query parameter values in target URLs.
// Some upstreams (the-odds-api.com) take the key in the query string the
// caller built, so target URLs and error messages containing them must be
// redacted before logging.
var apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key=)[^&\s"]+`)

// RedactKeys replaces API-key query values in s with [REDACTED].
func RedactKeys(s string) string {
	return apiKeyPattern.ReplaceAllString(s, "${1}[REDACTED]")
}
