// Package rules implements the ordered header-injection rule set.
//
// Each rule pairs a case-sensitive URL substring with a set of headers to
// attach to the outbound request. Rules are evaluated in order and the
// first match wins; at most one rule applies per request. A matching rule
// may carry an empty header set, which still stops evaluation (used for
// upstreams that take their key in the query string the caller built).
package rules

import (
	"fmt"
	"net/http"
	"strings"
)

// Rule is one (URL-substring, header-set) pair.
type Rule struct {
	Match   string
	Headers map[string]string
}

// Set is an ordered rule list plus the default User-Agent attached to
// every outbound request.
type Set struct {
	rules     []Rule
	userAgent string
}

// NewSet builds a Set from an ordered rule list. Rules with an empty
// match string are rejected: they would match every URL and silently
// shadow everything after them.
func NewSet(rules []Rule, userAgent string) (*Set, error) {
	for i, r := range rules {
		if r.Match == "" {
			return nil, fmt.Errorf("rule %d: match substring must not be empty", i)
		}
	}
	return &Set{rules: rules, userAgent: userAgent}, nil
}

// Resolve returns the outbound headers for targetURL: the headers of the
// first matching rule, if any, plus the default User-Agent. Matching is
// case-sensitive substring containment against the full target URL.
func (s *Set) Resolve(targetURL string) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", s.userAgent)

	for _, r := range s.rules {
		if strings.Contains(targetURL, r.Match) {
			for k, v := range r.Headers {
				h.Set(k, v)
			}
			break
		}
	}
	return h
}

// Match reports which rule substring applies to targetURL, or false when
// no rule matches. Used for logging without exposing header values.
func (s *Set) Match(targetURL string) (string, bool) {
	for _, r := range s.rules {
		if strings.Contains(targetURL, r.Match) {
			return r.Match, true
		}
	}
	return "", false
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.rules)
}
