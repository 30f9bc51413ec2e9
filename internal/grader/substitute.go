package grader

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrIncomplete is returned by Substitute when a placeholder has no value
// and the policy does not supply a default.
var ErrIncomplete = errors.New("incomplete input")

// MissingPolicy decides what an unfilled placeholder becomes.
type MissingPolicy struct {
	UseDefault bool
	Default    string
}

var (
	// FailOnMissing rejects any unfilled placeholder.
	FailOnMissing = MissingPolicy{}

	// MissingIsOne fills placeholders with the multiplicative identity.
	MissingIsOne = MissingPolicy{UseDefault: true, Default: "1"}
)

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Substitute replaces every "{key}" in template with values[key].
func Substitute(template string, values map[string]string, policy MissingPolicy) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := values[key]; ok && v != "" {
			return v
		}
		if policy.UseDefault {
			return policy.Default
		}
		missing = append(missing, key)
		return m
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &IncompleteError{Missing: missing}
	}
	return out, nil
}

// IncompleteError lists the placeholders left unfilled.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return "incomplete input: no value for " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteError) Unwrap() error { return ErrIncomplete }
