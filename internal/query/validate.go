package query

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/steveyegge/trackdash/internal/types"
)

var (
	projectKeyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	issueKeyRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*-[0-9]+$`)
	numericRe    = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateProjectKey rejects keys the JQL grammar cannot carry as a project key.
func ValidateProjectKey(key string) error {
	return validateKey("project key", key, projectKeyRe)
}

// ValidateIssueKey rejects malformed issue keys such as "PROJ 12" or "12".
func ValidateIssueKey(key string) error {
	return validateKey("issue key", key, issueKeyRe)
}

// ValidateVersionID rejects empty ids and ids with embedded whitespace or
// control characters. Non-numeric ids are allowed and rendered quoted.
func ValidateVersionID(id string) error {
	if id == "" {
		return types.Invalid("version id", "", "is required")
	}
	if strings.ContainsFunc(id, unicode.IsSpace) {
		return types.Invalid("version id", id, "contains whitespace")
	}
	if strings.ContainsFunc(id, unicode.IsControl) {
		return types.Invalid("version id", id, "contains control characters")
	}
	return nil
}

func validateKey(field, key string, re *regexp.Regexp) error {
	if key == "" {
		return types.Invalid(field, "", "is required")
	}
	if strings.ContainsFunc(key, unicode.IsSpace) {
		return types.Invalid(field, key, "contains whitespace")
	}
	if !re.MatchString(key) {
		return types.Invalid(field, key, "contains characters not allowed in JQL")
	}
	return nil
}

// isNumeric reports whether s can be emitted as a bare JQL number.
func isNumeric(s string) bool {
	return numericRe.MatchString(s)
}
