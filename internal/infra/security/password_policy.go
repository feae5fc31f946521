package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// DefaultPunctuationSet is the symbol set accepted by the default policy.
const DefaultPunctuationSet = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

const (
	defaultMinPasswordLength = 8

	// Violation codes surfaced to callers. The web layer renders the
	// matching messages verbatim, so codes stay stable.
	ViolationMinLength        = "min_length"
	ViolationMissingUpper     = "missing_uppercase"
	ViolationMissingLower     = "missing_lowercase"
	ViolationMissingDigit     = "missing_digit"
	ViolationMissingSymbol    = "missing_symbol"
	ViolationWeakPassword     = "weak_password"
	ViolationProtectedAccount = "protected_account"
)

// PolicyViolation describes a single unmet password rule.
type PolicyViolation struct {
	Code    string
	Message string
}

// Error implements error for PolicyViolation.
func (v PolicyViolation) Error() string {
	return v.Message
}

// PasswordPolicy evaluates a proposed secret against every configured rule.
// All rules run on every call so callers receive the complete violation
// list rather than the first failure.
type PasswordPolicy struct {
	minLength   int
	punctuation string
	minStrength int
}

// PolicyOption customises a PasswordPolicy.
type PolicyOption func(*PasswordPolicy)

// WithMinLength overrides the minimum password length.
func WithMinLength(min int) PolicyOption {
	return func(p *PasswordPolicy) {
		if min > 0 {
			p.minLength = min
		}
	}
}

// WithPunctuationSet overrides the accepted symbol characters.
func WithPunctuationSet(set string) PolicyOption {
	return func(p *PasswordPolicy) {
		if set != "" {
			p.punctuation = set
		}
	}
}

// WithMinStrengthScore enables the zxcvbn strength rule at the given
// minimum score (1-4). Zero disables the rule.
func WithMinStrengthScore(score int) PolicyOption {
	return func(p *PasswordPolicy) {
		if score > 4 {
			score = 4
		}
		p.minStrength = score
	}
}

// NewPasswordPolicy constructs a policy with the built-in defaults, then
// applies the supplied options.
func NewPasswordPolicy(opts ...PolicyOption) *PasswordPolicy {
	policy := &PasswordPolicy{
		minLength:   defaultMinPasswordLength,
		punctuation: DefaultPunctuationSet,
	}
	for _, opt := range opts {
		opt(policy)
	}
	return policy
}

// MinLength returns the configured minimum password length.
func (p *PasswordPolicy) MinLength() int {
	return p.minLength
}

// Evaluate runs every rule against the password and returns all violations.
// An empty slice means the password satisfies the policy. userInputs feed
// the optional strength rule so passwords derived from account data score
// lower.
func (p *PasswordPolicy) Evaluate(password string, userInputs ...string) []PolicyViolation {
	var violations []PolicyViolation

	if len([]rune(password)) < p.minLength {
		violations = append(violations, PolicyViolation{
			Code:    ViolationMinLength,
			Message: fmt.Sprintf("password must be at least %d characters long", p.minLength),
		})
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(p.punctuation, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, PolicyViolation{
			Code:    ViolationMissingUpper,
			Message: "password must include at least one uppercase letter",
		})
	}
	if !hasLower {
		violations = append(violations, PolicyViolation{
			Code:    ViolationMissingLower,
			Message: "password must include at least one lowercase letter",
		})
	}
	if !hasDigit {
		violations = append(violations, PolicyViolation{
			Code:    ViolationMissingDigit,
			Message: "password must include at least one digit",
		})
	}
	if !hasSymbol {
		violations = append(violations, PolicyViolation{
			Code:    ViolationMissingSymbol,
			Message: "password must include at least one symbol",
		})
	}

	if p.minStrength > 0 {
		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score < p.minStrength {
			violations = append(violations, PolicyViolation{
				Code:    ViolationWeakPassword,
				Message: "password is too weak; choose a more complex value",
			})
		}
	}

	return violations
}

// ViolationCodes flattens violations into their codes, preserving order.
func ViolationCodes(violations []PolicyViolation) []string {
	codes := make([]string, 0, len(violations))
	for _, violation := range violations {
		codes = append(codes, violation.Code)
	}
	return codes
}

// ProtectedAccounts is the single configured set of account names whose
// credentials only the owner may rotate. Lookups are case-insensitive.
type ProtectedAccounts struct {
	names map[string]struct{}
}

// NewProtectedAccounts builds the set from configuration values.
func NewProtectedAccounts(names []string) *ProtectedAccounts {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return &ProtectedAccounts{names: set}
}

// Contains reports whether the username is protected.
func (p *ProtectedAccounts) Contains(username string) bool {
	if p == nil {
		return false
	}
	_, ok := p.names[strings.ToLower(strings.TrimSpace(username))]
	return ok
}
