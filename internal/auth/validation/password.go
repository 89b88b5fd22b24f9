package validation

import (
	"errors"
	"strings"
	"unicode"

	"github.com/victorgomez09/portal/internal/config"
)

var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrMissingUppercase = errors.New("password must contain at least one uppercase letter")
	ErrMissingLowercase = errors.New("password must contain at least one lowercase letter")
	ErrMissingNumber    = errors.New("password must contain at least one number")
	ErrMissingSpecial   = errors.New("password must contain at least one special character")
	ErrContainsIdentity = errors.New("password cannot contain your email or name")
	ErrCommonPassword   = errors.New("password is too common")
	ErrConsecutiveChars = errors.New("password contains consecutive repeated characters")
	ErrSequentialChars  = errors.New("password contains sequential characters")
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

type PasswordPolicy struct {
	MinLength           int
	MaxLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecial      bool
	MaxRepeatingChars   int
	PreventSequential   bool
	PreventIdentityPart bool
}

// DefaultPasswordPolicy returns a recommended password policy
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:           8,
		MaxLength:           maxPasswordBytes,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		MaxRepeatingChars:   3,
		PreventSequential:   true,
		PreventIdentityPart: true,
	}
}

// PolicyFromConfig overlays the configured knobs on the default policy.
func PolicyFromConfig(cfg config.PasswordPolicy) PasswordPolicy {
	p := DefaultPasswordPolicy()
	if cfg.MinLength > 0 {
		p.MinLength = cfg.MinLength
	}
	p.RequireUppercase = cfg.RequireUppercase
	p.RequireNumbers = cfg.RequireNumber
	p.RequireSpecial = cfg.RequireSpecial
	return p
}

type PasswordValidator struct {
	policy PasswordPolicy
}

func NewPasswordValidator(policy PasswordPolicy) *PasswordValidator {
	if policy.MaxLength <= 0 || policy.MaxLength > maxPasswordBytes {
		policy.MaxLength = maxPasswordBytes
	}
	return &PasswordValidator{
		policy: policy,
	}
}

// ValidatePassword checks password against the policy. identity holds strings the
// password must not contain, typically the email local part and the names.
func (v *PasswordValidator) ValidatePassword(password string, identity ...string) error {
	if len(password) < v.policy.MinLength {
		return ErrPasswordTooShort
	}
	if len(password) > v.policy.MaxLength {
		return ErrPasswordTooLong
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if v.policy.RequireUppercase && !hasUpper {
		return ErrMissingUppercase
	}
	if v.policy.RequireLowercase && !hasLower {
		return ErrMissingLowercase
	}
	if v.policy.RequireNumbers && !hasNumber {
		return ErrMissingNumber
	}
	if v.policy.RequireSpecial && !hasSpecial {
		return ErrMissingSpecial
	}

	if v.policy.MaxRepeatingChars > 0 {
		if err := v.checkRepeatingChars(password); err != nil {
			return err
		}
	}

	if v.policy.PreventSequential {
		if err := checkSequentialChars(password); err != nil {
			return err
		}
	}

	if v.policy.PreventIdentityPart {
		if err := checkIdentityInPassword(password, identity); err != nil {
			return err
		}
	}

	return checkCommonPasswords(password)
}

func (v *PasswordValidator) checkRepeatingChars(password string) error {
	var count int
	var lastChar rune

	for i, char := range password {
		if i == 0 {
			lastChar = char
			count = 1
			continue
		}

		if char == lastChar {
			count++
			if count > v.policy.MaxRepeatingChars {
				return ErrConsecutiveChars
			}
		} else {
			lastChar = char
			count = 1
		}
	}
	return nil
}

func checkSequentialChars(password string) error {
	sequences := []string{
		"abcdefghijklmnopqrstuvwxyz",
		"0123456789",
	}

	lowPass := strings.ToLower(password)
	for _, seq := range sequences {
		for i := 0; i < len(seq)-3; i++ {
			run := seq[i : i+4]
			if strings.Contains(lowPass, run) || strings.Contains(lowPass, reverse(run)) {
				return ErrSequentialChars
			}
		}
	}
	return nil
}

func checkIdentityInPassword(password string, identity []string) error {
	lowPass := strings.ToLower(password)
	for _, part := range identity {
		if i := strings.IndexByte(part, '@'); i >= 0 {
			part = part[:i]
		}
		part = strings.ToLower(strings.TrimSpace(part))
		if len(part) < 3 {
			continue
		}
		if strings.Contains(lowPass, part) {
			return ErrContainsIdentity
		}
	}
	return nil
}

var commonPasswords = map[string]bool{
	"password":    true,
	"password1":   true,
	"password123": true,
	"passw0rd":    true,
	"12345678":    true,
	"qwerty123":   true,
	"admin123":    true,
	"letmein1":    true,
	"welcome1":    true,
	"iloveyou1":   true,
}

func checkCommonPasswords(password string) error {
	if commonPasswords[strings.ToLower(password)] {
		return ErrCommonPassword
	}
	return nil
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
