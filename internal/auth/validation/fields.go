package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/victorgomez09/portal/internal/cerr"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-.]{6,20}$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Checker accumulates field errors; the first failure per field wins.
type Checker struct {
	errs cerr.FieldErrors
	seen map[string]bool
}

func New() *Checker {
	return &Checker{seen: make(map[string]bool)}
}

// Check records msg for field unless ok.
func (c *Checker) Check(ok bool, field, msg string) *Checker {
	if ok || c.seen[field] {
		return c
	}
	c.seen[field] = true
	c.errs.Add(field, msg)
	return c
}

func (c *Checker) Required(field, value string) *Checker {
	return c.Check(strings.TrimSpace(value) != "", field, "is required")
}

func (c *Checker) MaxLen(field, value string, n int) *Checker {
	return c.Check(utf8.RuneCountInString(value) <= n, field, fmt.Sprintf("must be at most %d characters", n))
}

func (c *Checker) Email(field, value string) *Checker {
	c.Required(field, value)
	if c.seen[field] {
		return c
	}
	addr, err := mail.ParseAddress(value)
	return c.Check(err == nil && addr.Address == strings.TrimSpace(value), field, "must be a valid email address")
}

// Phone accepts an empty value.
func (c *Checker) Phone(field, value string) *Checker {
	return c.Check(value == "" || phonePattern.MatchString(value), field, "must be a valid phone number")
}

func (c *Checker) Slug(field, value string) *Checker {
	return c.Check(slugPattern.MatchString(value), field, "must contain lowercase letters, digits and dashes")
}

// Password runs the policy and reports its message against field.
func (c *Checker) Password(field string, v *PasswordValidator, password string, identity ...string) *Checker {
	err := v.ValidatePassword(password, identity...)
	if err == nil {
		return c
	}
	return c.Check(false, field, err.Error())
}

func (c *Checker) Valid() bool {
	return len(c.errs) == 0
}

// Err returns a cerr.FieldErrors, or nil when every check passed.
func (c *Checker) Err() error {
	return c.errs.Err()
}

// Pagination clamps page and limit query values to their allowed range.
func Pagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = 10
	case limit > 100:
		limit = 100
	}
	return page, limit
}
