package dto

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var sessionPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// NewValidator returns a validator with the custom tags used by this package.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := ParseWeekday(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("session", func(fl validator.FieldLevel) bool {
		return validSession(fl.Field().String())
	})
	return v
}

// ParseWeekday accepts English weekday names in any case.
func ParseWeekday(raw string) (time.Weekday, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, true
		}
	}
	return 0, false
}

// validSession accepts "YYYY-YYYY" with a non-decreasing year pair.
func validSession(raw string) bool {
	m := sessionPattern.FindStringSubmatch(raw)
	if m == nil {
		return false
	}
	from, _ := strconv.Atoi(m[1])
	to, _ := strconv.Atoi(m[2])
	return to >= from
}
