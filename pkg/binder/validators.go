package binder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
)

var dateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// dateValidator accepts YYYY-MM-DD strings naming a real calendar day, so
// 2026-02-30 fails here rather than deep inside a service. The empty string
// passes; pair with `ne=` when the date is mandatory.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if !dateRE.MatchString(value) {
		return false
	}
	_, err := clock.ParseDate(value)
	return err == nil
}
