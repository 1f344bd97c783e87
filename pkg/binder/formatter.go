package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation tags with a dedicated message.
const (
	date     = "date"
	email    = "email"
	mx       = "max"
	mn       = "min"
	ne       = "ne"
	oneof    = "oneof"
	required = "required"
)

func formatUnmarshalTypeError(field string, typ reflect.Type) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(field, "."), typ)
}

// fieldPath names the failing field by its JSON path, e.g.
// permissions[1].resource for an element of a nested slice.
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}

func formatValidationError(err validator.FieldError) string {
	field := fieldPath(err)

	switch err.Tag() {
	case date:
		return fmt.Sprintf("%q should be a calendar date in the format of YYYY-MM-DD", field)
	case email:
		return fmt.Sprintf("%q is not a valid email", field)
	case mx:
		return formatBound(field, "less than or equal to", err)
	case mn:
		return formatBound(field, "greater than or equal to", err)
	case ne:
		return fmt.Sprintf("%q can't be %q", field, err.Param())
	case oneof:
		valids := []string{}
		for _, p := range strings.Fields(err.Param()) {
			valids = append(valids, fmt.Sprintf("%q", p))
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(valids, ", "))
	case required:
		return fmt.Sprintf("%q is required", field)
	default:
		return fmt.Sprintf("%q failed the %q check", field, err.Tag())
	}
}

// formatBound renders min/max failures. Numbers compare by value, strings
// and slices by length.
func formatBound(field, cmp string, err validator.FieldError) string {
	var unit string
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s %s", field, cmp, err.Param())
	case reflect.Slice, reflect.Array:
		unit = "element"
	default:
		unit = "character"
	}
	if err.Param() != "1" {
		unit += "s"
	}
	return fmt.Sprintf("%q length must be %s %s %s", field, cmp, err.Param(), unit)
}
