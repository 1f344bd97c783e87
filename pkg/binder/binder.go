package binder

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Context keys a handler can set to false before calling Bind to relax the
// defaults.
const (
	DisallowEmptyBodyKey     = "disallow_empty_body"
	DisallowUnknownFieldsKey = "disallow_unknown_fields"
)

// Binder implements echo.Binder. Payloads are decoded, trimmed with mold,
// filled from default tags and then validated.
type Binder struct {
	queryDecoder *schema.Decoder
	formDecoder  *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

func New() (*Binder, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	if err := validate.RegisterValidation(date, dateValidator); err != nil {
		return nil, errors.WithStack(err)
	}

	return &Binder{
		queryDecoder: newSchemaDecoder("query"),
		formDecoder:  newSchemaDecoder("form"),
		conform:      modifiers.New(),
		validate:     validate,
	}, nil
}

func newSchemaDecoder(tag string) *schema.Decoder {
	dec := schema.NewDecoder()
	dec.SetAliasTag(tag)
	return dec
}

// jsonFieldName makes validation errors name fields the way clients send them.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Bind decodes the body (JSON or form) or, for GET and DELETE without a body,
// the query string into i, then normalizes and validates it.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	switch {
	case req.ContentLength > 0:
		if err := b.bindBody(i, c); err != nil {
			return err
		}
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		if err := b.decodeValues(i, c.QueryParams(), b.queryDecoder); err != nil {
			return err
		}
	case flag(c, DisallowEmptyBodyKey):
		return errcodes.EmptyRequestBody()
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	return b.validateStruct(i)
}

// flag reads a boolean override from the echo context. Both keys default to
// true.
func flag(c echo.Context, key string) bool {
	if v, ok := c.Get(key).(bool); ok {
		return v
	}
	return true
}

func (b *Binder) bindBody(i interface{}, c echo.Context) error {
	req := c.Request()
	ctype := req.Header.Get(echo.HeaderContentType)

	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return decodeJSON(i, c)
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		params, err := c.FormParams()
		if err != nil {
			return errcodes.MalformedPayload()
		}
		return b.decodeValues(i, params, b.formDecoder)
	default:
		return errcodes.UnsupportedMediaType()
	}
}

func decodeJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	dec := json.NewDecoder(req.Body)
	if flag(c, DisallowUnknownFieldsKey) {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	if matches := unknownFieldsRE.FindStringSubmatch(err.Error()); len(matches) > 1 {
		return errcodes.UnknownParameter(matches[1])
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr.Field, typeErr.Type))
	}

	logger.FromEchoContext(c).Err(err).Warn("undecodable json payload")
	return errcodes.MalformedPayload()
}

func (b *Binder) decodeValues(i interface{}, params url.Values, decoder *schema.Decoder) error {
	err := decoder.Decode(i, params)
	if err == nil {
		return nil
	}

	errs, ok := err.(schema.MultiError)
	if !ok {
		return errors.WithStack(err)
	}

	// MultiError is a map, so report the first key in sorted order to keep
	// responses stable.
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	first := errs[keys[0]]

	var conversionErr schema.ConversionError
	if errors.As(first, &conversionErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(conversionErr.Key, conversionErr.Type))
	}
	var unknownErr schema.UnknownKeyError
	if errors.As(first, &unknownErr) {
		return errcodes.UnknownParameter(unknownErr.Key)
	}

	return errors.WithStack(first)
}

func (b *Binder) validateStruct(i interface{}) error {
	err := b.validate.Struct(i)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return errors.WithStack(err)
	}
	return errcodes.ValidationError(formatValidationError(errs[0]))
}
