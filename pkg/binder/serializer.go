package binder

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// JSONSerializer renders responses with segmentio/encoding. Request bodies
// never reach Deserialize since Binder decodes them itself.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return errors.WithStack(enc.Encode(i))
}

func (JSONSerializer) Deserialize(c echo.Context, i interface{}) error {
	return errors.WithStack(json.NewDecoder(c.Request().Body).Decode(i))
}
