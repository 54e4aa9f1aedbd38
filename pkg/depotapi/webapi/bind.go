package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/materials-commons/depot/pkg/decoder"
)

// bindStrict decodes a JSON request body into T, rejecting keys the
// request type doesn't declare.
func bindStrict[T any](ctx echo.Context) (T, error) {
	var raw map[string]any
	if err := ctx.Bind(&raw); err != nil {
		var zero T
		return zero, err
	}

	req, err := decoder.DecodeMapStrict[T](raw)
	if err != nil {
		var zero T
		return zero, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return req, nil
}
