package webapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/materials-commons/depot/pkg/errs"
	"gorm.io/gorm"
)

// toHTTPError maps the error taxonomy onto response codes.
func toHTTPError(err error) error {
	var (
		validationErr  *errs.ValidationError
		notAuthorized  *errs.NotAuthorizedError
		unsupportedOp  *errs.UnsupportedOperationError
		missingFile    *errs.MissingFileError
		unknownStorage *errs.UnknownStorageError
		largeUpload    *errs.LargeUploadError
		outOfBound     *errs.UploadOutOfBoundError
		contentErr     *errs.ContentError
	)

	switch {
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Fields)
	case errors.As(err, &notAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound), errors.As(err, &missingFile), errors.As(err, &unknownStorage):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &largeUpload):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &unsupportedOp), errors.As(err, &outOfBound), errors.As(err, &contentErr):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
