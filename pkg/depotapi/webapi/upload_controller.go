package webapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/materials-commons/depot/pkg/actions"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
)

type UploadController struct {
	service *actions.Service
}

func NewUploadController(service *actions.Service) *UploadController {
	return &UploadController{service: service}
}

type initializeUploadRequest struct {
	Storage     string `json:"storage"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Name        string `json:"name"`
}

func (c *UploadController) InitializeUpload(ctx echo.Context) error {
	req, err := bindStrict[initializeUploadRequest](ctx)
	if err != nil {
		return err
	}

	result, err := c.service.UploadInitialize(ctx.Request().Context(), principalFromContext(ctx),
		actions.UploadInitializeParams{
			Storage:     req.Storage,
			Size:        req.Size,
			ContentType: req.ContentType,
			Name:        req.Name,
		})
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusCreated, result)
}

func (c *UploadController) ShowUpload(ctx echo.Context) error {
	result, err := c.service.UploadShow(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

// SendUploadBytes appends the request body at the upload's cursor, or at
// the explicit "position" query param when resuming.
func (c *UploadController) SendUploadBytes(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	up, err := upload.MakeUpload(body)
	if err != nil {
		return toHTTPError(err)
	}

	var extras storage.Extras
	if positionParam := ctx.QueryParam("position"); positionParam != "" {
		position, err := strconv.ParseInt(positionParam, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid position")
		}
		extras = storage.Extras{"position": position}
	}

	result, err := c.service.UploadUpdate(ctx.Request().Context(), principalFromContext(ctx),
		ctx.Param("id"), up, extras)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

type completeUploadRequest struct {
	Hash string `json:"hash"`
}

func (c *UploadController) CompleteUpload(ctx echo.Context) error {
	req, err := bindStrict[completeUploadRequest](ctx)
	if err != nil {
		return err
	}

	result, err := c.service.UploadComplete(ctx.Request().Context(), principalFromContext(ctx),
		ctx.Param("id"), req.Hash)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}
