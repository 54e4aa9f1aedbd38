package webapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/materials-commons/depot/pkg/actions"
	"github.com/materials-commons/depot/pkg/depotdb/stor"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/taskq"
	"github.com/materials-commons/depot/pkg/upload"
)

type FileController struct {
	service *actions.Service
}

func NewFileController(service *actions.Service) *FileController {
	return &FileController{service: service}
}

// CreateFile accepts a multipart form with a "file" part plus "storage"
// and optional "name" fields. The action runs inside a task queue scope
// so host tasks enqueued during creation drain on success.
func (c *FileController) CreateFile(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file in request")
	}

	up, err := upload.MakeUpload(fileHeader)
	if err != nil {
		return toHTTPError(err)
	}

	p := principalFromContext(ctx)
	requestCtx := ctx.Request().Context()

	result, err := taskq.Run(requestCtx, func(qctx context.Context) (map[string]interface{}, error) {
		return c.service.FileCreate(qctx, p, actions.FileCreateParams{
			Storage: ctx.FormValue("storage"),
			Name:    ctx.FormValue("name"),
			Upload:  up,
		})
	})
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusCreated, result)
}

func (c *FileController) ShowFile(ctx echo.Context) error {
	result, err := c.service.FileShow(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *FileController) ShowFileContent(ctx echo.Context) error {
	requestCtx := ctx.Request().Context()
	p := principalFromContext(ctx)

	result, err := c.service.FileShow(requestCtx, p, ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	storageName, _ := result["storage"].(string)
	st, err := storage.GetStorage(storageName)
	if err != nil {
		return toHTTPError(err)
	}

	location, _ := result["location"].(string)
	size, _ := result["size"].(int64)
	contentType, _ := result["content_type"].(string)

	it, err := st.Stream(requestCtx, &storage.FileData{Location: location, Size: size}, nil)
	if err != nil {
		return toHTTPError(err)
	}
	defer it.Close()

	return ctx.Stream(http.StatusOK, contentType, it.Reader())
}

type renameFileRequest struct {
	Name string `json:"name"`
}

func (c *FileController) RenameFile(ctx echo.Context) error {
	req, err := bindStrict[renameFileRequest](ctx)
	if err != nil {
		return err
	}

	result, err := c.service.FileRename(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"), req.Name)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *FileController) TouchFile(ctx echo.Context) error {
	result, err := c.service.FileTouch(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

type moveFileRequest struct {
	Storage string `json:"storage"`
}

func (c *FileController) MoveFile(ctx echo.Context) error {
	req, err := bindStrict[moveFileRequest](ctx)
	if err != nil {
		return err
	}

	result, err := c.service.FileMove(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"), req.Storage)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *FileController) DeleteFile(ctx echo.Context) error {
	err := c.service.FileDelete(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *FileController) SearchFiles(ctx echo.Context) error {
	params := searchParamsFromQuery(ctx)

	results, err := c.service.FileSearchByUser(ctx.Request().Context(), principalFromContext(ctx), params)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, results)
}

func (c *FileController) SearchAllFiles(ctx echo.Context) error {
	params := searchParamsFromQuery(ctx)

	results, err := c.service.FileSearch(ctx.Request().Context(), principalFromContext(ctx), params)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, results)
}

func searchParamsFromQuery(ctx echo.Context) stor.FileSearchParams {
	params := stor.FileSearchParams{
		Storage: ctx.QueryParam("storage"),
		SortBy:  ctx.QueryParam("sort"),
	}

	if strings.HasPrefix(params.SortBy, "-") {
		params.SortBy = strings.TrimPrefix(params.SortBy, "-")
		params.SortDesc = true
	}

	params.Offset, _ = strconv.Atoi(ctx.QueryParam("offset"))
	params.Limit, _ = strconv.Atoi(ctx.QueryParam("limit"))

	for key, values := range ctx.QueryParams() {
		if len(values) == 0 {
			continue
		}
		if path, ok := strings.CutPrefix(key, "storage_data."); ok {
			if params.StorageData == nil {
				params.StorageData = map[string]string{}
			}
			params.StorageData[path] = values[0]
		}
		if path, ok := strings.CutPrefix(key, "plugin_data."); ok {
			if params.PluginData == nil {
				params.PluginData = map[string]string{}
			}
			params.PluginData[path] = values[0]
		}
	}

	return params
}

func (c *FileController) ScanStorage(ctx echo.Context) error {
	result, err := c.service.FileScan(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("storage"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

type registerFileRequest struct {
	Storage  string `json:"storage"`
	Location string `json:"location"`
	Name     string `json:"name"`
}

func (c *FileController) RegisterFile(ctx echo.Context) error {
	req, err := bindStrict[registerFileRequest](ctx)
	if err != nil {
		return err
	}

	result, err := c.service.FileRegister(ctx.Request().Context(), principalFromContext(ctx), req.Storage, req.Location, req.Name)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusCreated, result)
}

type transferOwnershipRequest struct {
	OwnerType string `json:"owner_type"`
	OwnerID   string `json:"owner_id"`
	Force     bool   `json:"force"`
}

func (c *FileController) TransferOwnership(ctx echo.Context) error {
	req, err := bindStrict[transferOwnershipRequest](ctx)
	if err != nil {
		return err
	}

	result, err := c.service.TransferOwnership(ctx.Request().Context(), principalFromContext(ctx),
		ctx.Param("id"), req.OwnerType, req.OwnerID, req.Force)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *FileController) PinFile(ctx echo.Context) error {
	result, err := c.service.FilePin(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *FileController) UnpinFile(ctx echo.Context) error {
	result, err := c.service.FileUnpin(ctx.Request().Context(), principalFromContext(ctx), ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(http.StatusOK, result)
}
