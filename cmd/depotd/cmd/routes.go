package cmd

import (
	"github.com/labstack/echo/v4"
	"github.com/materials-commons/depot/pkg/actions"
	"github.com/materials-commons/depot/pkg/depotapi/webapi"
)

type RouteOpts struct {
	service  *actions.Service
	adminKey string
}

func setupRoutes(e *echo.Echo, opts RouteOpts) {
	g := e.Group("/api")
	g.Use(webapi.PrincipalAuth(webapi.PrincipalConfig{AdminKey: opts.adminKey}))

	fileController := webapi.NewFileController(opts.service)
	g.POST("/files", fileController.CreateFile)
	g.GET("/files", fileController.SearchFiles)
	g.GET("/files/all", fileController.SearchAllFiles)
	g.GET("/files/:id", fileController.ShowFile)
	g.GET("/files/:id/content", fileController.ShowFileContent)
	g.PATCH("/files/:id/name", fileController.RenameFile)
	g.PUT("/files/:id/storage", fileController.MoveFile)
	g.PUT("/files/:id/touch", fileController.TouchFile)
	g.DELETE("/files/:id", fileController.DeleteFile)
	g.POST("/files/register", fileController.RegisterFile)
	g.GET("/storages/:storage/scan", fileController.ScanStorage)
	g.PUT("/files/:id/owner", fileController.TransferOwnership)
	g.PUT("/files/:id/pin", fileController.PinFile)
	g.DELETE("/files/:id/pin", fileController.UnpinFile)

	uploadController := webapi.NewUploadController(opts.service)
	g.POST("/uploads", uploadController.InitializeUpload)
	g.GET("/uploads/:id", uploadController.ShowUpload)
	g.PATCH("/uploads/:id", uploadController.SendUploadBytes)
	g.POST("/uploads/:id/complete", uploadController.CompleteUpload)
}
