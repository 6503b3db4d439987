package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "apm-exporter/docs"
	"apm-exporter/internal/api/handler"
	"apm-exporter/pkg/router"
)

// RegisterRoutes mounts the export API and its swagger UI
func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/v1/exports", h.CreateExport)
	r.GET("/api/v1/exports", h.ListExports)
	r.GET("/api/v1/exports/{id}", h.GetExport)
	r.GET("/api/v1/exports/{id}/errors", h.GetExportErrors)
	r.GET("/api/v1/exports/{id}/logs", h.GetExportLogs)
	r.GET("/api/v1/exports/{id}/stream", h.StreamExport)
	r.GET("/api/v1/download/{id}/{file}", h.DownloadFile)
	r.GET("/api/v1/settings", h.GetSettings)

	r.Prefix("/swagger/", httpSwagger.WrapHandler)
}
