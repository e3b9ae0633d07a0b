package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Customers    *CustomerHandler
	Appointments *AppointmentHandler
	Series       *SeriesHandler
}

// RegisterRoutes mounts every customer-scoped route on group.
func RegisterRoutes(group *gin.RouterGroup, h Handlers) {
	customers := group.Group("/customers")
	customers.GET("", h.Customers.List)
	customers.POST("", h.Customers.Create)
	customers.GET("/:customerID", h.Customers.Get)
	customers.PUT("/:customerID", h.Customers.Update)
	customers.PATCH("/:customerID", h.Customers.Update)
	customers.DELETE("/:customerID", h.Customers.Delete)
	customers.POST("/:customerID/restore", h.Customers.Restore)
	customers.DELETE("/:customerID/force-delete", h.Customers.ForceDelete)

	appointments := customers.Group("/:customerID/appointments")
	appointments.GET("", h.Appointments.List)
	appointments.POST("", h.Appointments.Create)
	// registered before /:appointmentID so the static segment wins
	appointments.GET("/export", h.Appointments.Export)
	appointments.GET("/:appointmentID", h.Appointments.Get)
	appointments.PUT("/:appointmentID", h.Appointments.Update)
	appointments.PATCH("/:appointmentID", h.Appointments.Update)
	appointments.DELETE("/:appointmentID", h.Appointments.Delete)

	series := customers.Group("/:customerID/series")
	series.GET("", h.Series.List)
	series.POST("", h.Series.Create)
	series.GET("/:seriesID", h.Series.Get)
	series.PUT("/:seriesID", h.Series.Update)
	series.PATCH("/:seriesID", h.Series.Update)
	series.DELETE("/:seriesID", h.Series.Deactivate)
}

// RegisterSystemRoutes mounts probes and the metrics endpoint at the root.
func RegisterSystemRoutes(r gin.IRoutes, h *SystemHandler, metricsEnabled bool) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	if metricsEnabled {
		r.GET("/metrics", h.Prometheus)
	}
}
