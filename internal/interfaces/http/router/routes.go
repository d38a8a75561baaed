package router

import (
	"github.com/fleetcost/backend/internal/interfaces/http/handler"
	"github.com/fleetcost/backend/internal/interfaces/http/middleware"
)

// SystemRoutes are the unauthenticated probes under /system
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/health", h.Health).
		GET("/ping", h.Ping).
		GET("/info", h.GetSystemInfo)
}

// FleetRoutes serve vehicles, drivers and transport orders
func FleetRoutes(h *handler.FleetHandler) *DomainGroup {
	fleet := NewDomainGroup("fleet", "/fleet")
	fleet.Group("vehicles", "/vehicles").
		POST("", h.CreateVehicle).
		GET("", h.ListVehicles).
		GET("/:id", h.GetVehicle)
	fleet.Group("drivers", "/drivers").
		POST("", h.CreateDriver).
		GET("", h.ListDrivers)
	fleet.Group("orders", "/orders").
		POST("", h.CreateOrder).
		GET("", h.ListOrders)
	return fleet
}

// CostingRoutes serve cost centers, items and postings
func CostingRoutes(h *handler.CostingHandler) *DomainGroup {
	costing := NewDomainGroup("costing", "/costing")
	costing.Group("centers", "/centers").
		POST("", h.CreateCenter).
		GET("", h.ListCenters).
		GET("/:id", h.GetCenter).
		POST("/:id/deactivate", h.DeactivateCenter).
		POST("/:id/activate", h.ActivateCenter)
	costing.Group("items", "/items").
		POST("", h.CreateItem).
		GET("", h.ListItems)
	costing.Group("postings", "/postings").
		POST("", h.CreatePosting).
		GET("", h.ListPostings)
	return costing
}

// CostEngineRoutes serve runs, history and export to staff and superusers.
// GET on /run is kept for clients that trigger runs from a link.
func CostEngineRoutes(h *handler.CostEngineHandler) *DomainGroup {
	return NewDomainGroup("cost-engine", "/cost-engine").
		Use(middleware.RequirePrivileged()).
		POST("/run", h.Run).
		GET("/run", h.Run).
		GET("/history", h.History).
		GET("/history/export", h.Export)
}

// KPIRoutes serve the dashboard reads to staff and superusers
func KPIRoutes(h *handler.KPIHandler) *DomainGroup {
	return NewDomainGroup("kpis", "/kpis").
		Use(middleware.RequirePrivileged()).
		GET("/summary", h.Summary).
		GET("/cost-structure", h.CostStructure).
		GET("/trend", h.Trend)
}
