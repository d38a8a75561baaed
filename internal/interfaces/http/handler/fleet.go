package handler

import (
	fleetapp "github.com/fleetcost/backend/internal/application/fleet"
	"github.com/gin-gonic/gin"
)

// FleetHandler serves vehicles, drivers and transport orders
type FleetHandler struct {
	BaseHandler
	vehicles *fleetapp.VehicleService
	drivers  *fleetapp.DriverService
	orders   *fleetapp.TransportOrderService
}

// NewFleetHandler creates a new FleetHandler
func NewFleetHandler(vehicles *fleetapp.VehicleService, drivers *fleetapp.DriverService, orders *fleetapp.TransportOrderService) *FleetHandler {
	return &FleetHandler{vehicles: vehicles, drivers: drivers, orders: orders}
}

// CreateVehicle registers a vehicle together with its VEHICLE cost center
func (h *FleetHandler) CreateVehicle(c *gin.Context) {
	var req fleetapp.CreateVehicleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	vehicle, err := h.vehicles.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, vehicle)
}

// GetVehicle returns one vehicle
func (h *FleetHandler) GetVehicle(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	vehicle, err := h.vehicles.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, vehicle)
}

// ListVehicles lists vehicles a page at a time
func (h *FleetHandler) ListVehicles(c *gin.Context) {
	var filter fleetapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	vehicles, total, err := h.vehicles.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, vehicles, total, filter.Page, filter.PageSize)
}

// CreateDriver registers a driver
func (h *FleetHandler) CreateDriver(c *gin.Context) {
	var req fleetapp.CreateDriverRequest
	if !h.bindJSON(c, &req) {
		return
	}
	driver, err := h.drivers.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, driver)
}

// ListDrivers lists drivers a page at a time
func (h *FleetHandler) ListDrivers(c *gin.Context) {
	var filter fleetapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	drivers, total, err := h.drivers.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, drivers, total, filter.Page, filter.PageSize)
}

// CreateOrder records a transport order
func (h *FleetHandler) CreateOrder(c *gin.Context) {
	var req fleetapp.CreateTransportOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// ListOrders lists the orders dated inside a period
func (h *FleetHandler) ListOrders(c *gin.Context) {
	period, err := parsePeriod(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orders, err := h.orders.ListForPeriod(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}
