package fleet

import (
	"strings"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a transport order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusInvoiced   OrderStatus = "INVOICED"
)

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusInvoiced:
		return true
	}
	return false
}

// TransportOrder is a revenue-generating job
type TransportOrder struct {
	shared.TenantAggregateRoot
	Reference         string
	CustomerName      string
	Date              time.Time
	Origin            string
	Destination       string
	DistanceKm        decimal.Decimal
	AgreedPrice       decimal.Decimal
	AssignedVehicleID *uuid.UUID
	AssignedDriverID  *uuid.UUID
	DurationHours     decimal.Decimal
	TollsCost         decimal.Decimal
	FerryCost         decimal.Decimal
	Status            OrderStatus
}

// NewTransportOrderInput carries the fields of a new order
type NewTransportOrderInput struct {
	Reference         string
	CustomerName      string
	Date              time.Time
	Origin            string
	Destination       string
	DistanceKm        decimal.Decimal
	AgreedPrice       decimal.Decimal
	AssignedVehicleID *uuid.UUID
	AssignedDriverID  *uuid.UUID
	DurationHours     decimal.Decimal
	TollsCost         decimal.Decimal
	FerryCost         decimal.Decimal
	Status            OrderStatus
}

// NewTransportOrder creates an order; distances and money must not be negative
func NewTransportOrder(in NewTransportOrderInput) (*TransportOrder, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	if in.Reference == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order reference cannot be empty")
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer name cannot be empty")
	}
	if in.Date.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order date is required")
	}
	for _, v := range []decimal.Decimal{in.DistanceKm, in.AgreedPrice, in.DurationHours, in.TollsCost, in.FerryCost} {
		if v.IsNegative() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Order quantities cannot be negative")
		}
	}
	if in.Status == "" {
		in.Status = OrderStatusPending
	}
	if !in.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid order status")
	}

	return &TransportOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.Nil),
		Reference:           in.Reference,
		CustomerName:        strings.TrimSpace(in.CustomerName),
		Date:                valueobject.DateOf(in.Date),
		Origin:              in.Origin,
		Destination:         in.Destination,
		DistanceKm:          in.DistanceKm,
		AgreedPrice:         in.AgreedPrice,
		AssignedVehicleID:   in.AssignedVehicleID,
		AssignedDriverID:    in.AssignedDriverID,
		DurationHours:       in.DurationHours,
		TollsCost:           in.TollsCost,
		FerryCost:           in.FerryCost,
		Status:              in.Status,
	}, nil
}

// Revenue is the agreed price of the order
func (o *TransportOrder) Revenue() decimal.Decimal {
	return o.AgreedPrice
}
