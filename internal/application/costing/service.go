// Package costing holds the application services for cost centers, cost
// items and cost postings of the ambient tenant.
package costing

import (
	"context"
	"errors"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
)

func toDomainFilter(f ListFilter) shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search
	return filter
}

func referenceError(err error, message string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("NOT_FOUND", message)
	}
	return err
}

// CostCenterService handles cost center operations
type CostCenterService struct {
	centers  costing.CostCenterRepository
	vehicles fleet.VehicleRepository
	drivers  fleet.DriverRepository
}

// NewCostCenterService creates a new CostCenterService
func NewCostCenterService(centers costing.CostCenterRepository, vehicles fleet.VehicleRepository, drivers fleet.DriverRepository) *CostCenterService {
	return &CostCenterService{centers: centers, vehicles: vehicles, drivers: drivers}
}

// Create creates a cost center. A linked vehicle or driver must exist in the ambient tenant.
func (s *CostCenterService) Create(ctx context.Context, req CreateCostCenterRequest) (*CostCenterResponse, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}

	center, err := costing.NewCostCenter(req.Name, costing.CostCenterType(req.Type), req.VehicleID, req.DriverID, req.Description)
	if err != nil {
		return nil, err
	}
	exists, err := s.centers.ExistsByName(ctx, center.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Cost center with this name already exists")
	}
	if req.VehicleID != nil {
		if _, err := s.vehicles.FindByID(ctx, *req.VehicleID); err != nil {
			return nil, referenceError(err, "Linked vehicle not found")
		}
	}
	if req.DriverID != nil {
		if _, err := s.drivers.FindByID(ctx, *req.DriverID); err != nil {
			return nil, referenceError(err, "Linked driver not found")
		}
	}

	if err := s.centers.Save(ctx, center); err != nil {
		return nil, err
	}
	response := ToCostCenterResponse(center)
	return &response, nil
}

// Get returns one cost center
func (s *CostCenterService) Get(ctx context.Context, id uuid.UUID) (*CostCenterResponse, error) {
	center, err := s.centers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToCostCenterResponse(center)
	return &response, nil
}

// List returns a page of cost centers and the total count
func (s *CostCenterService) List(ctx context.Context, f ListFilter) ([]CostCenterResponse, int64, error) {
	filter := toDomainFilter(f)
	centers, err := s.centers.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.centers.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CostCenterResponse, len(centers))
	for i := range centers {
		responses[i] = ToCostCenterResponse(&centers[i])
	}
	return responses, total, nil
}

// Deactivate removes a center from future calculations
func (s *CostCenterService) Deactivate(ctx context.Context, id uuid.UUID) (*CostCenterResponse, error) {
	return s.update(ctx, id, (*costing.CostCenter).Deactivate)
}

// Activate returns a center to future calculations
func (s *CostCenterService) Activate(ctx context.Context, id uuid.UUID) (*CostCenterResponse, error) {
	return s.update(ctx, id, (*costing.CostCenter).Activate)
}

func (s *CostCenterService) update(ctx context.Context, id uuid.UUID, change func(*costing.CostCenter) error) (*CostCenterResponse, error) {
	center, err := s.centers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(center); err != nil {
		return nil, err
	}
	if err := s.centers.Save(ctx, center); err != nil {
		return nil, err
	}
	response := ToCostCenterResponse(center)
	return &response, nil
}

// CostItemService handles cost item operations
type CostItemService struct {
	items costing.CostItemRepository
}

// NewCostItemService creates a new CostItemService
func NewCostItemService(items costing.CostItemRepository) *CostItemService {
	return &CostItemService{items: items}
}

// Create creates a cost item
func (s *CostItemService) Create(ctx context.Context, req CreateCostItemRequest) (*CostItemResponse, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	item, err := costing.NewCostItem(req.Name, costing.CostCategory(req.Category), costing.CostUnit(req.Unit))
	if err != nil {
		return nil, err
	}
	exists, err := s.items.ExistsByName(ctx, item.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Cost item with this name already exists")
	}
	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	response := ToCostItemResponse(item)
	return &response, nil
}

// List returns a page of cost items and the total count
func (s *CostItemService) List(ctx context.Context, f ListFilter) ([]CostItemResponse, int64, error) {
	filter := toDomainFilter(f)
	items, err := s.items.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.items.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CostItemResponse, len(items))
	for i := range items {
		responses[i] = ToCostItemResponse(&items[i])
	}
	return responses, total, nil
}

// CostPostingService handles cost posting operations
type CostPostingService struct {
	postings costing.CostPostingRepository
	centers  costing.CostCenterRepository
	items    costing.CostItemRepository
}

// NewCostPostingService creates a new CostPostingService
func NewCostPostingService(postings costing.CostPostingRepository, centers costing.CostCenterRepository, items costing.CostItemRepository) *CostPostingService {
	return &CostPostingService{postings: postings, centers: centers, items: items}
}

// Create books a cost. The center and the item must exist in the ambient
// tenant; another tenant's id reads as not found.
func (s *CostPostingService) Create(ctx context.Context, req CreateCostPostingRequest) (*CostPostingResponse, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}

	period, err := valueobject.ParsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if _, err := s.centers.FindByID(ctx, req.CostCenterID); err != nil {
		return nil, referenceError(err, "Cost center not found")
	}
	if _, err := s.items.FindByID(ctx, req.CostItemID); err != nil {
		return nil, referenceError(err, "Cost item not found")
	}

	posting, err := costing.NewCostPosting(req.CostItemID, req.CostCenterID, req.Amount, period, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.postings.Save(ctx, posting); err != nil {
		return nil, err
	}
	response := ToCostPostingResponse(posting)
	return &response, nil
}

// ListForPeriod returns the postings whose window overlaps period
func (s *CostPostingService) ListForPeriod(ctx context.Context, period valueobject.Period) ([]CostPostingResponse, error) {
	postings, err := s.postings.FindOverlapping(ctx, period)
	if err != nil {
		return nil, err
	}
	responses := make([]CostPostingResponse, len(postings))
	for i := range postings {
		responses[i] = ToCostPostingResponse(&postings[i])
	}
	return responses, nil
}
