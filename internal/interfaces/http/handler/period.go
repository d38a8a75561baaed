package handler

import (
	"strings"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parsePeriod reads ?month=YYYY-MM or ?period_start=&period_end=. month wins
// when both are given.
func parsePeriod(c *gin.Context) (valueobject.Period, error) {
	if month := c.Query("month"); month != "" {
		return valueobject.ParseMonth(month)
	}
	start, end := c.Query("period_start"), c.Query("period_end")
	if start == "" || end == "" {
		return valueobject.Period{}, shared.NewDomainError(dto.ErrCodeValidationRequired,
			"period_start and period_end are required (YYYY-MM-DD), or month (YYYY-MM)")
	}
	return valueobject.ParsePeriod(start, end)
}

// parseKPIPeriod is parsePeriod for the dashboard reads: with no period
// parameters at all it falls back to the previous full calendar month.
func parseKPIPeriod(c *gin.Context, now time.Time) (valueobject.Period, error) {
	if c.Query("month") == "" && c.Query("period_start") == "" && c.Query("period_end") == "" {
		return valueobject.PreviousMonth(now), nil
	}
	return parsePeriod(c)
}

// parseFlag reads a 0/1 query flag; true and false are accepted too
func parseFlag(c *gin.Context, name string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.Query(name))) {
	case "":
		return def, nil
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, shared.NewDomainError(dto.ErrCodeValidationFormat, name+" must be 0 or 1")
	}
}

// parseBasisUnit reads ?basis_unit=; empty leaves the choice to the service
func parseBasisUnit(c *gin.Context) (costing.BasisUnit, error) {
	raw := c.Query("basis_unit")
	if raw == "" {
		return "", nil
	}
	return costing.ParseBasisUnit(raw)
}

// parseOptionalUUID reads an optional UUID query parameter
func parseOptionalUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewDomainError(dto.ErrCodeValidationFormat, name+" must be a UUID")
	}
	return &id, nil
}

// parseIDParam reads a UUID path parameter
func parseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, shared.NewDomainError(dto.ErrCodeValidationFormat, name+" must be a UUID")
	}
	return id, nil
}
