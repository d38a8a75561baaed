package middleware

import (
	"net/http"
	"testing"

	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/fleetcost/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createCenterBody struct {
	Name string `json:"name" binding:"required,min=2"`
	Type string `json:"type" binding:"required,oneof=VEHICLE OVERHEAD DRIVER OTHER"`
}

func validationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	SetupValidator()
	r := gin.New()
	r.Use(RequestID())
	r.POST("/centers", func(c *gin.Context) {
		var body createCenterBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})
	return r
}

func TestHandleValidationError_FieldDetails(t *testing.T) {
	w := testutil.PerformRequest(t, validationRouter(), http.MethodPost, "/centers", map[string]string{"type": "BOAT"}, nil)

	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	resp := testutil.DecodeJSONAs[dto.Response](t, w)
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.RequestID)

	byField := map[string]string{}
	for _, d := range resp.Error.Details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", byField["name"])
	assert.Equal(t, "Must be one of: VEHICLE OVERHEAD DRIVER OTHER", byField["type"])
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	w := testutil.PerformRequest(t, validationRouter(), http.MethodPost, "/centers", "not an object", nil)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeInvalidJSON)
}

func TestHandleValidationError_Valid(t *testing.T) {
	w := testutil.PerformRequest(t, validationRouter(), http.MethodPost, "/centers",
		map[string]string{"name": "Truck 7", "type": "VEHICLE"}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}
