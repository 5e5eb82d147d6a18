package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docharvest-backend/internal/shared/pagination"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Paginated is the envelope of every listing endpoint.
type Paginated struct {
	Data       interface{}     `json:"data"`
	Pagination pagination.Info `json:"pagination"`
}

// Page writes a 200 listing envelope.
func Page(c *gin.Context, data interface{}, page pagination.Page, total int) {
	OK(c, Paginated{Data: data, Pagination: page.Describe(total)})
}
