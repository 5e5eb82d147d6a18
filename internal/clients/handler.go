package clients

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/pagination"
	"docharvest-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches client routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/clients", h.create)
	rg.GET("/clients", h.list)
	rg.GET("/clients/:id", h.get)
	rg.PUT("/clients/:id", h.update)
	rg.DELETE("/clients/:id", h.delete)
}

type clientRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Email string `json:"email" binding:"required,email,max=255"`
}

func (h *Handler) create(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Failure(c, apperr.Validation(CodeInvalidClient, "invalid request body", err.Error()))
		return
	}
	client, err := h.Svc.Create(c.Request.Context(), Input{Name: req.Name, Email: req.Email})
	if err != nil {
		respond.Failure(c, err)
		return
	}
	c.Set("clientId", strconv.FormatInt(client.ID, 10))
	respond.JSON(c, http.StatusCreated, client)
}

func (h *Handler) list(c *gin.Context) {
	page, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		respond.Failure(c, err)
		return
	}
	items, total, err := h.Svc.List(c.Request.Context(), page)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Page(c, items, page, total)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := PathID(c)
	if !ok {
		return
	}
	client, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.OK(c, client)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := PathID(c)
	if !ok {
		return
	}
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Failure(c, apperr.Validation(CodeInvalidClient, "invalid request body", err.Error()))
		return
	}
	client, err := h.Svc.Update(c.Request.Context(), id, Input{Name: req.Name, Email: req.Email})
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.OK(c, client)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := PathID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		respond.Failure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PathID parses the :id path parameter as a client id and records it for
// request logging. It writes a 400 and returns false when malformed.
func PathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respond.Failure(c, apperr.Validationf(CodeInvalidClient, "invalid client id %q", raw))
		return 0, false
	}
	c.Set("clientId", raw)
	return id, true
}
