package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"docharvest-backend/internal/clients"
	"docharvest-backend/internal/extract"
	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/pagination"
	"docharvest-backend/internal/shared/server/respond"
)

// multipartOverhead leaves room for form boundaries and the clientId field.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.POST("/documents/scrape", h.scrape)
	rg.GET("/documents/capabilities", h.capabilities)
	rg.GET("/documents/check-url", h.checkURL)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/clients/:id/documents", h.listByClient)
}

func (h *Handler) maxUpload() int64 {
	if h.Svc != nil && h.Svc.MaxUploadBytes > 0 {
		return h.Svc.MaxUploadBytes
	}
	return extract.DefaultMaxBytes
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.maxUpload()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Failure(c, apperr.Validationf(CodeFileTooLarge, "file exceeds the %d byte limit", limit))
			return
		}
		respond.Failure(c, apperr.Validation(CodeMissingFile, "file is required"))
		return
	}

	clientID, err := parseClientID(c.PostForm("clientId"))
	if err != nil {
		respond.Failure(c, err)
		return
	}
	c.Set("clientId", strconv.FormatInt(clientID, 10))

	file, err := fileHeader.Open()
	if err != nil {
		respond.Failure(c, apperr.Validation(CodeMissingFile, "unable to read file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respond.Failure(c, apperr.Validation(CodeMissingFile, "unable to read file"))
		return
	}

	meta := FileMeta{
		Filename: fileHeader.Filename,
		MimeType: declaredOrSniffed(fileHeader.Header.Get("Content-Type"), data),
	}
	doc, err := h.Svc.ProcessBinaryDocument(c.Request.Context(), data, meta, clientID)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	c.Set("documentId", strconv.FormatInt(doc.ID, 10))
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

type scrapeRequest struct {
	URL      string `json:"url" binding:"max=2048"`
	ClientID int64  `json:"clientId"`
}

func (h *Handler) scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Failure(c, apperr.Validation("invalid_request", "invalid request body", err.Error()))
		return
	}
	if req.ClientID > 0 {
		c.Set("clientId", strconv.FormatInt(req.ClientID, 10))
	}

	doc, err := h.Svc.ProcessRemotePage(c.Request.Context(), req.URL, req.ClientID)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	c.Set("documentId", strconv.FormatInt(doc.ID, 10))
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) capabilities(c *gin.Context) {
	caps := h.Svc.Capabilities()
	respond.OK(c, gin.H{
		"binaryDocument": caps.BinaryDocument,
		"remotePage":     caps.RemotePage,
		"maxUploadBytes": h.maxUpload(),
		"acceptedTypes":  []string{extract.MimePDF},
	})
}

func (h *Handler) checkURL(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		respond.Failure(c, apperr.Validation(CodeMissingURL, "url query parameter is required"))
		return
	}
	respond.OK(c, gin.H{
		"url":        raw,
		"accessible": h.Svc.CheckURL(c.Request.Context(), raw),
	})
}

func (h *Handler) list(c *gin.Context) {
	page, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		respond.Failure(c, err)
		return
	}
	docs, total, err := h.Svc.List(c.Request.Context(), page)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Page(c, toSummaries(docs), page, total)
}

func (h *Handler) listByClient(c *gin.Context) {
	clientID, ok := clients.PathID(c)
	if !ok {
		return
	}
	page, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		respond.Failure(c, err)
		return
	}
	docs, total, err := h.Svc.ListByClient(c.Request.Context(), clientID, page)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Page(c, toSummaries(docs), page, total)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		respond.Failure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func documentID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respond.Failure(c, apperr.Validationf(CodeInvalidDocumentID, "invalid document id %q", raw))
		return 0, false
	}
	c.Set("documentId", raw)
	return id, true
}

func parseClientID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.Validation(CodeInvalidClientID, "clientId is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf(CodeInvalidClientID, "invalid clientId %q", raw)
	}
	return id, nil
}

// declaredOrSniffed trusts a specific declared media type and sniffs the
// bytes when the client sent nothing or a generic one.
func declaredOrSniffed(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.HasPrefix(strings.ToLower(declared), "application/octet-stream") {
		return declared
	}
	return mimetype.Detect(data).String()
}
