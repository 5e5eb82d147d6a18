package documents

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"docharvest-backend/internal/clients"
	"docharvest-backend/internal/extract"
	"docharvest-backend/internal/scrape"
	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/metrics"
	"docharvest-backend/internal/shared/pagination"
	"docharvest-backend/internal/shared/sanitize"
	"docharvest-backend/internal/shared/telemetry"
)

// Failure codes raised by the orchestrator itself.
const (
	CodeInvalidClientID      = "invalid_client_id"
	CodeMissingFile          = "missing_file"
	CodeUnsupportedMediaType = "unsupported_media_type"
	CodeFileTooLarge         = extract.CodeFileTooLarge
	CodeMissingURL           = "missing_url"
	CodeClientNotFound       = clients.CodeClientNotFound
	CodeDocumentNotFound     = "document_not_found"
	CodeInvalidDocumentID    = "invalid_document_id"
	CodeBusinessRule         = "business_rule_violation"
	CodePersistenceFailed    = "persistence_failed"
)

// PDFExtractor turns PDF bytes into text and keeps the original.
type PDFExtractor interface {
	Extract(ctx context.Context, data []byte, originalFilename string) (extract.Result, error)
	Remove(ctx context.Context, storedPath string) error
}

// PageScraper fetches one public web page.
type PageScraper interface {
	Scrape(ctx context.Context, rawURL string) (scrape.Result, error)
	ValidateURL(ctx context.Context, rawURL string) bool
}

// ClientLookup resolves document owners.
type ClientLookup interface {
	Get(ctx context.Context, id int64) (clients.Client, error)
}

// FileMeta describes an uploaded file.
type FileMeta struct {
	Filename string
	MimeType string
}

// Capabilities reports which extractors are wired.
type Capabilities struct {
	BinaryDocument bool `json:"binaryDocument"`
	RemotePage     bool `json:"remotePage"`
}

// Service orchestrates extraction, business rules and persistence.
type Service struct {
	Repo    Repo
	Clients ClientLookup
	PDF     PDFExtractor
	Scraper PageScraper

	// MaxUploadBytes caps binary input before the extractor sees it.
	MaxUploadBytes int64

	now func() time.Time
}

// NewService constructs a Service. pdf and scraper may be nil when the
// corresponding extractor is disabled.
func NewService(repo Repo, lookup ClientLookup, pdf PDFExtractor, scraper PageScraper) *Service {
	return &Service{
		Repo:           repo,
		Clients:        lookup,
		PDF:            pdf,
		Scraper:        scraper,
		MaxUploadBytes: extract.DefaultMaxBytes,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Capabilities() Capabilities {
	if s == nil {
		return Capabilities{}
	}
	return Capabilities{BinaryDocument: s.PDF != nil, RemotePage: s.Scraper != nil}
}

// ProcessBinaryDocument extracts an uploaded PDF and stores the result for clientID.
func (s *Service) ProcessBinaryDocument(ctx context.Context, data []byte, meta FileMeta, clientID int64) (doc Document, err error) {
	start := time.Now()
	defer func() { s.observe(SourceBinaryDocument, start, err) }()

	if s == nil || s.PDF == nil {
		return Document{}, apperr.Processing(apperr.CodeServiceUnavailable, "binary document extraction is not available", nil)
	}
	if err := s.checkBinaryInput(data, meta, clientID); err != nil {
		return Document{}, err
	}
	if err := s.requireClient(ctx, clientID); err != nil {
		return Document{}, err
	}

	result, err := s.PDF.Extract(ctx, data, meta.Filename)
	if err != nil {
		return Document{}, apperr.Wrap("extract pdf", err)
	}
	metrics.ObservePDFPages(result.PageCount)

	doc, err = s.store(ctx, NewDocument{
		ClientID:    clientID,
		Title:       result.Title,
		Content:     result.Content,
		Source:      BinarySource{Path: result.StoredPath},
		ProcessedAt: s.clock(),
	})
	if err != nil {
		s.discard(ctx, result.StoredPath)
		return Document{}, err
	}

	telemetry.Info("document.processed", map[string]any{
		"document_id":   doc.ID,
		"client_id":     clientID,
		"document_type": string(SourceBinaryDocument),
		"pages":         result.PageCount,
		"content_chars": sanitize.Length(doc.Content),
	})
	return doc, nil
}

// ProcessRemotePage scrapes rawURL and stores the result for clientID.
func (s *Service) ProcessRemotePage(ctx context.Context, rawURL string, clientID int64) (doc Document, err error) {
	start := time.Now()
	defer func() { s.observe(SourceRemotePage, start, err) }()

	if s == nil || s.Scraper == nil {
		return Document{}, apperr.Processing(apperr.CodeServiceUnavailable, "remote page extraction is not available", nil)
	}
	if clientID <= 0 {
		return Document{}, apperr.Validation(CodeInvalidClientID, "client id must be a positive integer")
	}
	if strings.TrimSpace(rawURL) == "" {
		return Document{}, apperr.Validation(CodeMissingURL, "url is required")
	}
	if _, err := scrape.ValidateFormat(rawURL); err != nil {
		return Document{}, err
	}
	if err := s.requireClient(ctx, clientID); err != nil {
		return Document{}, err
	}

	result, err := s.Scraper.Scrape(ctx, rawURL)
	if err != nil {
		return Document{}, apperr.Wrap("scrape page", err)
	}

	doc, err = s.store(ctx, NewDocument{
		ClientID:    clientID,
		Title:       result.Title,
		Content:     result.Content,
		Source:      RemoteSource{URL: result.URL},
		ProcessedAt: s.clock(),
	})
	if err != nil {
		return Document{}, err
	}

	telemetry.Info("document.processed", map[string]any{
		"document_id":   doc.ID,
		"client_id":     clientID,
		"document_type": string(SourceRemotePage),
		"status_code":   result.StatusCode,
		"final_url":     result.FinalURL,
		"content_chars": sanitize.Length(doc.Content),
	})
	return doc, nil
}

// CheckURL reports whether rawURL looks scrapeable. It is false when no
// scraper is wired.
func (s *Service) CheckURL(ctx context.Context, rawURL string) bool {
	if s == nil || s.Scraper == nil {
		return false
	}
	return s.Scraper.ValidateURL(ctx, rawURL)
}

func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	if err := s.ready(); err != nil {
		return Document{}, err
	}
	if id <= 0 {
		return Document{}, apperr.Validation(CodeInvalidDocumentID, "document id must be a positive integer")
	}
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, translateLookup("get document", err)
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, page pagination.Page) ([]Document, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	docs, total, err := s.Repo.List(ctx, page)
	if err != nil {
		return nil, 0, apperr.Wrap("list documents", err)
	}
	return docs, total, nil
}

// ListByClient lists one client's documents. Unknown clients are NotFound.
func (s *Service) ListByClient(ctx context.Context, clientID int64, page pagination.Page) ([]Document, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	if clientID <= 0 {
		return nil, 0, apperr.Validation(CodeInvalidClientID, "client id must be a positive integer")
	}
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, 0, err
	}
	docs, total, err := s.Repo.ListByClient(ctx, clientID, page)
	if err != nil {
		return nil, 0, apperr.Wrap("list client documents", err)
	}
	return docs, total, nil
}

// Delete removes the record, then best-effort removes a stored original.
func (s *Service) Delete(ctx context.Context, id int64) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return translateLookup("delete document", err)
	}
	if path := doc.Source.FilePath(); path != "" {
		s.discard(ctx, path)
	}
	return nil
}

func (s *Service) checkBinaryInput(data []byte, meta FileMeta, clientID int64) error {
	if clientID <= 0 {
		return apperr.Validation(CodeInvalidClientID, "client id must be a positive integer")
	}
	if len(data) == 0 {
		return apperr.Validation(CodeMissingFile, "file is required")
	}
	mediaType, _, err := mime.ParseMediaType(meta.MimeType)
	if err != nil || !strings.EqualFold(mediaType, extract.MimePDF) {
		return apperr.Validationf(CodeUnsupportedMediaType, "unsupported file type %q: only %s is accepted", meta.MimeType, extract.MimePDF)
	}
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = extract.DefaultMaxBytes
	}
	if int64(len(data)) > limit {
		return apperr.Validationf(CodeFileTooLarge, "file exceeds the %d byte limit", limit)
	}
	return nil
}

func (s *Service) requireClient(ctx context.Context, clientID int64) error {
	if s.Clients == nil {
		return apperr.Processing(apperr.CodeServiceUnavailable, "client lookup is not available", nil)
	}
	if _, err := s.Clients.Get(ctx, clientID); err != nil {
		if errors.Is(err, clients.ErrNotFound) || apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound(CodeClientNotFound, fmt.Sprintf("client %d not found", clientID))
		}
		return apperr.Wrap("lookup client", err)
	}
	return nil
}

// store finalizes the title, applies business rules and persists.
func (s *Service) store(ctx context.Context, doc NewDocument) (Document, error) {
	if s.Repo == nil {
		return Document{}, apperr.Processing(apperr.CodeServiceUnavailable, "document storage is not available", nil)
	}
	doc.Title = sanitize.Text(doc.Title)
	if doc.Title == "" {
		doc.Title = sanitize.DeriveTitle(doc.Content, sanitize.DefaultTitleLength)
	}

	if violations := ValidateRules(doc); len(violations) > 0 {
		return Document{}, apperr.Validation(CodeBusinessRule, "document violates business rules", violations...)
	}

	saved, err := s.Repo.Create(ctx, doc)
	if err != nil {
		if errors.Is(err, ErrClientMissing) {
			return Document{}, apperr.NotFound(CodeClientNotFound, fmt.Sprintf("client %d not found", doc.ClientID))
		}
		if typed, ok := apperr.As(err); ok {
			return Document{}, typed
		}
		return Document{}, apperr.Processing(CodePersistenceFailed, "failed to save document", err)
	}
	return saved, nil
}

func (s *Service) discard(ctx context.Context, storedPath string) {
	if s.PDF == nil || storedPath == "" {
		return
	}
	if err := s.PDF.Remove(context.WithoutCancel(ctx), storedPath); err != nil {
		telemetry.Error("document.cleanup_failed", map[string]any{
			"path":  storedPath,
			"error": err.Error(),
		})
	}
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return apperr.Processing(apperr.CodeServiceUnavailable, "documents service not configured", nil)
	}
	return nil
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

func (s *Service) observe(source SourceType, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		switch {
		case apperr.IsKind(err, apperr.KindValidation):
			outcome = metrics.OutcomeValidation
		case apperr.IsKind(err, apperr.KindNotFound):
			outcome = metrics.OutcomeNotFound
		default:
			outcome = metrics.OutcomeFailed
		}
	}
	metrics.ObserveExtraction(string(source), outcome, time.Since(start))
}

func translateLookup(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(CodeDocumentNotFound, "document not found")
	}
	return apperr.Wrap(op, err)
}
