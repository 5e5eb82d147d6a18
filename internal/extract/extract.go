package extract

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/sanitize"
	"docharvest-backend/internal/shared/storage/object"
	"docharvest-backend/internal/shared/telemetry"
)

const (
	MimePDF = "application/pdf"

	DefaultMaxBytes  = 10 << 20
	MaxContentLength = 1_000_000
	MaxTitleLength   = 500

	storagePrefix = "pdfs"
)

// Failure codes reported by Extract.
const (
	CodeEmptyFile         = "empty_file"
	CodeFileTooLarge      = "file_too_large"
	CodeCorrupted         = "corrupted_document"
	CodeProtected         = "protected_document"
	CodeNoExtractableText = "no_extractable_text"
	CodeStorageFailed     = "storage_failed"
)

var pdfMagic = []byte("%PDF-")

var (
	errProtected = errors.New("pdf is password protected or encrypted")
	errCorrupted = errors.New("pdf structure is malformed")
)

// Result is the outcome of a successful PDF extraction.
type Result struct {
	Title      string
	Content    string
	StoredPath string
	PageCount  int
}

// Option customizes a PDFExtractor.
type Option func(*PDFExtractor)

// WithMaxBytes overrides the 10MB input ceiling.
func WithMaxBytes(n int64) Option {
	return func(e *PDFExtractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// WithClock overrides the clock used for storage names.
func WithClock(now func() time.Time) Option {
	return func(e *PDFExtractor) {
		if now != nil {
			e.now = now
		}
	}
}

// PDFExtractor turns an uploaded PDF into text and keeps the original bytes.
type PDFExtractor struct {
	store    object.ObjectStore
	maxBytes int64
	now      func() time.Time
}

// NewPDFExtractor builds an extractor that persists originals to store.
func NewPDFExtractor(store object.ObjectStore, opts ...Option) *PDFExtractor {
	e := &PDFExtractor{
		store:    store,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxBytes reports the configured input ceiling.
func (e *PDFExtractor) MaxBytes() int64 { return e.maxBytes }

// Extract parses data, resolves a title, bounds the content and stores the
// original bytes. Failures are *apperr.Error values.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte, originalFilename string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := e.checkSize(data); err != nil {
		return Result{}, err
	}

	parsed, err := parsePDF(data)
	if err != nil {
		if errors.Is(err, errProtected) {
			return Result{}, apperr.Validation(CodeProtected, "PDF is password protected or encrypted")
		}
		telemetry.Warn("extract.pdf.parse_failed", map[string]any{
			"file_name": originalFilename,
			"size":      len(data),
			"err":       err.Error(),
		})
		return Result{}, apperr.Validation(CodeCorrupted, "PDF file is corrupted or unreadable")
	}

	content := sanitize.Truncate(sanitize.Text(parsed.text), MaxContentLength)
	if content == "" {
		return Result{}, apperr.Processing(CodeNoExtractableText, "no text content could be extracted from the PDF", nil)
	}
	title := resolveTitle(parsed.title, content, originalFilename)

	storedPath, err := e.persist(ctx, data, originalFilename)
	if err != nil {
		return Result{}, apperr.Processing(CodeStorageFailed, "failed to store PDF file", err)
	}

	return Result{
		Title:      title,
		Content:    content,
		StoredPath: storedPath,
		PageCount:  parsed.pages,
	}, nil
}

// Validate reports whether data looks like a PDF that yields text or
// metadata. It never returns an error.
func (e *PDFExtractor) Validate(data []byte) bool {
	if e.checkSize(data) != nil || !bytes.HasPrefix(data, pdfMagic) {
		return false
	}
	parsed, err := parsePDF(data)
	if err != nil {
		return false
	}
	return strings.TrimSpace(parsed.text) != "" || strings.TrimSpace(parsed.title) != ""
}

// Remove deletes a previously stored original. Used for best-effort cleanup.
func (e *PDFExtractor) Remove(ctx context.Context, storedPath string) error {
	if e.store == nil || strings.TrimSpace(storedPath) == "" {
		return nil
	}
	return e.store.Delete(ctx, storedPath)
}

func (e *PDFExtractor) checkSize(data []byte) error {
	if len(data) == 0 {
		return apperr.Validation(CodeEmptyFile, "PDF file is empty")
	}
	if int64(len(data)) > e.maxBytes {
		return apperr.Validationf(CodeFileTooLarge, "PDF file exceeds the %d MB limit", e.maxBytes>>20)
	}
	return nil
}

func (e *PDFExtractor) persist(ctx context.Context, data []byte, originalFilename string) (string, error) {
	if e.store == nil {
		return "", errors.New("object store not configured")
	}
	key := storageKey(e.now(), originalFilename)
	if _, err := e.store.Put(ctx, key, MimePDF, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func storageKey(now time.Time, originalFilename string) string {
	return fmt.Sprintf("%s/%d_%s_%s.pdf",
		storagePrefix,
		now.UnixMilli(),
		randomSuffix(),
		sanitize.FileStem(originalFilename, 100),
	)
}

func randomSuffix() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%016x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

type parsedPDF struct {
	text  string
	title string
	pages int
}

func parsePDF(data []byte) (out parsedPDF, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = parsedPDF{}
			err = fmt.Errorf("%w: parser panic: %v", errCorrupted, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return parsedPDF{}, classify(data, err)
	}

	out.pages = reader.NumPage()
	out.title = reader.Trailer().Key("Info").Key("Title").Text()

	plain, err := reader.GetPlainText()
	if err != nil {
		return parsedPDF{}, classify(data, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return parsedPDF{}, fmt.Errorf("%w: read text: %v", errCorrupted, err)
	}
	out.text = buf.String()
	return out, nil
}

// classify decides between a protected and a corrupted document. The text
// parser's own verdict wins; otherwise a relaxed structural read decides.
func classify(data []byte, parseErr error) error {
	if errors.Is(parseErr, pdf.ErrInvalidPassword) || mentionsEncryption(parseErr) {
		return fmt.Errorf("%w: %v", errProtected, parseErr)
	}
	if _, err := structuralPageCount(data); err != nil && mentionsEncryption(err) {
		return fmt.Errorf("%w: %v", errProtected, err)
	}
	return fmt.Errorf("%w: %v", errCorrupted, parseErr)
}

func structuralPageCount(data []byte) (pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdfcpu panic: %v", rec)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

func mentionsEncryption(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

func resolveTitle(metaTitle, content, originalFilename string) string {
	if t := collapse(sanitize.Text(metaTitle)); t != "" && sanitize.Length(t) <= MaxTitleLength {
		return t
	}
	if line := firstReasonableLine(content); line != "" {
		return line
	}
	return sanitize.FileStem(originalFilename, 100)
}

func firstReasonableLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = collapse(line)
		n := sanitize.Length(line)
		if n < 5 || n > 200 {
			continue
		}
		if strings.IndexFunc(line, unicode.IsLetter) < 0 {
			continue
		}
		return line
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
