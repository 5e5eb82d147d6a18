package documents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"docharvest-backend/internal/clients"
	"docharvest-backend/internal/extract"
	"docharvest-backend/internal/scrape"
	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/pagination"
)

type fakePDF struct {
	mu      sync.Mutex
	result  extract.Result
	err     error
	calls   int
	removed []string
}

func (f *fakePDF) Extract(_ context.Context, _ []byte, _ string) (extract.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakePDF) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

type fakeScraper struct {
	result scrape.Result
	err    error
	calls  int
	ok     bool
}

func (f *fakeScraper) Scrape(_ context.Context, _ string) (scrape.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeScraper) ValidateURL(_ context.Context, _ string) bool { return f.ok }

type fakeClients map[int64]bool

func (f fakeClients) Get(_ context.Context, id int64) (clients.Client, error) {
	if !f[id] {
		return clients.Client{}, clients.ErrNotFound
	}
	return clients.Client{ID: id}, nil
}

type failingRepo struct {
	*MemoryRepo
	err error
}

func (r failingRepo) Create(context.Context, NewDocument) (Document, error) {
	return Document{}, r.err
}

var pdfBytes = []byte("%PDF-1.4 stand-in")

func newTestService(pdf *fakePDF, scr *fakeScraper) (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	svc := NewService(repo, fakeClients{1: true}, nil, nil)
	if pdf != nil {
		svc.PDF = pdf
	}
	if scr != nil {
		svc.Scraper = scr
	}
	return svc, repo
}

func requireFailure(t *testing.T, err error, kind apperr.Kind, code string) *apperr.Error {
	t.Helper()
	e, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected typed failure %s/%s, got %v", kind, code, err)
	}
	if e.Kind != kind || e.Code != code {
		t.Fatalf("expected %s/%s, got %s/%s (%v)", kind, code, e.Kind, e.Code, err)
	}
	return e
}

func TestProcessBinaryDocumentStoresRecord(t *testing.T) {
	pdf := &fakePDF{result: extract.Result{Title: "  Hello  World ", Content: "Hello World", StoredPath: "pdfs/1_abc_hello.pdf", PageCount: 1}}
	svc, repo := newTestService(pdf, nil)

	doc, err := svc.ProcessBinaryDocument(context.Background(), pdfBytes, FileMeta{Filename: "hello.pdf", MimeType: "application/pdf"}, 1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if doc.ID == 0 || doc.Title != "Hello World" || doc.Source != (BinarySource{Path: "pdfs/1_abc_hello.pdf"}) {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.ProcessedAt.IsZero() || doc.ContentHash != HashContent("Hello World") {
		t.Fatalf("expected processedAt and hash, got %+v", doc)
	}

	stored, err := repo.GetByID(context.Background(), doc.ID)
	if err != nil || stored.Content != "Hello World" {
		t.Fatalf("round trip failed: %+v %v", stored, err)
	}
}

func TestProcessBinaryDocumentUnknownClientFailsFast(t *testing.T) {
	pdf := &fakePDF{}
	svc, _ := newTestService(pdf, nil)

	_, err := svc.ProcessBinaryDocument(context.Background(), pdfBytes, FileMeta{Filename: "a.pdf", MimeType: "application/pdf"}, 42)
	requireFailure(t, err, apperr.KindNotFound, CodeClientNotFound)
	if pdf.calls != 0 {
		t.Fatalf("extractor must not run for unknown clients, ran %d times", pdf.calls)
	}
}

func TestProcessBinaryDocumentInputValidation(t *testing.T) {
	svc, _ := newTestService(&fakePDF{}, nil)
	ctx := context.Background()
	pdfMeta := FileMeta{Filename: "a.pdf", MimeType: "application/pdf"}

	_, err := svc.ProcessBinaryDocument(ctx, pdfBytes, pdfMeta, 0)
	requireFailure(t, err, apperr.KindValidation, CodeInvalidClientID)

	_, err = svc.ProcessBinaryDocument(ctx, nil, pdfMeta, 1)
	requireFailure(t, err, apperr.KindValidation, CodeMissingFile)

	_, err = svc.ProcessBinaryDocument(ctx, pdfBytes, FileMeta{Filename: "a.png", MimeType: "image/png"}, 1)
	requireFailure(t, err, apperr.KindValidation, CodeUnsupportedMediaType)

	svc.MaxUploadBytes = 4
	_, err = svc.ProcessBinaryDocument(ctx, pdfBytes, pdfMeta, 1)
	requireFailure(t, err, apperr.KindValidation, CodeFileTooLarge)
}

func TestProcessBinaryDocumentWithoutExtractor(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	_, err := svc.ProcessBinaryDocument(context.Background(), nil, FileMeta{}, 0)
	requireFailure(t, err, apperr.KindProcessing, apperr.CodeServiceUnavailable)
}

func TestProcessBinaryDocumentPassesExtractorFailuresThrough(t *testing.T) {
	pdf := &fakePDF{err: apperr.Validation(extract.CodeProtected, "password protected")}
	svc, _ := newTestService(pdf, nil)

	_, err := svc.ProcessBinaryDocument(context.Background(), pdfBytes, FileMeta{Filename: "a.pdf", MimeType: "application/pdf"}, 1)
	requireFailure(t, err, apperr.KindValidation, extract.CodeProtected)

	pdf.err = errors.New("disk on fire")
	_, err = svc.ProcessBinaryDocument(context.Background(), pdfBytes, FileMeta{Filename: "a.pdf", MimeType: "application/pdf"}, 1)
	if !apperr.IsKind(err, apperr.KindProcessing) {
		t.Fatalf("expected untyped failure wrapped as processing, got %v", err)
	}
}

func TestProcessBinaryDocumentRuleViolationRemovesStoredFile(t *testing.T) {
	pdf := &fakePDF{result: extract.Result{Title: strings.Repeat("t", MaxTitleLength+1), Content: "body", StoredPath: "pdfs/x.pdf"}}
	svc, _ := newTestService(pdf, nil)

	_, err := svc.ProcessBinaryDocument(context.Background(), pdfBytes, FileMeta{Filename: "x.pdf", MimeType: "application/pdf"}, 1)
	e := requireFailure(t, err, apperr.KindValidation, CodeBusinessRule)
	if len(e.Details) != 1 {
		t.Fatalf("expected one violation, got %v", e.Details)
	}
	if len(pdf.removed) != 1 || pdf.removed[0] != "pdfs/x.pdf" {
		t.Fatalf("expected stored file cleanup, got %v", pdf.removed)
	}
}

func TestProcessBinaryDocumentPersistenceFailures(t *testing.T) {
	pdf := &fakePDF{result: extract.Result{Title: "T", Content: "body", StoredPath: "pdfs/y.pdf"}}
	svc, _ := newTestService(pdf, nil)
	meta := FileMeta{Filename: "y.pdf", MimeType: "application/pdf"}

	svc.Repo = failingRepo{MemoryRepo: NewMemoryRepo(), err: ErrClientMissing}
	_, err := svc.ProcessBinaryDocument(context.Background(), pdfBytes, meta, 1)
	requireFailure(t, err, apperr.KindNotFound, CodeClientNotFound)

	svc.Repo = failingRepo{MemoryRepo: NewMemoryRepo(), err: errors.New("connection reset")}
	_, err = svc.ProcessBinaryDocument(context.Background(), pdfBytes, meta, 1)
	e := requireFailure(t, err, apperr.KindProcessing, CodePersistenceFailed)
	if e.Err == nil {
		t.Fatalf("expected the cause to be kept")
	}
	if len(pdf.removed) != 2 {
		t.Fatalf("expected cleanup after both failures, got %v", pdf.removed)
	}
}

func TestProcessRemotePageStoresRecord(t *testing.T) {
	scr := &fakeScraper{result: scrape.Result{Title: "", Content: "First line\nSecond", URL: "https://example.com", StatusCode: 200}}
	svc, _ := newTestService(nil, scr)

	doc, err := svc.ProcessRemotePage(context.Background(), "example.com", 1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if doc.Title != "First line" {
		t.Fatalf("expected derived title, got %q", doc.Title)
	}
	if doc.Source != (RemoteSource{URL: "https://example.com"}) {
		t.Fatalf("unexpected source %#v", doc.Source)
	}
}

func TestProcessRemotePageRejectsBeforeFetching(t *testing.T) {
	scr := &fakeScraper{}
	svc, _ := newTestService(nil, scr)
	ctx := context.Background()

	_, err := svc.ProcessRemotePage(ctx, "ftp://example.com/file", 1)
	requireFailure(t, err, apperr.KindValidation, scrape.CodeUnsupportedScheme)

	_, err = svc.ProcessRemotePage(ctx, "http://192.168.1.1/admin", 1)
	requireFailure(t, err, apperr.KindValidation, scrape.CodePrivateHost)

	_, err = svc.ProcessRemotePage(ctx, "  ", 1)
	requireFailure(t, err, apperr.KindValidation, CodeMissingURL)

	_, err = svc.ProcessRemotePage(ctx, "https://example.com", 77)
	requireFailure(t, err, apperr.KindNotFound, CodeClientNotFound)

	if scr.calls != 0 {
		t.Fatalf("scraper must not run, ran %d times", scr.calls)
	}
}

func TestCapabilitiesReflectWiring(t *testing.T) {
	svc, _ := newTestService(&fakePDF{}, nil)
	if caps := svc.Capabilities(); !caps.BinaryDocument || caps.RemotePage {
		t.Fatalf("unexpected capabilities %+v", caps)
	}
	if svc.CheckURL(context.Background(), "https://example.com") {
		t.Fatalf("CheckURL must be false without a scraper")
	}
}

func TestDeleteRemovesRecordThenFile(t *testing.T) {
	pdf := &fakePDF{result: extract.Result{Title: "T", Content: "body", StoredPath: "pdfs/z.pdf"}}
	svc, _ := newTestService(pdf, nil)
	ctx := context.Background()

	doc, err := svc.ProcessBinaryDocument(ctx, pdfBytes, FileMeta{Filename: "z.pdf", MimeType: "application/pdf"}, 1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := svc.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(pdf.removed) != 1 || pdf.removed[0] != "pdfs/z.pdf" {
		t.Fatalf("expected file removal, got %v", pdf.removed)
	}
	_, err = svc.Get(ctx, doc.ID)
	requireFailure(t, err, apperr.KindNotFound, CodeDocumentNotFound)
}

func TestListByClient(t *testing.T) {
	scr := &fakeScraper{result: scrape.Result{Title: "Page", Content: "text", URL: "https://example.com"}}
	svc, _ := newTestService(nil, scr)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.ProcessRemotePage(ctx, "https://example.com", 1); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	docs, total, err := svc.ListByClient(ctx, 1, pagination.Page{Number: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(docs) != 2 || docs[0].ID != 3 {
		t.Fatalf("unexpected listing total=%d docs=%+v", total, docs)
	}

	_, _, err = svc.ListByClient(ctx, 5, pagination.Default())
	requireFailure(t, err, apperr.KindNotFound, CodeClientNotFound)
}
