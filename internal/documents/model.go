package documents

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// SourceType names the variant of a document's origin.
type SourceType string

const (
	SourceBinaryDocument SourceType = "binary_document"
	SourceRemotePage     SourceType = "remote_page"
)

// Source is where a document's content came from. Exactly one of FilePath
// and SourceURL is non-empty for a valid source.
type Source interface {
	Type() SourceType
	FilePath() string
	SourceURL() string
	isSource()
}

// BinarySource is an uploaded file kept in durable byte storage.
type BinarySource struct {
	Path string
}

func (BinarySource) Type() SourceType { return SourceBinaryDocument }
func (s BinarySource) FilePath() string { return s.Path }
func (BinarySource) SourceURL() string { return "" }
func (BinarySource) isSource() {}

// RemoteSource is a scraped web page.
type RemoteSource struct {
	URL string
}

func (RemoteSource) Type() SourceType { return SourceRemotePage }
func (RemoteSource) FilePath() string { return "" }
func (s RemoteSource) SourceURL() string { return s.URL }
func (RemoteSource) isSource() {}

// Document is a persisted extraction result owned by a client.
type Document struct {
	ID          int64
	ClientID    int64
	Title       string
	Content     string
	ContentHash string
	Source      Source
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// NewDocument is a document that has not been persisted yet.
type NewDocument struct {
	ClientID    int64
	Title       string
	Content     string
	Source      Source
	ProcessedAt time.Time
}

// HashContent returns the xxhash64 of content as 16 hex digits.
func HashContent(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// documentRow mirrors the documents table.
type documentRow struct {
	ID           int64
	ClientID     int64
	Title        string
	Content      string
	ContentHash  string
	DocumentType string
	SourceURL    sql.NullString
	FilePath     sql.NullString
	ProcessedAt  time.Time
	CreatedAt    time.Time
}

func rowFromNew(doc NewDocument) documentRow {
	row := documentRow{
		ClientID:     doc.ClientID,
		Title:        doc.Title,
		Content:      doc.Content,
		ContentHash:  HashContent(doc.Content),
		DocumentType: string(doc.Source.Type()),
		ProcessedAt:  doc.ProcessedAt,
	}
	if v := doc.Source.SourceURL(); v != "" {
		row.SourceURL = sql.NullString{String: v, Valid: true}
	}
	if v := doc.Source.FilePath(); v != "" {
		row.FilePath = sql.NullString{String: v, Valid: true}
	}
	return row
}

// toDocument rebuilds the Source variant and rejects rows whose nullable
// columns disagree with document_type.
func (r documentRow) toDocument() (Document, error) {
	doc := Document{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Title:       r.Title,
		Content:     r.Content,
		ContentHash: r.ContentHash,
		ProcessedAt: r.ProcessedAt,
		CreatedAt:   r.CreatedAt,
	}
	switch SourceType(r.DocumentType) {
	case SourceBinaryDocument:
		if !r.FilePath.Valid || r.FilePath.String == "" || r.SourceURL.Valid {
			return Document{}, corruptRow(r, "binary_document needs file_path and no source_url")
		}
		doc.Source = BinarySource{Path: r.FilePath.String}
	case SourceRemotePage:
		if !r.SourceURL.Valid || r.SourceURL.String == "" || r.FilePath.Valid {
			return Document{}, corruptRow(r, "remote_page needs source_url and no file_path")
		}
		doc.Source = RemoteSource{URL: r.SourceURL.String}
	default:
		return Document{}, corruptRow(r, "unknown document_type "+strconv.Quote(r.DocumentType))
	}
	return doc, nil
}

func corruptRow(r documentRow, reason string) error {
	return fmt.Errorf("document %d: %w: %s", r.ID, ErrCorruptRow, reason)
}
