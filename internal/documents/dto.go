package documents

import (
	"time"

	"docharvest-backend/internal/shared/sanitize"
)

const previewLength = 280

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"clientId"`
	Title        string    `json:"title"`
	Content      string    `json:"content,omitempty"`
	Preview      string    `json:"preview,omitempty"`
	ContentHash  string    `json:"contentHash"`
	ContentChars int       `json:"contentChars"`
	DocumentType string    `json:"documentType"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
	FilePath     string    `json:"filePath,omitempty"`
	ProcessedAt  time.Time `json:"processedAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toResponse(doc Document) DocumentResponse {
	resp := toSummary(doc)
	resp.Content = doc.Content
	resp.Preview = ""
	return resp
}

// toSummary omits the full content for listings.
func toSummary(doc Document) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID,
		ClientID:     doc.ClientID,
		Title:        doc.Title,
		Preview:      sanitize.Truncate(doc.Content, previewLength),
		ContentHash:  doc.ContentHash,
		ContentChars: sanitize.Length(doc.Content),
		ProcessedAt:  doc.ProcessedAt,
		CreatedAt:    doc.CreatedAt,
	}
	if doc.Source != nil {
		resp.DocumentType = string(doc.Source.Type())
		resp.SourceURL = doc.Source.SourceURL()
		resp.FilePath = doc.Source.FilePath()
	}
	return resp
}

func toSummaries(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toSummary(doc))
	}
	return out
}
