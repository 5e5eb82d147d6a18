package clients

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/pagination"
)

const (
	CodeInvalidClient      = "invalid_client"
	CodeClientNotFound     = "client_not_found"
	CodeEmailTaken         = "email_taken"
	CodeClientHasDocuments = "client_has_documents"

	maxNameLength  = 255
	maxEmailLength = 255
)

var validate = validator.New()

// DocumentCounter reports how many documents a client owns.
type DocumentCounter interface {
	CountByClient(ctx context.Context, clientID int64) (int, error)
}

// Input carries the writable client fields.
type Input struct {
	Name  string
	Email string
}

type Service struct {
	Repo      Repo
	Documents DocumentCounter
}

func NewService(repo Repo, documents DocumentCounter) *Service {
	return &Service{Repo: repo, Documents: documents}
}

func (s *Service) Create(ctx context.Context, in Input) (Client, error) {
	if s == nil || s.Repo == nil {
		return Client{}, unavailable()
	}
	in, err := s.normalize(in)
	if err != nil {
		return Client{}, err
	}
	c, err := s.Repo.Create(ctx, Client{Name: in.Name, Email: in.Email})
	if err != nil {
		return Client{}, translateRepoErr("create client", err)
	}
	return c, nil
}

// Get returns the client with id. Missing clients yield NotFound(client_not_found).
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	if s == nil || s.Repo == nil {
		return Client{}, unavailable()
	}
	if id <= 0 {
		return Client{}, apperr.Validation(CodeInvalidClient, "client id must be a positive integer")
	}
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Client{}, translateRepoErr("get client", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, page pagination.Page) ([]Client, int, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, unavailable()
	}
	items, total, err := s.Repo.List(ctx, page)
	if err != nil {
		return nil, 0, apperr.Wrap("list clients", err)
	}
	return items, total, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (Client, error) {
	if s == nil || s.Repo == nil {
		return Client{}, unavailable()
	}
	if id <= 0 {
		return Client{}, apperr.Validation(CodeInvalidClient, "client id must be a positive integer")
	}
	in, err := s.normalize(in)
	if err != nil {
		return Client{}, err
	}
	c, err := s.Repo.Update(ctx, Client{ID: id, Name: in.Name, Email: in.Email})
	if err != nil {
		return Client{}, translateRepoErr("update client", err)
	}
	return c, nil
}

// Delete removes a client that owns no documents.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s == nil || s.Repo == nil {
		return unavailable()
	}
	if id <= 0 {
		return apperr.Validation(CodeInvalidClient, "client id must be a positive integer")
	}
	if s.Documents != nil {
		n, err := s.Documents.CountByClient(ctx, id)
		if err != nil {
			return apperr.Wrap("count client documents", err)
		}
		if n > 0 {
			return apperr.Conflict(CodeClientHasDocuments, "client still owns documents")
		}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return translateRepoErr("delete client", err)
	}
	return nil
}

func (s *Service) normalize(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var details []string
	switch {
	case in.Name == "":
		details = append(details, "name is required")
	case len([]rune(in.Name)) > maxNameLength:
		details = append(details, "name must be at most 255 characters")
	}
	switch {
	case in.Email == "":
		details = append(details, "email is required")
	case len(in.Email) > maxEmailLength:
		details = append(details, "email must be at most 255 characters")
	case validate.Var(in.Email, "email") != nil:
		details = append(details, "email is not a valid address")
	}
	if len(details) > 0 {
		return Input{}, apperr.Validation(CodeInvalidClient, "invalid client", details...)
	}
	return in, nil
}

func translateRepoErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(CodeClientNotFound, "client not found")
	case errors.Is(err, ErrEmailTaken):
		return apperr.Conflict(CodeEmailTaken, "a client with this email already exists")
	case errors.Is(err, ErrHasDocuments):
		return apperr.Conflict(CodeClientHasDocuments, "client still owns documents")
	default:
		return apperr.Wrap(op, err)
	}
}

func unavailable() error {
	return apperr.Processing(apperr.CodeServiceUnavailable, "clients service unavailable", ErrNotConfigured)
}
