package clients

import (
	"context"
	"errors"
	"testing"

	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/pagination"
)

type fakeCounter struct {
	counts map[int64]int
	err    error
}

func (f fakeCounter) CountByClient(_ context.Context, clientID int64) (int, error) {
	return f.counts[clientID], f.err
}

func TestServiceCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, Input{Name: "  Acme  ", Email: " OPS@Acme.Test "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 || c.Name != "Acme" || c.Email != "ops@acme.test" {
		t.Fatalf("unexpected client %+v", c)
	}

	_, err = svc.Create(ctx, Input{Name: "Other", Email: "ops@acme.test"})
	if !apperr.IsKind(err, apperr.KindConflict) || !apperr.HasCode(err, CodeEmailTaken) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestServiceCreateReportsEveryInvalidField(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), Input{Name: " ", Email: "not-an-email"})
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(e.Details) != 2 {
		t.Fatalf("expected two details, got %v", e.Details)
	}
}

func TestServiceGetMissingClient(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)

	_, err := svc.Get(context.Background(), 99)
	if !apperr.IsKind(err, apperr.KindNotFound) || !apperr.HasCode(err, CodeClientNotFound) {
		t.Fatalf("expected client_not_found, got %v", err)
	}
	_, err = svc.Get(context.Background(), 0)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation failure for id 0, got %v", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()
	a, _ := svc.Create(ctx, Input{Name: "A", Email: "a@x.test"})
	_, _ = svc.Create(ctx, Input{Name: "B", Email: "b@x.test"})

	updated, err := svc.Update(ctx, a.ID, Input{Name: "A2", Email: "a2@x.test"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "A2" || !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(ctx, a.ID, Input{Name: "A3", Email: "b@x.test"}); !apperr.HasCode(err, CodeEmailTaken) {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if _, err := svc.Update(ctx, 1234, Input{Name: "Z", Email: "z@x.test"}); !apperr.HasCode(err, CodeClientNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceDeleteRefusesClientsWithDocuments(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	c, _ := repo.Create(ctx, Client{Name: "A", Email: "a@x.test"})

	svc := NewService(repo, fakeCounter{counts: map[int64]int{c.ID: 2}})
	if err := svc.Delete(ctx, c.ID); !apperr.HasCode(err, CodeClientHasDocuments) {
		t.Fatalf("expected conflict, got %v", err)
	}

	svc = NewService(repo, fakeCounter{err: errors.New("db down")})
	if err := svc.Delete(ctx, c.ID); !apperr.IsKind(err, apperr.KindProcessing) {
		t.Fatalf("expected processing failure, got %v", err)
	}

	svc = NewService(repo, fakeCounter{})
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, c.ID); !apperr.HasCode(err, CodeClientNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestServiceListPages(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()
	for _, email := range []string{"a@x.test", "b@x.test", "c@x.test"} {
		if _, err := svc.Create(ctx, Input{Name: email, Email: email}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, err := svc.List(ctx, pagination.Page{Number: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].Email != "a@x.test" {
		t.Fatalf("unexpected page total=%d items=%+v", total, items)
	}
}

func TestServiceNotConfigured(t *testing.T) {
	var svc *Service
	_, err := svc.Get(context.Background(), 1)
	if !apperr.HasCode(err, apperr.CodeServiceUnavailable) {
		t.Fatalf("expected service_unavailable, got %v", err)
	}
}
