package domain_test

import (
	"testing"
	"time"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

func TestNewTenant(t *testing.T) {
	before := time.Now().UTC()
	tenant := domain.NewTenant("id-1", "Acme Corp", "acme-corp", "office@acme.test", 20)
	after := time.Now().UTC()

	if tenant.ID != "id-1" {
		t.Errorf("ID = %q, want %q", tenant.ID, "id-1")
	}
	if tenant.Name != "Acme Corp" {
		t.Errorf("Name = %q, want %q", tenant.Name, "Acme Corp")
	}
	if tenant.Slug != "acme-corp" {
		t.Errorf("Slug = %q, want %q", tenant.Slug, "acme-corp")
	}
	if tenant.ContactEmail != "office@acme.test" {
		t.Errorf("ContactEmail = %q, want %q", tenant.ContactEmail, "office@acme.test")
	}
	if tenant.Status != domain.StatusActive {
		t.Errorf("Status = %q, want %q", tenant.Status, domain.StatusActive)
	}
	if tenant.DispatchDay != 20 {
		t.Errorf("DispatchDay = %d, want 20", tenant.DispatchDay)
	}
	if tenant.LastDispatchedDay != nil {
		t.Errorf("LastDispatchedDay = %d, want nil", *tenant.LastDispatchedDay)
	}
	if tenant.CreatedAt.Before(before) || tenant.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want between %v and %v", tenant.CreatedAt, before, after)
	}
	if tenant.UpdatedAt != tenant.CreatedAt {
		t.Errorf("UpdatedAt should equal CreatedAt on new tenant")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusActive, domain.StatusSuspended, domain.StatusInactive} {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if domain.Status("aktiv").Valid() {
		t.Error(`status "aktiv" should be invalid`)
	}
}

func TestValidDay(t *testing.T) {
	for _, d := range []int{1, 15, 31} {
		if !domain.ValidDay(d) {
			t.Errorf("ValidDay(%d) = false, want true", d)
		}
	}
	for _, d := range []int{0, 32, -1} {
		if domain.ValidDay(d) {
			t.Errorf("ValidDay(%d) = true, want false", d)
		}
	}
}
