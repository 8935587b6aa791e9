package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestEffectivePricePrefersDiscount(t *testing.T) {
	p := Product{Price: decimal.NewFromInt(100)}
	if !p.EffectivePrice().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected list price, got %s", p.EffectivePrice())
	}
	discount := decimal.NewFromInt(80)
	p.DiscountPrice = &discount
	if !p.EffectivePrice().Equal(discount) {
		t.Fatalf("expected discount price, got %s", p.EffectivePrice())
	}
}

func TestBeforeCreateAssignsIDOnce(t *testing.T) {
	o := &Order{}
	if err := o.BeforeCreate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID == uuid.Nil {
		t.Fatalf("expected id to be assigned")
	}
	first := o.ID
	_ = o.BeforeCreate(nil)
	if o.ID != first {
		t.Fatalf("expected existing id to be kept")
	}
}

func TestUserDefaultsToCustomer(t *testing.T) {
	u := &User{}
	_ = u.BeforeCreate(nil)
	if u.IsAdmin() {
		t.Fatalf("new users should not be admins")
	}
	if u.Role != "customer" {
		t.Fatalf("expected customer role, got %q", u.Role)
	}
}
