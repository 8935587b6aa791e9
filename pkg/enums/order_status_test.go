package enums

import "testing"

func TestOrderStatusCustomerCancellable(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusPending:    true,
		OrderStatusConfirmed:  true,
		OrderStatusProcessing: false,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  false,
	}
	for status, want := range cases {
		if got := status.CustomerCancellable(); got != want {
			t.Fatalf("%s: expected %v got %v", status, want, got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("shipped")
	if err != nil || got != OrderStatusShipped {
		t.Fatalf("expected shipped, got %q err=%v", got, err)
	}
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if len(OrderStatuses()) != 6 {
		t.Fatalf("expected 6 statuses")
	}
}

func TestParseExpenseCategoryAndRole(t *testing.T) {
	if _, err := ParseExpenseCategory("materials"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if UserRole("root").IsValid() {
		t.Fatalf("root should not be a valid role")
	}
	if !UserRoleAdmin.IsValid() {
		t.Fatalf("admin should be valid")
	}
}
