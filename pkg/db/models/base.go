package models

import "github.com/google/uuid"

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model. Used by AutoMigrate in tests and sqlite dev mode.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&OrderTracking{},
		&Delivery{},
		&Review{},
		&StockMovement{},
		&Notification{},
		&Expense{},
		&Budget{},
	}
}
