package enums

import "fmt"

// ExpenseCategory buckets shop spending for budgets and reports.
type ExpenseCategory string

const (
	ExpenseCategoryMaterials ExpenseCategory = "materials"
	ExpenseCategoryPackaging ExpenseCategory = "packaging"
	ExpenseCategoryShipping  ExpenseCategory = "shipping"
	ExpenseCategoryMarketing ExpenseCategory = "marketing"
	ExpenseCategoryUtilities ExpenseCategory = "utilities"
	ExpenseCategorySalaries  ExpenseCategory = "salaries"
	ExpenseCategoryEquipment ExpenseCategory = "equipment"
	ExpenseCategoryOther     ExpenseCategory = "other"
)

var validExpenseCategories = []ExpenseCategory{
	ExpenseCategoryMaterials,
	ExpenseCategoryPackaging,
	ExpenseCategoryShipping,
	ExpenseCategoryMarketing,
	ExpenseCategoryUtilities,
	ExpenseCategorySalaries,
	ExpenseCategoryEquipment,
	ExpenseCategoryOther,
}

// String implements fmt.Stringer.
func (v ExpenseCategory) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ExpenseCategory.
func (v ExpenseCategory) IsValid() bool {
	for _, candidate := range validExpenseCategories {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseExpenseCategory converts raw input into a ExpenseCategory.
func ParseExpenseCategory(value string) (ExpenseCategory, error) {
	for _, candidate := range validExpenseCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expense category %q", value)
}
