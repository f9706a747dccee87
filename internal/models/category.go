package models

import "github.com/shopspring/decimal"

// CategoryID identifies an expense category. The set is fixed by seed data;
// limits are the mutable part.
type CategoryID string

const (
	CategoryMedicine  CategoryID = "MEDICINE"
	CategoryEducation CategoryID = "EDUCATION"
	CategorySport     CategoryID = "SPORT"
)

// Valid reports whether the id is a known category.
func (c CategoryID) Valid() bool {
	switch c {
	case CategoryMedicine, CategoryEducation, CategorySport:
		return true
	}
	return false
}

// Category is one expense category with its annual budget cap.
type Category struct {
	ID       CategoryID      `json:"id"`
	Limit    decimal.Decimal `json:"limit"`
	Ordering int             `json:"-"`
}

// CategoryUsage is a category cap together with committed spend against it.
type CategoryUsage struct {
	Category CategoryID      `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Used     decimal.Decimal `json:"used"`
}
