package model

import (
	"strings"

	"github.com/google/uuid"
)

// OthersCategoryName is the reserved catch-all category. It cannot be deleted or renamed.
const OthersCategoryName = "Others"

// seedNamespace derives stable ids for the default categories so that a reset
// reproduces the same set.
var seedNamespace = uuid.MustParse("6f1c2b9e-3d4a-4e8b-9a51-2c7d0e5f8a13")

// Category groups expenses for reporting.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// NewCategory creates a category with a fresh id.
func NewCategory(name, emoji string) Category {
	return Category{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(name),
		Emoji: emoji,
	}
}

// IsOthers reports whether c is the protected catch-all category.
func (c Category) IsOthers() bool {
	return c.Name == OthersCategoryName
}

// Label renders the category as "emoji name".
func (c Category) Label() string {
	if c.Emoji == "" {
		return c.Name
	}
	return c.Emoji + " " + c.Name
}

func seedCategory(name, emoji string) Category {
	return Category{
		ID:    uuid.NewSHA1(seedNamespace, []byte(name)).String(),
		Name:  name,
		Emoji: emoji,
	}
}

// DefaultCategories returns the seed set created on first run and on reset.
func DefaultCategories() []Category {
	return []Category{
		seedCategory("Food", "🍔"),
		seedCategory("Transport", "🚗"),
		seedCategory("Shopping", "🛍️"),
		seedCategory("Entertainment", "🎬"),
		seedCategory("Bills", "📄"),
		seedCategory(OthersCategoryName, "📦"),
	}
}
