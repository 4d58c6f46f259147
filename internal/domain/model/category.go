package model

// Category is one of the fixed support domains a user can subscribe to.
// The set is closed at deploy time; every category maps to exactly one
// staff group chat (configuration) and one display label.
type Category string

const (
	CategoryYouthPolicy    Category = "youth_policy"
	CategoryPsychologist   Category = "psychologist_support"
	CategoryCivicEducation Category = "civic_education"
	CategoryLegalSupport   Category = "legal_support"
)

// CategoryDescriptor pins down the per-category storage columns and routing
// behaviour in one static table instead of deriving column names from the
// category string at runtime.
type CategoryDescriptor struct {
	FlagColumn  string
	TopicColumn string
	LabelKey    string // i18n key for the display label
	Routable    bool   // false: subscribable and broadcastable, never relayed
}

var categories = map[Category]CategoryDescriptor{
	CategoryYouthPolicy: {
		FlagColumn:  "youth_policy",
		TopicColumn: "youth_policy_topic",
		LabelKey:    "category.youth_policy",
		Routable:    true,
	},
	CategoryPsychologist: {
		FlagColumn:  "psychologist_support",
		TopicColumn: "psychologist_support_topic",
		LabelKey:    "category.psychologist_support",
		Routable:    true,
	},
	CategoryCivicEducation: {
		FlagColumn: "civic_education",
		LabelKey:   "category.civic_education",
		Routable:   false,
	},
	CategoryLegalSupport: {
		FlagColumn:  "legal_support",
		TopicColumn: "legal_support_topic",
		LabelKey:    "category.legal_support",
		Routable:    true,
	},
}

// AllCategories returns the closed set in stable order.
func AllCategories() []Category {
	return []Category{
		CategoryYouthPolicy,
		CategoryPsychologist,
		CategoryCivicEducation,
		CategoryLegalSupport,
	}
}

// Descriptor returns the static descriptor for c. ok is false for anything
// outside the closed set (including the empty "no category" value).
func (c Category) Descriptor() (CategoryDescriptor, bool) {
	d, ok := categories[c]
	return d, ok
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Routable reports whether user messages in this category are forwarded to a
// staff topic. civic_education is read-only.
func (c Category) Routable() bool {
	d, ok := categories[c]
	return ok && d.Routable
}

func (c Category) String() string { return string(c) }

// ParseCategory validates a stored or wire value against the closed set.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}
