package model

import (
	"time"

	"telegram-support-bot/internal/domain"
)

// User is a Telegram end user known to the bot. Name fields are captured on
// first contact and never refreshed afterwards. Topic bindings are immutable
// once set: a non-zero thread id for a category never changes again.
type User struct {
	ID           int64 // Telegram user id
	FirstName    string
	LastName     string
	Username     string
	RegisteredAt time.Time

	Active Category // empty: no active category
	Banned bool

	Subscribed map[Category]bool
	Topics     map[Category]int // category -> forum topic thread id
}

func NewUser(id int64, firstName, lastName, username string) (*User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		FirstName:    firstName,
		LastName:     lastName,
		Username:     username,
		RegisteredAt: time.Now(),
		Subscribed:   make(map[Category]bool),
		Topics:       make(map[Category]int),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == 0 }

func (u *User) IsSubscribed(c Category) bool {
	return u != nil && u.Subscribed[c]
}

// Topic returns the bound thread id for c, if any.
func (u *User) Topic(c Category) (int, bool) {
	if u == nil {
		return 0, false
	}
	id, ok := u.Topics[c]
	return id, ok && id != 0
}

// Subscriptions lists the categories the user currently has enabled,
// in the stable category order.
func (u *User) Subscriptions() []Category {
	var out []Category
	for _, c := range AllCategories() {
		if u.Subscribed[c] {
			out = append(out, c)
		}
	}
	return out
}

// DisplayName is what a freshly created staff topic is titled with.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "user"
}
