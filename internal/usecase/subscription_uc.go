package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// RegisterOrFetch creates the user on first contact. Name fields of an
	// existing user are left untouched.
	RegisterOrFetch(ctx context.Context, id int64, firstName, lastName, username string) (*model.User, error)

	// Subscribe enables the category flag and makes it the active category.
	Subscribe(ctx context.Context, id int64, c model.Category) error
	// Unsubscribe disables the active category's flag and clears the
	// active category.
	Unsubscribe(ctx context.Context, id int64) error
	// MainMenu clears the active category without touching any flag.
	MainMenu(ctx context.Context, id int64) error

	Subscriptions(ctx context.Context, id int64) ([]model.Category, error)

	// Ban resolves the owner of a staff topic and suppresses further relay
	// for them. History is retained.
	Ban(ctx context.Context, c model.Category, threadID int) (int64, error)
}

type subscriptionUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewSubscriptionUseCase(users repository.UserRepository, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{users: users, log: &l}
}

func (uc *subscriptionUC) RegisterOrFetch(ctx context.Context, id int64, firstName, lastName, username string) (*model.User, error) {
	u, err := uc.users.Find(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	u, err = model.NewUser(id, firstName, lastName, username)
	if err != nil {
		return nil, err
	}
	if err := uc.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	uc.log.Info().Int64("user_id", id).Msg("user registered")
	return u, nil
}

func (uc *subscriptionUC) Subscribe(ctx context.Context, id int64, c model.Category) error {
	if !c.Valid() {
		return domain.ErrInvalidArgument
	}
	if err := uc.users.SetFlag(ctx, id, c, true); err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	if err := uc.users.SetActiveCategory(ctx, id, c); err != nil {
		return fmt.Errorf("set active category: %w", err)
	}
	uc.log.Info().Int64("user_id", id).Str("category", c.String()).Msg("subscribed")
	return nil
}

func (uc *subscriptionUC) Unsubscribe(ctx context.Context, id int64) error {
	u, err := uc.users.Find(ctx, id)
	if err != nil {
		return err
	}
	if u.Active.Valid() {
		if err := uc.users.SetFlag(ctx, id, u.Active, false); err != nil {
			return fmt.Errorf("clear flag: %w", err)
		}
	}
	if err := uc.users.SetActiveCategory(ctx, id, ""); err != nil {
		return fmt.Errorf("clear active category: %w", err)
	}
	uc.log.Info().Int64("user_id", id).Str("category", u.Active.String()).Msg("unsubscribed")
	return nil
}

func (uc *subscriptionUC) MainMenu(ctx context.Context, id int64) error {
	return uc.users.SetActiveCategory(ctx, id, "")
}

func (uc *subscriptionUC) Subscriptions(ctx context.Context, id int64) ([]model.Category, error) {
	u, err := uc.users.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Subscriptions(), nil
}

func (uc *subscriptionUC) Ban(ctx context.Context, c model.Category, threadID int) (int64, error) {
	userID, err := uc.users.FindByTopic(ctx, c, threadID)
	if err != nil {
		return 0, fmt.Errorf("resolve topic owner: %w", err)
	}
	if err := uc.users.SetBanned(ctx, userID, true); err != nil {
		return 0, fmt.Errorf("set banned: %w", err)
	}
	uc.log.Warn().Int64("user_id", userID).Str("category", c.String()).Msg("user banned")
	return userID, nil
}
