//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/usecase"
)

func TestSubscriptionUseCase_RegisterOrFetch(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("should create a new user on first contact", func(t *testing.T) {
		// Arrange
		repo := newMemUserRepo()
		uc := usecase.NewSubscriptionUseCase(repo, testLogger)

		// Act
		u, err := uc.RegisterOrFetch(ctx, 42, "Olena", "K", "olena")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if u.FirstName != "Olena" || u.Username != "olena" {
			t.Errorf("new user must carry the provided names, got %+v", u)
		}
		stored, err := repo.Find(ctx, 42)
		if err != nil {
			t.Fatalf("user must be persisted: %v", err)
		}
		if stored.Active != "" {
			t.Errorf("fresh user must have no active category, got %q", stored.Active)
		}
	})

	t.Run("should not overwrite names of an existing user", func(t *testing.T) {
		// Arrange
		repo := newMemUserRepo()
		existing, _ := model.NewUser(42, "Olena", "K", "olena")
		repo.seed(existing)
		uc := usecase.NewSubscriptionUseCase(repo, testLogger)

		// Act: same user shows up with a changed profile.
		u, err := uc.RegisterOrFetch(ctx, 42, "Helen", "", "helen_new")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if u.FirstName != "Olena" || u.Username != "olena" {
			t.Errorf("names captured on first contact must stick, got %+v", u)
		}
	})

	t.Run("should reject a non-positive id", func(t *testing.T) {
		uc := usecase.NewSubscriptionUseCase(newMemUserRepo(), testLogger)
		if _, err := uc.RegisterOrFetch(ctx, 0, "x", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

func TestSubscriptionUseCase_SubscribeUnsubscribe(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("subscribe should set the flag and the active category", func(t *testing.T) {
		// Arrange
		repo := newMemUserRepo()
		u, _ := model.NewUser(42, "Olena", "", "olena")
		repo.seed(u)
		uc := usecase.NewSubscriptionUseCase(repo, testLogger)

		// Act
		if err := uc.Subscribe(ctx, 42, model.CategoryPsychologist); err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		// Assert
		stored, _ := repo.Find(ctx, 42)
		if !stored.IsSubscribed(model.CategoryPsychologist) {
			t.Error("flag must be set")
		}
		if stored.Active != model.CategoryPsychologist {
			t.Errorf("active category must follow the subscription, got %q", stored.Active)
		}
	})

	t.Run("subscribing to a second category must keep the first flag", func(t *testing.T) {
		repo := newMemUserRepo()
		u, _ := model.NewUser(42, "Olena", "", "olena")
		repo.seed(u)
		uc := usecase.NewSubscriptionUseCase(repo, testLogger)

		if err := uc.Subscribe(ctx, 42, model.CategoryYouthPolicy); err != nil {
			t.Fatalf("first subscribe: %v", err)
		}
		if err := uc.Subscribe(ctx, 42, model.CategoryLegalSupport); err != nil {
			t.Fatalf("second subscribe: %v", err)
		}

		subs, err := uc.Subscriptions(ctx, 42)
		if err != nil {
			t.Fatalf("subscriptions: %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("expected 2 subscriptions, got %v", subs)
		}
		stored, _ := repo.Find(ctx, 42)
		if stored.Active != model.CategoryLegalSupport {
			t.Errorf("active must track the latest choice, got %q", stored.Active)
		}
	})

	t.Run("unsubscribe should clear only the active category's flag", func(t *testing.T) {
		// Arrange
		repo := newMemUserRepo()
		u, _ := model.NewUser(42, "Olena", "", "olena")
		u.Subscribed[model.CategoryYouthPolicy] = true
		u.Subscribed[model.CategoryLegalSupport] = true
		u.Active = model.CategoryLegalSupport
		repo.seed(u)
		uc := usecase.NewSubscriptionUseCase(repo, testLogger)

		// Act
		if err := uc.Unsubscribe(ctx, 42); err != nil {
			t.Fatalf("unsubscribe: %v", err)
		}

		// Assert
		stored, _ := repo.Find(ctx, 42)
		if stored.IsSubscribed(model.CategoryLegalSupport) {
			t.Error("active category's flag must be cleared")
		}
		if !stored.IsSubscribed(model.CategoryYouthPolicy) {
			t.Error("other subscriptions must survive")
		}
		if stored.Active != "" {
			t.Errorf("active category must be cleared, got %q", stored.Active)
		}
	})

	t.Run("main menu should clear the active category but keep all flags", func(t *testing.T) {
		repo := newMemUserRepo()
		u, _ := model.NewUser(42, "Olena", "", "olena")
		u.Subscribed[model.CategoryYouthPolicy] = true
		u.Active = model.CategoryYouthPolicy
		repo.seed(u)
		uc := usecase.NewSubscriptionUseCase(repo, testLogger)

		if err := uc.MainMenu(ctx, 42); err != nil {
			t.Fatalf("main menu: %v", err)
		}

		stored, _ := repo.Find(ctx, 42)
		if stored.Active != "" {
			t.Errorf("active must be cleared, got %q", stored.Active)
		}
		if !stored.IsSubscribed(model.CategoryYouthPolicy) {
			t.Error("flags must be untouched")
		}
	})

	t.Run("subscribe should reject an unknown category", func(t *testing.T) {
		uc := usecase.NewSubscriptionUseCase(newMemUserRepo(), testLogger)
		if err := uc.Subscribe(ctx, 42, "weather"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

func TestSubscriptionUseCase_Ban(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("should resolve the topic owner and mark them banned", func(t *testing.T) {
		// Arrange
		repo := newMemUserRepo()
		u, _ := model.NewUser(42, "Olena", "", "olena")
		u.Topics[model.CategoryYouthPolicy] = 555
		repo.seed(u)
		uc := usecase.NewSubscriptionUseCase(repo, testLogger)

		// Act
		bannedID, err := uc.Ban(ctx, model.CategoryYouthPolicy, 555)

		// Assert
		if err != nil {
			t.Fatalf("ban: %v", err)
		}
		if bannedID != 42 {
			t.Errorf("expected user 42 banned, got %d", bannedID)
		}
		stored, _ := repo.Find(ctx, 42)
		if !stored.Banned {
			t.Error("banned flag must be persisted")
		}
		if _, ok := stored.Topic(model.CategoryYouthPolicy); !ok {
			t.Error("topic binding must survive the ban")
		}
	})

	t.Run("should fail for a thread with no owner", func(t *testing.T) {
		uc := usecase.NewSubscriptionUseCase(newMemUserRepo(), testLogger)
		if _, err := uc.Ban(ctx, model.CategoryYouthPolicy, 999); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}
