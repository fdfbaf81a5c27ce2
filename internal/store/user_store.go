package store

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/models"
)

// UserStore resolves accounts, roles and provider subscriptions.
type UserStore struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewUserStore(db *gorm.DB, log *slog.Logger) *UserStore {
	return &UserStore{db: db, log: log}
}

func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrEmailTaken
	}
	return errors.Wrap(err, "userStore.CreateUser")
}

func (s *UserStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "userStore.UserByID")
	}
	return &user, nil
}

func (s *UserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("useremail = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "userStore.UserByEmail")
	}
	return &user, nil
}

// ActiveSubscription returns the plan behind the user's active or trial
// membership. (nil, nil) means the user holds no membership at all.
func (s *UserStore) ActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var membership models.Membership
	err := s.db.WithContext(ctx).
		Where("uuid = ? AND status IN ?", userID, []string{models.MembershipActive, models.MembershipTrial}).
		Order("created_at DESC").
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "userStore.ActiveSubscription.Membership")
	}

	var subscription models.Subscription
	err = s.db.WithContext(ctx).
		Where("subscription_id = ?", membership.SubscriptionID).
		First(&subscription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "userStore.ActiveSubscription.Subscription")
	}
	return &subscription, nil
}

// AdminIDs lists every admin and sub-admin account id.
func (s *UserStore) AdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role_type IN ?", []string{models.RoleAdmin, models.RoleSubAdmin}).
		Pluck("uuid", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "userStore.AdminIDs")
	}
	return ids, nil
}
