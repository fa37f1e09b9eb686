// Package onboarding handles store registration, staff accounts and login.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
)

// Service manages stores and staff accounts.
type Service struct {
	tx         mongodb.TxRunner
	stores     mongodb.StoreRepository
	users      mongodb.UserRepository
	activities mongodb.ActivityRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	logger     *zap.Logger
}

// NewService wires a new onboarding service instance.
func NewService(tx mongodb.TxRunner, stores mongodb.StoreRepository, users mongodb.UserRepository, activities mongodb.ActivityRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tx:         tx,
		stores:     stores,
		users:      users,
		activities: activities,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// RegisterStoreInput carries the fields for store + owner registration.
type RegisterStoreInput struct {
	Name          string
	Address       string
	OwnerName     string
	OwnerEmail    string
	OwnerPassword string
}

// RegisterStore creates a store with a generated join code and its owner
// account in one transaction.
func (s *Service) RegisterStore(ctx context.Context, in RegisterStoreInput) (models.Store, models.User, error) {
	if in.Name == "" || in.OwnerEmail == "" || in.OwnerPassword == "" {
		return models.Store{}, models.User{}, fmt.Errorf("name, owner email and password are required: %w", apperr.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.Store{}, models.User{}, fmt.Errorf("hash password: %w", err)
	}

	var (
		store models.Store
		owner models.User
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		store, err = s.stores.Create(ctx, models.Store{
			Name:    in.Name,
			Code:    newStoreCode(),
			Address: in.Address,
		})
		if err != nil {
			return err
		}

		owner, err = s.users.Create(ctx, models.User{
			StoreID:      store.ID,
			Name:         in.OwnerName,
			Email:        strings.ToLower(in.OwnerEmail),
			PasswordHash: string(hash),
			Role:         models.RoleOwner,
		})
		if err != nil {
			return err
		}

		return s.activities.Append(ctx, models.Activity{
			StoreID:  store.ID,
			ActorID:  owner.ID,
			Category: models.ActivityOnboarding,
			Action:   "store.registered",
			Metadata: map[string]string{"store_code": store.Code},
		})
	})
	if err != nil {
		return models.Store{}, models.User{}, err
	}

	s.logger.Info("store registered",
		zap.String("store_id", store.ID.Hex()),
		zap.String("code", store.Code))
	return store, owner, nil
}

// AddStaffInput carries the fields for a new staff account.
type AddStaffInput struct {
	StoreID  primitive.ObjectID
	ActorID  primitive.ObjectID
	Name     string
	Email    string
	Password string
}

// AddStaff creates a technician account in the actor's store. Only owners
// may add staff.
func (s *Service) AddStaff(ctx context.Context, in AddStaffInput) (models.User, error) {
	if in.Email == "" || in.Password == "" {
		return models.User{}, fmt.Errorf("email and password are required: %w", apperr.ErrValidation)
	}

	actor, err := s.users.FindByID(ctx, in.ActorID)
	if err != nil {
		return models.User{}, err
	}
	if actor.Role != models.RoleOwner || actor.StoreID != in.StoreID {
		return models.User{}, fmt.Errorf("only the store owner may add staff: %w", apperr.ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	staff, err := s.users.Create(ctx, models.User{
		StoreID:      in.StoreID,
		Name:         in.Name,
		Email:        strings.ToLower(in.Email),
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
	})
	if err != nil {
		return models.User{}, err
	}

	s.audit(ctx, in.StoreID, in.ActorID, "staff.added", map[string]string{"user_id": staff.ID.Hex()})
	return staff, nil
}

// Login verifies credentials and issues an HS256 token carrying the user and
// store ids.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", models.User{}, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
		}
		return "", models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", models.User{}, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     user.ID.Hex(),
		"storeId": user.StoreID.Hex(),
		"iat":     now.Unix(),
		"exp":     now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", models.User{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record login time", zap.Error(err))
	}

	return signed, user, nil
}

// Me loads the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID primitive.ObjectID) (models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *Service) audit(ctx context.Context, storeID, actorID primitive.ObjectID, action string, metadata map[string]string) {
	err := s.activities.Append(ctx, models.Activity{
		StoreID:  storeID,
		ActorID:  actorID,
		Category: models.ActivityOnboarding,
		Action:   action,
		Metadata: metadata,
	})
	if err != nil {
		s.logger.Warn("failed to append activity", zap.String("action", action), zap.Error(err))
	}
}

// newStoreCode derives a short human-friendly join code.
func newStoreCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
