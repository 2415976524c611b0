package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/platform/gcs"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

var ErrUserNotFound = errors.New("user not found")

type UpdateUserInput struct {
	Name            string
	CurrentPassword string
	NewPassword     string
}

type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*types.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, filename string, file io.Reader) (*types.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	companyRepo   repos.CompanyRepo
	bucket        gcs.BucketService
}

func NewUserService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	companyRepo repos.CompanyRepo,
	bucket gcs.BucketService,
) UserService {
	return &userService{
		db:            db,
		log:           log.With("service", "UserService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		companyRepo:   companyRepo,
		bucket:        bucket,
	}
}

func (us *userService) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return users[0], nil
}

func (us *userService) UpdateUser(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*types.User, error) {
	user, err := us.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = name
	}
	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hashed)
	}

	updated, err := us.userRepo.Update(ctx, nil, user)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (us *userService) UploadAvatar(ctx context.Context, userID uuid.UUID, filename string, file io.Reader) (*types.User, error) {
	user, err := us.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s", userID.String(), filename)
	obj, err := us.bucket.UploadFile(ctx, key, file)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	user.AvatarURL = obj.URL
	updated, err := us.userRepo.Update(ctx, nil, user)
	if err != nil {
		return nil, fmt.Errorf("update avatar url: %w", err)
	}
	return updated, nil
}

// DeleteUser removes the account and every company the user was the sole
// member of.
func (us *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companyIDs, err := us.companyRepo.MemberCompanyIDs(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("list member companies: %w", err)
		}
		for _, companyID := range companyIDs {
			count, err := us.companyRepo.MemberCount(ctx, tx, companyID)
			if err != nil {
				return fmt.Errorf("count members of company %d: %w", companyID, err)
			}
			if count <= 1 {
				if err := us.companyRepo.Delete(ctx, tx, companyID); err != nil {
					return fmt.Errorf("delete company %d: %w", companyID, err)
				}
			}
		}

		if err := us.userTokenRepo.DeleteByUserIDs(ctx, tx, []uuid.UUID{userID}); err != nil {
			return fmt.Errorf("delete user tokens: %w", err)
		}
		if err := us.userRepo.Delete(ctx, tx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
