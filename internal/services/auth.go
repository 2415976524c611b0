package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/requestdata"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInactiveAccount    = errors.New("account is not activated")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	ActivateUser(ctx context.Context, email, code string) error
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueTokensFor(ctx context.Context, user *types.User) (string, string, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	mail          MailService
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	mail MailService,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		mail:          mail,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)
	if user.Email == "" || user.Password == "" || user.Name == "" {
		return fmt.Errorf("name, email and password are required")
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, user.Email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)

	code, err := activationCode()
	if err != nil {
		return fmt.Errorf("generate activation code: %w", err)
	}
	expires := time.Now().Add(time.Hour)
	user.ID = uuid.New()
	user.IsActive = false
	user.ActivationToken = code
	user.ActivationTokenExpires = &expires

	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := as.userRepo.Create(ctx, tx, []*types.User{user})
		return err
	}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if err := as.mail.SendActivationEmail(ctx, user, code); err != nil {
		// The account exists; the code can be re-requested.
		as.log.Error("Failed to send activation email", "user_id", user.ID.String(), "error", err)
	}
	return nil
}

func (as *authService) ActivateUser(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByActivationToken(ctx, nil, email, strings.TrimSpace(code), time.Now())
	if err != nil {
		return fmt.Errorf("find activation token: %w", err)
	}
	if user == nil {
		return ErrInvalidToken
	}

	user.IsActive = true
	user.ActivationToken = ""
	user.ActivationTokenExpires = nil
	if _, err := as.userRepo.Update(ctx, nil, user); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	return nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return "", "", fmt.Errorf("find user: %w", err)
	}
	if len(users) == 0 {
		return "", "", ErrInvalidCredentials
	}
	user := users[0]

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", "", ErrInactiveAccount
	}

	return as.IssueTokensFor(ctx, user)
}

// IssueTokensFor rotates the user's token pair: prior refresh tokens are
// revoked, one fresh pair is stored.
func (as *authService) IssueTokensFor(ctx context.Context, user *types.User) (string, string, error) {
	var access, refresh string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.userTokenRepo.DeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID}); err != nil {
			return fmt.Errorf("revoke prior tokens: %w", err)
		}

		var err error
		access, err = as.generateAccessToken(user)
		if err != nil {
			return err
		}
		refresh = uuid.New().String()

		_, err = as.userTokenRepo.Create(ctx, tx, []*types.UserToken{{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}})
		return err
	})
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", ErrInvalidToken
	}

	tokens, err := as.userTokenRepo.GetByRefreshTokens(ctx, nil, []string{rd.RefreshToken})
	if err != nil {
		return "", "", fmt.Errorf("find refresh token: %w", err)
	}
	if len(tokens) == 0 || time.Now().After(tokens[0].ExpiresAt) {
		return "", "", ErrInvalidToken
	}

	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{tokens[0].UserID})
	if err != nil {
		return "", "", fmt.Errorf("find user: %w", err)
	}
	if len(users) == 0 {
		return "", "", ErrInvalidToken
	}

	return as.IssueTokensFor(ctx, users[0])
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return ErrInvalidToken
	}
	return as.userTokenRepo.DeleteByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
}

func (as *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if len(users) == 0 {
		// Do not reveal whether the address exists.
		as.log.Info("Password reset requested for unknown email", "email", email)
		return nil
	}
	user := users[0]

	token := uuid.New().String()
	expires := time.Now().Add(time.Hour)
	user.ResetPasswordToken = token
	user.ResetPasswordTokenExpire = &expires
	if _, err := as.userRepo.Update(ctx, nil, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	return as.mail.SendPasswordResetEmail(ctx, user, token)
}

func (as *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("password is required")
	}
	user, err := as.userRepo.GetByResetToken(ctx, nil, strings.TrimSpace(token), time.Now())
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}
	if user == nil {
		return ErrInvalidToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)
	user.ResetPasswordToken = ""
	user.ResetPasswordTokenExpire = nil

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := as.userRepo.Update(ctx, tx, user); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		// Force re-login everywhere after a reset.
		return as.userTokenRepo.DeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID})
	})
}

// SetContextFromToken validates the bearer token and attaches the caller's
// identity to the context.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, ErrInvalidToken
	}

	// The token must also still be known to the rotation store; logout and
	// password reset invalidate otherwise-valid JWTs.
	stored, err := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if err != nil {
		return ctx, fmt.Errorf("find access token: %w", err)
	}
	if len(stored) == 0 {
		return ctx, ErrInvalidToken
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// activationCode returns a six digit numeric code.
func activationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
