package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/game"
	"stickman_shake/internal/logger"
	"stickman_shake/internal/repository"
	"stickman_shake/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrProviderDisabled   = errors.New("sign-in provider not configured")
)

const minPasswordLen = 6

// AccountStore is implemented by repository.AccountRepository and store.MemoryAccounts.
type AccountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetBySubject(ctx context.Context, provider, subject string) (*domain.Account, error)
}

// AuthResult is returned by every sign-in path.
type AuthResult struct {
	Identity
	Token   string `json:"token"`
	Created bool   `json:"created"`
}

type AuthService struct {
	accounts AccountStore
	profiles store.Store
	catalog  *game.Catalog
	audit    *AuditService
	botToken string
	now      func() time.Time
}

func NewAuthService(accounts AccountStore, profiles store.Store, catalog *game.Catalog, audit *AuditService, botToken string) *AuthService {
	return &AuthService{
		accounts: accounts,
		profiles: profiles,
		catalog:  catalog,
		audit:    audit,
		botToken: botToken,
		now:      time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(email), nil
}

// SignUp registers an email/password account and creates its profile.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     domain.ProviderPassword,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.audit.Log(ctx, acc.ID, domain.AuditActionSignUp, domain.AuditCategoryAuth, map[string]interface{}{
		"provider": domain.ProviderPassword,
	})

	return s.establish(ctx, Identity{UserID: acc.ID, Email: acc.Email}, "")
}

// SignIn checks an email/password pair.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if acc.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.establish(ctx, Identity{UserID: acc.ID, Email: acc.Email}, "")
}

// SignInWithTelegram signs in (or registers) with Telegram WebApp init data.
func (s *AuthService) SignInWithTelegram(ctx context.Context, initData string) (*AuthResult, error) {
	if s.botToken == "" {
		return nil, ErrProviderDisabled
	}
	tgUser, err := VerifyTelegramUser(initData, s.botToken, s.now())
	if err != nil {
		return nil, err
	}
	subject := strconv.FormatInt(tgUser.ID, 10)

	acc, err := s.accounts.GetBySubject(ctx, domain.ProviderTelegram, subject)
	if errors.Is(err, repository.ErrAccountNotFound) {
		acc = &domain.Account{
			ID:       uuid.NewString(),
			Provider: domain.ProviderTelegram,
			Subject:  subject,
		}
		if err := s.accounts.Create(ctx, acc); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		s.audit.Log(ctx, acc.ID, domain.AuditActionSignUp, domain.AuditCategoryAuth, map[string]interface{}{
			"provider": domain.ProviderTelegram,
		})
	} else if err != nil {
		return nil, err
	}

	return s.establish(ctx, Identity{UserID: acc.ID, Email: acc.Email}, tgUser.Username)
}

// establish makes sure the profile exists and issues a token.
func (s *AuthService) establish(ctx context.Context, id Identity, username string) (*AuthResult, error) {
	created, err := s.EnsureProfile(ctx, id, username)
	if err != nil {
		return nil, err
	}
	token, err := GenerateJWT(id)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Identity: id, Token: token, Created: created}, nil
}

// EnsureProfile creates the zero-state profile if the user has none. Safe to call on every login.
func (s *AuthService) EnsureProfile(ctx context.Context, id Identity, username string) (bool, error) {
	p := domain.NewProfile(s.catalog, id.UserID, id.Email, s.now())
	if username != "" {
		p.Username = username
	}
	created, err := s.profiles.EnsureExists(ctx, p)
	if err != nil {
		logger.Error("ensure profile failed", "user_id", id.UserID, "error", err)
		return false, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	if created {
		logger.Info("profile created", "user_id", id.UserID, "username", p.Username)
	}
	return created, nil
}
