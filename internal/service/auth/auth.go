package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/events"
	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/internal/repo"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/pkg/hash"
	"github.com/prockx/storefront/pkg/logging"
	"github.com/prockx/storefront/pkg/tokens"
)

var emailRe = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)

type Service struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AdminEmail    string
	Events        events.Publisher
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, *tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	name := strings.TrimSpace(req.Name)
	email := NormalizeEmail(req.Email)
	switch {
	case name == "":
		return nil, nil, fmt.Errorf("%w: name is required", apperr.ErrInvalidRequest)
	case utf8.RuneCountInString(name) > 50:
		return nil, nil, fmt.Errorf("%w: name must be at most 50 characters", apperr.ErrInvalidRequest)
	case !ValidEmail(email):
		return nil, nil, fmt.Errorf("%w: invalid email", apperr.ErrInvalidRequest)
	case len(req.Password) < 6:
		return nil, nil, fmt.Errorf("%w: password must be at least 6 characters", apperr.ErrInvalidRequest)
	}

	if _, err := s.Repo.UserByEmail(ctx, email); err == nil {
		return nil, nil, fmt.Errorf("%w: user with this email already exists", apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, nil, err
	}

	role := models.RoleUser
	if s.AdminEmail != "" && email == NormalizeEmail(s.AdminEmail) {
		role = models.RoleAdmin
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		AvatarURL:    models.DefaultAvatarURL,
		IsVerified:   true,
		LastLogin:    time.Now().UTC(),
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, "user_registered", user.ID)
	l.Info("register_success", "user_id", user.ID, "role", role)
	return user, pair, nil
}

func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (*models.User, *tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", apperr.ErrInvalidRequest)
	}

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, nil, errBadCredentials
		}
		return nil, nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, nil, errBadCredentials
	}

	now := time.Now().UTC()
	if err := s.Repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, err
	}
	user.LastLogin = now

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, "user_logged_in", user.ID)
	l.Info("login_success", "user_id", user.ID)
	return user, pair, nil
}

// Refresh spends a refresh token and returns a new pair. It satisfies the
// auth middleware's Refresher.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token subject", apperr.ErrUnauthorized)
	}
	user, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", apperr.ErrUnauthorized)
		}
		return nil, err
	}

	pair, next, err := s.sign(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefresh(ctx, claims.ID, tokens.Sha256Hex(refreshToken), next); err != nil {
		logging.FromContext(ctx).Warn("refresh_failed", "user_id", user.ID, "error", err)
		return nil, err
	}
	return pair, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefresh(ctx, tokens.Sha256Hex(refreshToken))
}

func (s *Service) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.Repo.UserByID(ctx, id)
}

func (s *Service) issue(ctx context.Context, user *models.User) (*tokens.Pair, error) {
	pair, rt, err := s.sign(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveRefresh(ctx, rt); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *Service) sign(user *models.User) (*tokens.Pair, *models.RefreshToken, error) {
	now := time.Now().UTC()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	access, err := tokens.SignAccess(tokens.AccessClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}, s.AccessSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}

	jti := uuid.NewString()
	refresh, err := tokens.SignRefresh(tokens.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}, s.RefreshSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	pair := &tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}
	rt := &models.RefreshToken{
		TokenHash: tokens.Sha256Hex(refresh),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp,
	}
	return pair, rt, nil
}

func (s *Service) publish(ctx context.Context, kind string, userID uuid.UUID) {
	if s.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ev := events.UserEvent{Type: kind, UserID: userID, At: time.Now().UTC()}
	if err := s.Events.Publish(pctx, events.TopicUsers, userID.String(), ev); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", events.TopicUsers, "error", err)
	}
}
