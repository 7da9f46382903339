package account

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/events"
	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/internal/repo"
	"github.com/prockx/storefront/internal/service/auth"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/pkg/logging"
)

var phoneRe = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

type Service struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.Repo.UserByID(ctx, id)
}

// UpdateProfile overwrites only the fields that were sent non-empty.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req transport.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Repo.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		if utf8.RuneCountInString(name) > 50 {
			return nil, fmt.Errorf("%w: name must be at most 50 characters", apperr.ErrInvalidRequest)
		}
		user.Name = name
	}
	if email := auth.NormalizeEmail(req.Email); email != "" && email != user.Email {
		if !auth.ValidEmail(email) {
			return nil, fmt.Errorf("%w: invalid email", apperr.ErrInvalidRequest)
		}
		taken, err := s.Repo.EmailTaken(ctx, email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: email already in use", apperr.ErrConflict)
		}
		user.Email = email
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		if !phoneRe.MatchString(phone) {
			return nil, fmt.Errorf("%w: invalid phone number", apperr.ErrInvalidRequest)
		}
		user.Phone = phone
	}
	if avatar := strings.TrimSpace(req.AvatarURL); avatar != "" {
		user.AvatarURL = avatar
	}

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Repo.ListUsers(ctx)
}

func (s *Service) DeleteUser(ctx context.Context, requester, target uuid.UUID) error {
	if requester == target {
		return fmt.Errorf("%w: cannot delete your own account", apperr.ErrInvalidRequest)
	}
	if err := s.Repo.DeleteUser(ctx, target); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("user_deleted", "user_id", target, "by", requester)
	if s.Events != nil {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		ev := events.UserEvent{Type: "user_deleted", UserID: target, At: time.Now().UTC()}
		if err := s.Events.Publish(pctx, events.TopicUsers, target.String(), ev); err != nil {
			logging.FromContext(ctx).Error("kafka_publish_error", "topic", events.TopicUsers, "error", err)
		}
	}
	return nil
}
