package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/internal/storage"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
	"github.com/wikifun/wikifun/backend/go-services/pkg/metrics"
)

const avatarContentType = "image/jpeg"

// AvatarKey is the deterministic blob key of a user's avatar.
func AvatarKey(username string) string { return username + AvatarSuffix }

// UpdateAvatar replaces the user's avatar and records it in pfp_filename.
// The new blob is written with a must-not-exist precondition, so two
// concurrent uploads cannot silently interleave: the loser gets ErrAvatarConflict.
func (s *Service) UpdateAvatar(ctx context.Context, username string, data []byte) (*models.AccountDocument, error) {
	if _, err := s.GetAccount(ctx, username); err != nil {
		return nil, err
	}
	objects := s.docs.Objects()
	key := AvatarKey(username)

	exists, err := objects.Exists(ctx, key)
	if err != nil {
		metrics.AvatarUploads.WithLabelValues("error").Inc()
		return nil, err
	}
	if exists {
		if err := objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Warnf("accounts: deleting old avatar %s: %v", key, err)
		}
	}

	if _, err := objects.Put(ctx, key, data, storage.PutOptions{ContentType: avatarContentType, IfNoneMatch: true}); err != nil {
		if errors.Is(err, storage.ErrPreconditionFailed) {
			metrics.AvatarUploads.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("%w: %s", ErrAvatarConflict, key)
		}
		metrics.AvatarUploads.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.AvatarUploads.WithLabelValues("ok").Inc()

	return s.update(ctx, username, func(doc *models.AccountDocument) {
		name := key
		doc.PfpFilename = &name
	})
}

// GetAvatar returns the avatar blob; ErrImageNotFound when none was uploaded.
func (s *Service) GetAvatar(ctx context.Context, username string) (*storage.Object, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	obj, err := s.docs.Objects().Get(ctx, AvatarKey(username))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, AvatarKey(username))
	}
	return obj, err
}
