package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/repository/storage"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

const (
	MaxImageSize    = 5 * 1024 * 1024 // 5MB
	MinImageWidth   = 50
	MinImageHeight  = 50
	AvatarSize      = 256
	JPEGQuality     = 85
	avatarURLExpiry = time.Hour
)

var (
	ErrImageTooLarge        = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidFormat        = errors.New("invalid format. Supported: JPEG, PNG")
	ErrImageTooSmall        = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidImageData     = errors.New("invalid image data")
	ErrStorageNotConfigured = domain.ErrStorageUnavailable
)

// AllowedExtensions maps extensions to content types
var AllowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// AvatarService resizes profile pictures and keeps them in object storage
type AvatarService struct {
	storage   storage.ObjectRepository
	userRepo  domain.UserRepository
	publisher websocket.EventPublisher
	urlExpiry time.Duration
}

// NewAvatarService creates a new AvatarService. A nil store disables uploads.
func NewAvatarService(store storage.ObjectRepository, userRepo domain.UserRepository, publisher websocket.EventPublisher) *AvatarService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &AvatarService{
		storage:   store,
		userRepo:  userRepo,
		publisher: publisher,
		urlExpiry: avatarURLExpiry,
	}
}

// IsEnabled indicates whether uploads are supported (storage configured).
func (s *AvatarService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// ValidateImage validates image format and size
func (s *AvatarService) ValidateImage(data []byte, filename string) error {
	_, err := s.validateAndDecode(data, filename)
	return err
}

func (s *AvatarService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return nil, ErrInvalidFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidImageData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinImageWidth || bounds.Dy() < MinImageHeight {
		return nil, ErrImageTooSmall
	}

	return img, nil
}

// Upload crops the image to a centered square thumbnail, stores it and
// points the user's avatar at it. The previous avatar is removed.
func (s *AvatarService) Upload(ctx context.Context, userID uuid.UUID, data []byte, filename string) (*domain.User, error) {
	if !s.IsEnabled() {
		return nil, ErrStorageNotConfigured
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var previousKey string
	if user.AvatarKey != nil {
		previousKey = *user.AvatarKey
	}

	thumb := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	key := storage.ObjectKey(userID, storage.KindAvatar, "thumb", ".jpg")
	if _, err := s.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	updated, err := s.userRepo.UpdateAvatar(ctx, userID, &key)
	if err != nil {
		// Best-effort cleanup of the orphaned object
		_ = s.storage.Delete(ctx, key)
		return nil, err
	}

	if previousKey != "" && previousKey != key {
		if err := s.storage.Delete(ctx, previousKey); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to delete previous avatar")
		}
	}

	s.Decorate(ctx, updated)
	s.publisher.Publish(userID, websocket.ProfileUpdated(updated))
	return updated, nil
}

// Decorate fills user.AvatarURL with a temporary download URL. It is a no-op
// without storage or without an avatar.
func (s *AvatarService) Decorate(ctx context.Context, user *domain.User) {
	if !s.IsEnabled() || user == nil || user.AvatarKey == nil {
		return
	}
	url, err := s.storage.PresignGet(ctx, *user.AvatarKey, s.urlExpiry)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to presign avatar URL")
		return
	}
	user.AvatarURL = &url
}

// GetContentType returns the content type for a file extension
func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := AllowedExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
