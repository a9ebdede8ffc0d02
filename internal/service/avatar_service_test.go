package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestJPEG creates a valid solid-colour JPEG image
func createTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(width, height), &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(width, height)))
	return buf.Bytes()
}

func solidImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	return img
}

func setupAvatarService() (*AvatarService, *testutil.MockObjectRepository, *testutil.MockUserRepository, *testutil.MockPublisher, uuid.UUID) {
	store := testutil.NewMockObjectRepository()
	userRepo := testutil.NewMockUserRepository()
	publisher := testutil.NewMockPublisher()
	userID := uuid.New()
	userRepo.AddUser(&domain.User{ID: userID, FullName: "Asha Perera", Email: "asha@example.com"})
	return NewAvatarService(store, userRepo, publisher), store, userRepo, publisher, userID
}

func TestAvatarService_ValidateImage(t *testing.T) {
	svc, _, _, _, _ := setupAvatarService()

	tests := []struct {
		name     string
		data     []byte
		filename string
		wantErr  error
	}{
		{"valid jpeg", createTestJPEG(t, 100, 100), "me.jpg", nil},
		{"valid png", createTestPNG(t, 60, 80), "me.PNG", nil},
		{"unsupported extension", createTestJPEG(t, 100, 100), "me.gif", ErrInvalidFormat},
		{"too small", createTestJPEG(t, 40, 100), "me.jpg", ErrImageTooSmall},
		{"not an image", []byte("definitely not a jpeg"), "me.jpg", ErrInvalidImageData},
		{"too large", make([]byte, MaxImageSize+1), "me.jpg", ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidateImage(tt.data, tt.filename)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAvatarService_Upload(t *testing.T) {
	svc, store, _, publisher, userID := setupAvatarService()

	user, err := svc.Upload(context.Background(), userID, createTestJPEG(t, 400, 300), "me.jpg")
	require.NoError(t, err)

	require.NotNil(t, user.AvatarKey)
	key := *user.AvatarKey
	assert.True(t, strings.HasPrefix(key, userID.String()+"/avatars/"))
	assert.True(t, strings.HasSuffix(key, "_thumb.jpg"))
	require.NotNil(t, user.AvatarURL)
	assert.Contains(t, *user.AvatarURL, key)
	assert.Equal(t, "image/jpeg", store.ContentTypes[key])

	thumb, _, err := image.Decode(bytes.NewReader(store.Objects[key]))
	require.NoError(t, err)
	assert.Equal(t, AvatarSize, thumb.Bounds().Dx())
	assert.Equal(t, AvatarSize, thumb.Bounds().Dy())

	assert.Equal(t, []string{"profile.updated"}, publisher.Types())
}

func TestAvatarService_UploadReplacesPrevious(t *testing.T) {
	svc, store, _, _, userID := setupAvatarService()

	first, err := svc.Upload(context.Background(), userID, createTestJPEG(t, 100, 100), "a.jpg")
	require.NoError(t, err)
	firstKey := *first.AvatarKey

	second, err := svc.Upload(context.Background(), userID, createTestPNG(t, 100, 100), "b.png")
	require.NoError(t, err)

	assert.NotEqual(t, firstKey, *second.AvatarKey)
	assert.NotContains(t, store.Objects, firstKey)
	assert.Len(t, store.Objects, 1)
}

func TestAvatarService_Disabled(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	svc := NewAvatarService(nil, userRepo, nil)

	assert.False(t, svc.IsEnabled())
	_, err := svc.Upload(context.Background(), uuid.New(), createTestJPEG(t, 100, 100), "me.jpg")
	assert.ErrorIs(t, err, ErrStorageNotConfigured)

	key := "some/key.jpg"
	user := &domain.User{AvatarKey: &key}
	svc.Decorate(context.Background(), user)
	assert.Nil(t, user.AvatarURL)

	var nilSvc *AvatarService
	nilSvc.Decorate(context.Background(), user)
	assert.False(t, nilSvc.IsEnabled())
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", GetContentType("photo.JPEG"))
	assert.Equal(t, "image/png", GetContentType("photo.png"))
	assert.Equal(t, "application/octet-stream", GetContentType("photo.webp"))
}
