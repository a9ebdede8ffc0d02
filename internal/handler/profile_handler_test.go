package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/repository/storage"
	"github.com/planpocket/planpocket/planpocket-backend/internal/service"
	"github.com/planpocket/planpocket/planpocket-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type profileFixture struct {
	handler  *ProfileHandler
	userRepo *testutil.MockUserRepository
	store    *testutil.MockObjectRepository
	userID   uuid.UUID
}

func setupProfileHandler(t *testing.T, withStorage bool) profileFixture {
	t.Helper()
	userRepo := testutil.NewMockUserRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	loanRepo := testutil.NewMockLoanRepository()

	var store *testutil.MockObjectRepository
	var objects storage.ObjectRepository
	if withStorage {
		store = testutil.NewMockObjectRepository()
		objects = store
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	userID := uuid.New()
	userRepo.AddUser(&domain.User{ID: userID, FullName: "Asha Perera", Email: "asha@example.com", PasswordHash: string(hash)})

	avatars := service.NewAvatarService(objects, userRepo, nil)
	handler := NewProfileHandler(
		service.NewProfileService(userRepo, avatars, nil),
		avatars,
		service.NewSummaryService(userRepo, transactionRepo, loanRepo),
	)
	return profileFixture{handler: handler, userRepo: userRepo, store: store, userID: userID}
}

func avatarUploadContext(t *testing.T, filename string, data []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/user/avatar", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestUpdateProfileHandler(t *testing.T) {
	f := setupProfileHandler(t, false)

	c, rec := newJSONContext(http.MethodPut, "/api/v1/auth/profile", `{"fullName":"Asha P.","address":"12 Lake Rd"}`)
	withUser(c, f.userID)
	require.NoError(t, f.handler.UpdateProfile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "Asha P.", user.FullName)
	require.NotNil(t, user.Address)
	assert.Equal(t, "12 Lake Rd", *user.Address)

	c, rec = newJSONContext(http.MethodPut, "/api/v1/auth/profile", `{"fullName":"A"}`)
	withUser(c, f.userID)
	require.NoError(t, f.handler.UpdateProfile(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fullName", decodeProblem(t, rec).Errors[0].Field)
}

func TestChangePasswordHandler(t *testing.T) {
	f := setupProfileHandler(t, false)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"missing fields", `{"currentPassword":"secret1"}`, http.StatusBadRequest, "currentPassword"},
		{"wrong current password", `{"currentPassword":"nope","newPassword":"new-secret"}`, http.StatusBadRequest, "currentPassword"},
		{"short new password", `{"currentPassword":"secret1","newPassword":"123"}`, http.StatusBadRequest, "password"},
		{"success", `{"currentPassword":"secret1","newPassword":"new-secret"}`, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newJSONContext(http.MethodPut, "/api/v1/auth/change-password", tt.body)
			withUser(c, f.userID)
			require.NoError(t, f.handler.ChangePassword(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, decodeProblem(t, rec).Errors[0].Field)
			}
		})
	}

	stored := f.userRepo.ByID[f.userID].PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("new-secret")))
}

func TestUpdateIncomeHandler(t *testing.T) {
	f := setupProfileHandler(t, false)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing", `{}`, http.StatusBadRequest},
		{"not a number", `{"annualIncome":"lots"}`, http.StatusBadRequest},
		{"negative", `{"annualIncome":-5}`, http.StatusBadRequest},
		{"number", `{"annualIncome":1200000}`, http.StatusOK},
		{"string", `{"annualIncome":"600000.50"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newJSONContext(http.MethodPut, "/api/v1/user/income", tt.body)
			withUser(c, f.userID)
			require.NoError(t, f.handler.UpdateIncome(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.True(t, f.userRepo.ByID[f.userID].MonthlyIncome.Equal(decimal.NewFromInt(50000)))
}

func TestGetDashboardHandler(t *testing.T) {
	f := setupProfileHandler(t, false)

	c, rec := newJSONContext(http.MethodGet, "/api/v1/user/dashboard", "")
	withUser(c, f.userID)
	require.NoError(t, f.handler.GetDashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics domain.DashboardMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, 30, metrics.WindowDays)
	assert.True(t, metrics.Income.IsZero())
	assert.True(t, metrics.SavingsRate.IsZero())
}

func TestUploadAvatarHandler(t *testing.T) {
	t.Run("storage disabled", func(t *testing.T) {
		f := setupProfileHandler(t, false)
		c, rec := avatarUploadContext(t, "me.jpg", testJPEG(t, 100, 100))
		withUser(c, f.userID)
		require.NoError(t, f.handler.UploadAvatar(c))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("no file", func(t *testing.T) {
		f := setupProfileHandler(t, true)
		c, rec := newJSONContext(http.MethodPut, "/api/v1/user/avatar", "")
		withUser(c, f.userID)
		require.NoError(t, f.handler.UploadAvatar(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		f := setupProfileHandler(t, true)
		c, rec := avatarUploadContext(t, "me.gif", testJPEG(t, 100, 100))
		withUser(c, f.userID)
		require.NoError(t, f.handler.UploadAvatar(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file", decodeProblem(t, rec).Errors[0].Field)
	})

	t.Run("success", func(t *testing.T) {
		f := setupProfileHandler(t, true)
		c, rec := avatarUploadContext(t, "me.jpg", testJPEG(t, 300, 200))
		withUser(c, f.userID)
		require.NoError(t, f.handler.UploadAvatar(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var user domain.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		require.NotNil(t, user.AvatarURL)
		assert.Contains(t, *user.AvatarURL, "https://storage.test/")
		assert.Len(t, f.store.Objects, 1)
	})
}
