package auth_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*models.User), args.Error(1)
}

func (m *MockUserRepository) UserExists(ctx context.Context, email, username string) (bool, error) {
	args := m.Called(ctx, email, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*models.User), args.Error(1)
}

func newService() (*auth.Service, *MockUserRepository) {
	repo := new(MockUserRepository)
	svc := auth.NewService(repo, config.JWTConfig{
		Secret:    []byte("test-secret"),
		ExpiresIn: time.Hour,
	})
	return svc, repo
}

func TestRegister_Success(t *testing.T) {
	svc, repo := newService()
	req := &models.RegisterRequest{Username: " alice ", Email: "alice@example.com", Password: "password123"}

	repo.On("UserExists", mock.Anything, "alice@example.com", "alice").Return(false, nil)
	repo.On("CreateUser", mock.Anything, req).Return(&models.User{ID: 7, Username: "alice", Email: "alice@example.com"}, nil)

	resp, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 7, resp.User.ID)

	userID, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, 7, userID)

	repo.AssertExpectations(t)
}

func TestRegister_UserAlreadyExists(t *testing.T) {
	svc, repo := newService()
	repo.On("UserExists", mock.Anything, "bob@example.com", "bob").Return(true, nil)

	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, auth.ErrUserExists)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing password", models.RegisterRequest{Username: "carol", Email: "carol@example.com"}},
		{"bad email", models.RegisterRequest{Username: "carol", Email: "carol", Password: "password123"}},
		{"short password", models.RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "short"}},
		{"short username", models.RegisterRequest{Username: "cc", Email: "carol@example.com", Password: "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newService()
			_, err := svc.Register(context.Background(), &tt.req)
			assert.ErrorIs(t, err, auth.ErrInvalidInput)
			repo.AssertExpectations(t)
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, repo := newService()
	repo.On("GetUserByEmail", mock.Anything, "dana@example.com").
		Return(&models.User{ID: 3, Email: "dana@example.com", PasswordHash: string(hash)}, nil)
	repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, database.ErrNotFound)

	resp, err := svc.Login(context.Background(), &models.LoginRequest{Email: "dana@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Empty(t, resp.User.PasswordHash)

	_, err = svc.Login(context.Background(), &models.LoginRequest{Email: "dana@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &models.LoginRequest{Email: "ghost@example.com", Password: "password123"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestValidateToken_RejectsForeignSecret(t *testing.T) {
	svc, _ := newService()
	other := auth.NewService(new(MockUserRepository), config.JWTConfig{Secret: []byte("other"), ExpiresIn: time.Hour})

	token, err := other.GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	repo := new(MockUserRepository)
	svc := auth.NewService(repo, config.JWTConfig{Secret: []byte("test-secret"), ExpiresIn: -time.Minute})

	token, err := svc.GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticate(t *testing.T) {
	svc, repo := newService()
	repo.On("GetUserByID", mock.Anything, 5).Return(&models.User{ID: 5, Username: "eve"}, nil)

	token, err := svc.GenerateToken(&models.User{ID: 5})
	require.NoError(t, err)

	bearer := httptest.NewRequest("GET", "/api/auth/me", nil)
	bearer.Header.Set("Authorization", "Bearer "+token)
	user, err := svc.Authenticate(bearer)
	require.NoError(t, err)
	assert.Equal(t, "eve", user.Username)

	query := httptest.NewRequest("GET", "/ws?token="+token, nil)
	user, err = svc.Authenticate(query)
	require.NoError(t, err)
	assert.Equal(t, 5, user.ID)

	_, err = svc.Authenticate(httptest.NewRequest("GET", "/ws", nil))
	assert.ErrorIs(t, err, auth.ErrMissingToken)
}
