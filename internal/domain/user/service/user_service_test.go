package service

import (
	"testing"

	"neosixty/internal/domain/user/model"
	"neosixty/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// mockUserRepository 仓库 mock
type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(user *model.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepository) GetByID(id string) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(username string) (*model.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepository) GetByIdentifier(phoneOrEmail string) (*model.User, error) {
	args := m.Called(phoneOrEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepository) GetList(offset, limit int) ([]model.User, int64, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *mockUserRepository) Update(user *model.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepository) Delete(user *model.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepository) AdjustFollowerCount(userID string, delta int64) (int64, error) {
	args := m.Called(userID, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepository) AdjustFollowingCount(userID string, delta int64) error {
	return m.Called(userID, delta).Error(0)
}

func (m *mockUserRepository) SetVerified(userID string, verified bool) error {
	return m.Called(userID, verified).Error(0)
}

func (m *mockUserRepository) GetProfile(userID string) (*model.Profile, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *mockUserRepository) CreateProfile(profile *model.Profile) error {
	return m.Called(profile).Error(0)
}

func (m *mockUserRepository) SaveProfile(profile *model.Profile, expectedVersion int64) error {
	return m.Called(profile, expectedVersion).Error(0)
}

func (m *mockUserRepository) GetSettings() (*model.AdminSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminSettings), args.Error(1)
}

func (m *mockUserRepository) SaveSettings(settings *model.AdminSettings) error {
	return m.Called(settings).Error(0)
}

func defaultSettings() *model.AdminSettings {
	return &model.AdminSettings{
		ID:                  1,
		AllowRegistration:   true,
		AllowPosts:          true,
		AllowStories:        true,
		AllowComments:       true,
		AllowReactions:      true,
		MonetizationEnabled: true,
		MinimumWithdrawal:   30,
		AdRevenueShare:      70,
	}
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "567890", deriveUsername("+8801234567890"))
	assert.Equal(t, "il.com", deriveUsername("user@mail.com"))
	assert.Equal(t, "abc", deriveUsername("a@bc"))
}

func TestRegister(t *testing.T) {
	t.Run("creates user with derived username", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("GetSettings").Return(defaultSettings(), nil)
		repo.On("GetByIdentifier", "01712345678").Return(nil, gorm.ErrRecordNotFound)
		repo.On("Create", mock.AnythingOfType("*model.User")).Return(nil).Run(func(args mock.Arguments) {
			args.Get(0).(*model.User).ID = "new-id"
		})

		svc := NewUserService(repo, nil)
		token, user, err := svc.Register("Rahim", "01712345678", "secret123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "345678", user.Username)
		assert.Equal(t, "01712345678", user.PhoneNumber)
		assert.Empty(t, user.Email)
		assert.Equal(t, model.RoleUser, user.Role)
		// 密码不落明文
		assert.NotEqual(t, "secret123", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
		repo.AssertExpectations(t)
	})

	t.Run("rejects duplicate identifier", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("GetSettings").Return(defaultSettings(), nil)
		repo.On("GetByIdentifier", "user@mail.com").Return(&model.User{}, nil)

		svc := NewUserService(repo, nil)
		_, _, err := svc.Register("Rahim", "user@mail.com", "secret123")

		assert.ErrorIs(t, err, errs.ErrConflict)
	})

	t.Run("blocked when registration disabled", func(t *testing.T) {
		settings := defaultSettings()
		settings.AllowRegistration = false
		repo := new(mockUserRepository)
		repo.On("GetSettings").Return(settings, nil)

		svc := NewUserService(repo, nil)
		_, _, err := svc.Register("Rahim", "01712345678", "secret123")

		assert.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestAdjustFollowerCount(t *testing.T) {
	t.Run("verifies user at threshold", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("AdjustFollowerCount", "u1", int64(1)).Return(int64(1000), nil)
		repo.On("GetByID", "u1").Return(&model.User{FollowerCount: 999, IsVerified: false}, nil)
		repo.On("SetVerified", "u1", true).Return(nil)

		svc := NewUserService(repo, nil)
		user, err := svc.AdjustFollowerCount("u1", true)

		assert.NoError(t, err)
		assert.True(t, user.IsVerified)
		assert.Equal(t, int64(1000), user.FollowerCount)
		repo.AssertExpectations(t)
	})

	t.Run("below threshold stays unverified", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("AdjustFollowerCount", "u1", int64(1)).Return(int64(999), nil)
		repo.On("GetByID", "u1").Return(&model.User{FollowerCount: 998, IsVerified: false}, nil)

		svc := NewUserService(repo, nil)
		user, err := svc.AdjustFollowerCount("u1", true)

		assert.NoError(t, err)
		assert.False(t, user.IsVerified)
		repo.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
	})

	t.Run("verification is sticky on unfollow", func(t *testing.T) {
		// 掉回阈值以下不会自动取消加 V
		repo := new(mockUserRepository)
		repo.On("AdjustFollowerCount", "u1", int64(-1)).Return(int64(999), nil)
		repo.On("GetByID", "u1").Return(&model.User{FollowerCount: 1000, IsVerified: true}, nil)

		svc := NewUserService(repo, nil)
		user, err := svc.AdjustFollowerCount("u1", false)

		assert.NoError(t, err)
		assert.True(t, user.IsVerified)
		repo.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("patch keeps untouched fields", func(t *testing.T) {
		existing := &model.Profile{
			UserID:   "u1",
			Bio:      "old bio",
			Location: "Dhaka",
			Version:  3,
		}
		existing.ID = "p1"

		repo := new(mockUserRepository)
		repo.On("GetProfile", "u1").Return(existing, nil)
		repo.On("SaveProfile", mock.AnythingOfType("*model.Profile"), int64(3)).Return(nil)

		svc := NewUserService(repo, nil)
		profile, err := svc.UpdateProfile("u1", ProfilePatch{Bio: "new bio"}, 3)

		assert.NoError(t, err)
		assert.Equal(t, "new bio", profile.Bio)
		assert.Equal(t, "Dhaka", profile.Location)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		existing := &model.Profile{UserID: "u1", Version: 5}
		existing.ID = "p1"

		repo := new(mockUserRepository)
		repo.On("GetProfile", "u1").Return(existing, nil)

		svc := NewUserService(repo, nil)
		_, err := svc.UpdateProfile("u1", ProfilePatch{Bio: "x"}, 3)

		assert.ErrorIs(t, err, errs.ErrConflict)
		repo.AssertNotCalled(t, "SaveProfile", mock.Anything, mock.Anything)
	})
}

func TestEnableProfessionalMode(t *testing.T) {
	t.Run("requires follower threshold", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("GetByID", "u1").Return(&model.User{FollowerCount: 10}, nil)

		svc := NewUserService(repo, nil)
		_, err := svc.EnableProfessionalMode("u1")

		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("enables monetization for eligible creator", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("GetByID", "u1").Return(&model.User{FollowerCount: 1500}, nil)
		repo.On("GetSettings").Return(defaultSettings(), nil)
		repo.On("Update", mock.AnythingOfType("*model.User")).Return(nil)

		svc := NewUserService(repo, nil)
		user, err := svc.EnableProfessionalMode("u1")

		assert.NoError(t, err)
		assert.True(t, user.IsProfessional)
		assert.True(t, user.MonetizationEnabled)
	})
}

func TestAdminGuards(t *testing.T) {
	t.Run("cannot delete yourself", func(t *testing.T) {
		repo := new(mockUserRepository)
		svc := NewUserService(repo, nil)

		err := svc.DeleteUser("admin-1", "admin-1")

		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("cannot change own role", func(t *testing.T) {
		repo := new(mockUserRepository)
		svc := NewUserService(repo, nil)

		err := svc.SetUserRole("admin-1", "admin-1", model.RoleUser)

		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		repo := new(mockUserRepository)
		svc := NewUserService(repo, nil)

		_, err := svc.CreateUser("x", "y@z.com", "secret123", "superuser")

		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}
