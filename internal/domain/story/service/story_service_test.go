package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"neosixty/internal/domain/story/model"
	usermodel "neosixty/internal/domain/user/model"
	"neosixty/internal/pkg/worker"
	"neosixty/pkg/cache"
	"neosixty/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type mockStoryRepository struct {
	mock.Mock
}

func (m *mockStoryRepository) Create(story *model.Story) error {
	return m.Called(story).Error(0)
}

func (m *mockStoryRepository) GetByID(id string) (*model.Story, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Story), args.Error(1)
}

func (m *mockStoryRepository) ListActive(now time.Time) ([]model.Story, error) {
	args := m.Called(now)
	return args.Get(0).([]model.Story), args.Error(1)
}

func (m *mockStoryRepository) ListActiveByAuthor(authorID string, now time.Time) ([]model.Story, error) {
	args := m.Called(authorID, now)
	return args.Get(0).([]model.Story), args.Error(1)
}

func (m *mockStoryRepository) Delete(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *mockStoryRepository) IncrementViewCount(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockStoryRepository) DeleteExpired(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStoryRepository) UpdateAuthorSnapshot(snapshot worker.AuthorSnapshot) error {
	return m.Called(snapshot).Error(0)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetUser(id string) (*usermodel.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usermodel.User), args.Error(1)
}

func (m *mockUserDirectory) GetSettings() (*usermodel.AdminSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usermodel.AdminSettings), args.Error(1)
}

// memoryCache 内存实现，只为验证 SetNX 去重语义
type memoryCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemoryCache() *memoryCache {
	return &memoryCache{keys: make(map[string]struct{})}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	return cache.ErrCacheMiss
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error { return nil }

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func (c *memoryCache) InvalidatePattern(ctx context.Context, pattern string) error { return nil }

func (c *memoryCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func newTestStoryService(repo *mockStoryRepository, users *mockUserDirectory, now time.Time) *storyService {
	return &storyService{
		repo:  repo,
		users: users,
		cache: newMemoryCache(),
		now:   func() time.Time { return now },
	}
}

func storySettings() *usermodel.AdminSettings {
	return &usermodel.AdminSettings{AllowStories: true}
}

func activeStory(id, authorID string, expiresAt time.Time) *model.Story {
	story := &model.Story{AuthorID: authorID, MediaURL: "https://cdn/img.jpg", MediaType: model.MediaImage, ExpiresAt: expiresAt}
	story.ID = id
	return story
}

func TestCreateStory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expiry is fixed at creation", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		users.On("GetSettings").Return(storySettings(), nil)
		author := &usermodel.User{Name: "Alice", Username: "alice", IsActive: true}
		author.ID = "alice"
		users.On("GetUser", "alice").Return(author, nil)
		repo.On("Create", mock.AnythingOfType("*model.Story")).Return(nil)

		svc := newTestStoryService(repo, users, now)
		story, err := svc.CreateStory("alice", CreateStoryInput{MediaURL: "https://cdn/img.jpg"})

		assert.NoError(t, err)
		assert.Equal(t, now.Add(24*time.Hour), story.ExpiresAt)
		assert.Equal(t, "Alice", story.AuthorName)
	})

	t.Run("text story needs a caption", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		users.On("GetSettings").Return(storySettings(), nil)

		svc := newTestStoryService(repo, users, now)
		_, err := svc.CreateStory("alice", CreateStoryInput{MediaType: model.MediaText})

		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("stories disabled globally", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		users.On("GetSettings").Return(&usermodel.AdminSettings{AllowStories: false}, nil)

		svc := newTestStoryService(repo, users, now)
		_, err := svc.CreateStory("alice", CreateStoryInput{MediaURL: "https://cdn/img.jpg"})

		assert.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestViewStory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("repeat views count once", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		repo.On("GetByID", "story-1").Return(activeStory("story-1", "alice", now.Add(time.Hour)), nil)
		repo.On("IncrementViewCount", "story-1").Return(nil).Once()

		svc := newTestStoryService(repo, users, now)
		_, err := svc.ViewStory("story-1", "bob")
		assert.NoError(t, err)
		_, err = svc.ViewStory("story-1", "bob")
		assert.NoError(t, err)

		repo.AssertNumberOfCalls(t, "IncrementViewCount", 1)
	})

	t.Run("author viewing own story is not counted", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		repo.On("GetByID", "story-1").Return(activeStory("story-1", "alice", now.Add(time.Hour)), nil)

		svc := newTestStoryService(repo, users, now)
		_, err := svc.ViewStory("story-1", "alice")

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "IncrementViewCount", mock.Anything)
	})

	t.Run("expired story reads as missing", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		repo.On("GetByID", "story-1").Return(activeStory("story-1", "alice", now.Add(-time.Minute)), nil)

		svc := newTestStoryService(repo, users, now)
		_, err := svc.ViewStory("story-1", "bob")

		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestListActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stories group by author in feed order", func(t *testing.T) {
		stories := []model.Story{
			*activeStory("s1", "alice", now.Add(time.Hour)),
			*activeStory("s2", "bob", now.Add(time.Hour)),
			*activeStory("s3", "alice", now.Add(time.Hour)),
		}
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		repo.On("ListActive", now).Return(stories, nil)

		svc := newTestStoryService(repo, users, now)
		grouped, err := svc.ListActive()

		assert.NoError(t, err)
		assert.Len(t, grouped, 2)
		assert.Equal(t, "alice", grouped[0].AuthorID)
		assert.Len(t, grouped[0].Stories, 2)
		assert.Equal(t, "bob", grouped[1].AuthorID)
	})
}

func TestDeleteStory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing story deletes silently", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		repo.On("GetByID", "story-9").Return(nil, gorm.ErrRecordNotFound)

		svc := newTestStoryService(repo, users, now)
		assert.NoError(t, svc.DeleteStory("alice", usermodel.RoleUser, "story-9"))
		repo.AssertNotCalled(t, "Delete", mock.Anything)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		repo.On("GetByID", "story-1").Return(activeStory("story-1", "alice", now.Add(time.Hour)), nil)

		svc := newTestStoryService(repo, users, now)
		err := svc.DeleteStory("mallory", usermodel.RoleUser, "story-1")

		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("moderator can delete", func(t *testing.T) {
		repo := new(mockStoryRepository)
		users := new(mockUserDirectory)
		repo.On("GetByID", "story-1").Return(activeStory("story-1", "alice", now.Add(time.Hour)), nil)
		repo.On("Delete", "story-1").Return(true, nil)

		svc := newTestStoryService(repo, users, now)
		assert.NoError(t, svc.DeleteStory("mod", usermodel.RoleModerator, "story-1"))
	})
}
