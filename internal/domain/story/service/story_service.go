package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"neosixty/internal/domain/story/model"
	"neosixty/internal/domain/story/repository"
	usermodel "neosixty/internal/domain/user/model"
	"neosixty/internal/pkg/config"
	"neosixty/pkg/cache"
	"neosixty/pkg/errs"
	"neosixty/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserDirectory story 模块对用户模块的依赖面
type UserDirectory interface {
	GetUser(id string) (*usermodel.User, error)
	GetSettings() (*usermodel.AdminSettings, error)
}

// CreateStoryInput 发故事参数
type CreateStoryInput struct {
	MediaURL   string `json:"mediaUrl"`
	MediaType  string `json:"mediaType"`
	Caption    string `json:"caption"`
	Background string `json:"background"`
}

// AuthorStories 按作者聚合的活跃故事
type AuthorStories struct {
	AuthorID       string        `json:"authorId"`
	AuthorName     string        `json:"authorName"`
	AuthorUsername string        `json:"authorUsername"`
	AuthorAvatar   string        `json:"authorAvatar"`
	Stories        []model.Story `json:"stories"`
}

// StoryService 故事服务接口
type StoryService interface {
	CreateStory(authorID string, input CreateStoryInput) (*model.Story, error)
	// ListActive 活跃故事按作者聚合（时间线顶部的故事栏）
	ListActive() ([]AuthorStories, error)
	ListByAuthor(authorID string) ([]model.Story, error)
	// ViewStory 记录观看，同一用户重复看只计一次
	ViewStory(storyID, viewerID string) (*model.Story, error)
	DeleteStory(actorID, actorRole, storyID string) error
	// PurgeExpired 后台清理过期故事
	PurgeExpired() (int64, error)
}

type storyService struct {
	repo  repository.StoryRepository
	users UserDirectory
	cache cache.CacheService
	now   func() time.Time
}

func NewStoryService(repo repository.StoryRepository, users UserDirectory, c cache.CacheService) StoryService {
	return &storyService{repo: repo, users: users, cache: c, now: time.Now}
}

func storyTTL() time.Duration {
	hours := config.GlobalConfig.App.StoryTTLHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// CreateStory 发故事，过期时间写入时固定
func (s *storyService) CreateStory(authorID string, input CreateStoryInput) (*model.Story, error) {
	settings, err := s.users.GetSettings()
	if err != nil {
		return nil, err
	}
	if !settings.AllowStories {
		return nil, errs.Forbiddenf("stories are currently disabled")
	}

	mediaType := input.MediaType
	if mediaType == "" {
		mediaType = model.MediaImage
	}
	if !model.IsValidMediaType(mediaType) {
		return nil, errs.Validationf("unknown media type %q", mediaType)
	}
	if mediaType == model.MediaText {
		if strings.TrimSpace(input.Caption) == "" {
			return nil, errs.Validationf("text story requires a caption")
		}
	} else if input.MediaURL == "" {
		return nil, errs.Validationf("media story requires a media url")
	}

	author, err := s.users.GetUser(authorID)
	if err != nil {
		return nil, err
	}
	if !author.IsActive {
		return nil, errs.Forbiddenf("account is disabled")
	}

	story := &model.Story{
		AuthorID:       author.ID,
		AuthorName:     author.Name,
		AuthorUsername: author.Username,
		AuthorAvatar:   author.AvatarURL,
		AuthorVersion:  author.ProfileVersion,
		MediaURL:       input.MediaURL,
		MediaType:      mediaType,
		Caption:        html.EscapeString(input.Caption),
		Background:     input.Background,
		ExpiresAt:      s.now().Add(storyTTL()),
	}

	if err := s.repo.Create(story); err != nil {
		return nil, err
	}
	return story, nil
}

// ListActive 按作者聚合，作者顺序按最新故事排
func (s *storyService) ListActive() ([]AuthorStories, error) {
	stories, err := s.repo.ListActive(s.now())
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*AuthorStories)
	order := make([]string, 0)
	for _, story := range stories {
		g, ok := grouped[story.AuthorID]
		if !ok {
			g = &AuthorStories{
				AuthorID:       story.AuthorID,
				AuthorName:     story.AuthorName,
				AuthorUsername: story.AuthorUsername,
				AuthorAvatar:   story.AuthorAvatar,
			}
			grouped[story.AuthorID] = g
			order = append(order, story.AuthorID)
		}
		g.Stories = append(g.Stories, story)
	}

	result := make([]AuthorStories, 0, len(order))
	for _, authorID := range order {
		result = append(result, *grouped[authorID])
	}
	return result, nil
}

func (s *storyService) ListByAuthor(authorID string) ([]model.Story, error) {
	return s.repo.ListActiveByAuthor(authorID, s.now())
}

// ViewStory 观看计数去重：Redis SetNX 做"已看过"标记，TTL 跟着故事走
func (s *storyService) ViewStory(storyID, viewerID string) (*model.Story, error) {
	story, err := s.repo.GetByID(storyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("story %s", storyID)
		}
		return nil, err
	}

	now := s.now()
	if story.IsExpired(now) {
		return nil, errs.NotFoundf("story %s", storyID)
	}

	// 作者看自己不计数
	if viewerID == story.AuthorID {
		return story, nil
	}

	seenKey := fmt.Sprintf("story:seen:%s:%s", storyID, viewerID)
	first, err := s.cache.SetNX(context.Background(), seenKey, 1, story.ExpiresAt.Sub(now))
	if err != nil {
		// Redis 不可用时放弃去重但不挡读
		logger.Log.Warn("Story view dedup unavailable", zap.Error(err))
		return story, nil
	}
	if first {
		if err := s.repo.IncrementViewCount(storyID); err != nil {
			return nil, err
		}
		story.ViewCount++
	}
	return story, nil
}

// DeleteStory 作者本人或版主/管理员可删，不存在时静默成功
func (s *storyService) DeleteStory(actorID, actorRole, storyID string) error {
	story, err := s.repo.GetByID(storyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	isModerator := actorRole == usermodel.RoleModerator || actorRole == usermodel.RoleAdmin
	if story.AuthorID != actorID && !isModerator {
		return errs.Forbiddenf("only the author or a moderator can delete this story")
	}

	_, err = s.repo.Delete(storyID)
	return err
}

// PurgeExpired 物理清理过期故事
func (s *storyService) PurgeExpired() (int64, error) {
	purged, err := s.repo.DeleteExpired(s.now())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		logger.Log.Info("Expired stories purged", zap.Int64("count", purged))
	}
	return purged, nil
}
