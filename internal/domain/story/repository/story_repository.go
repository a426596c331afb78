package repository

import (
	"time"

	"neosixty/internal/domain/story/model"
	"neosixty/internal/pkg/worker"

	"gorm.io/gorm"
)

// StoryRepository 故事存储
type StoryRepository interface {
	Create(story *model.Story) error
	GetByID(id string) (*model.Story, error)
	// ListActive 只返回未过期的故事
	ListActive(now time.Time) ([]model.Story, error)
	ListActiveByAuthor(authorID string, now time.Time) ([]model.Story, error)
	Delete(id string) (bool, error)
	IncrementViewCount(id string) error
	// DeleteExpired 物理清理过期故事，返回清理条数
	DeleteExpired(now time.Time) (int64, error)

	UpdateAuthorSnapshot(snapshot worker.AuthorSnapshot) error
}

type storyRepository struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(story *model.Story) error {
	return r.db.Create(story).Error
}

func (r *storyRepository) GetByID(id string) (*model.Story, error) {
	var story model.Story
	if err := r.db.Where("id = ?", id).First(&story).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

// ListActive 未过期的故事，按作者分组在服务层做
func (r *storyRepository) ListActive(now time.Time) ([]model.Story, error) {
	var stories []model.Story
	err := r.db.Where("expires_at > ?", now).
		Order("created_at desc").Find(&stories).Error
	return stories, err
}

func (r *storyRepository) ListActiveByAuthor(authorID string, now time.Time) ([]model.Story, error) {
	var stories []model.Story
	err := r.db.Where("author_id = ? AND expires_at > ?", authorID, now).
		Order("created_at asc").Find(&stories).Error
	return stories, err
}

func (r *storyRepository) Delete(id string) (bool, error) {
	result := r.db.Where("id = ?", id).Delete(&model.Story{})
	return result.RowsAffected > 0, result.Error
}

func (r *storyRepository) IncrementViewCount(id string) error {
	return r.db.Model(&model.Story{}).Where("id = ?", id).
		Update("view_count", gorm.Expr("view_count + 1")).Error
}

// DeleteExpired 硬删除（绕过软删除），过期内容不保留
func (r *storyRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Unscoped().Where("expires_at <= ?", now).Delete(&model.Story{})
	return result.RowsAffected, result.Error
}

// UpdateAuthorSnapshot 版本保护的快照刷新，与帖子同一套机制
func (r *storyRepository) UpdateAuthorSnapshot(snapshot worker.AuthorSnapshot) error {
	return r.db.Model(&model.Story{}).
		Where("author_id = ? AND author_version < ?", snapshot.UserID, snapshot.Version).
		Updates(map[string]interface{}{
			"author_name":     snapshot.Name,
			"author_username": snapshot.Username,
			"author_avatar":   snapshot.AvatarURL,
			"author_version":  snapshot.Version,
		}).Error
}
