package repository

import (
	"errors"

	"neosixty/internal/domain/feed/model"
	"neosixty/internal/pkg/worker"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedRepository 帖子/评论存储
type FeedRepository interface {
	CreatePost(post *model.Post) error
	GetPost(id string) (*model.Post, error)
	GetFeed(offset, limit int) ([]model.Post, int64, error)
	GetUserPosts(userID string, offset, limit int) ([]model.Post, int64, error)
	// DeletePost 删除帖子及其评论，返回是否真的删了
	DeletePost(id string) (bool, error)

	// React 在行锁事务里执行反应变更，返回发生的动作
	React(postID, userID, kind string) (*model.Post, string, error)
	IncrementShareCount(postID string) error

	CreateComment(comment *model.Comment) error
	GetComment(id string) (*model.Comment, error)
	GetComments(postID string, offset, limit int) ([]model.Comment, int64, error)
	DeleteComment(id string) (bool, error)
	// ToggleCommentLike 点赞/取消点赞，返回点赞后的状态
	ToggleCommentLike(commentID, userID string) (liked bool, err error)

	UpdateAuthorSnapshot(snapshot worker.AuthorSnapshot) error
}

type feedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) CreatePost(post *model.Post) error {
	return r.db.Create(post).Error
}

func (r *feedRepository) GetPost(id string) (*model.Post, error) {
	var post model.Post
	if err := r.db.Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// GetFeed 全站时间线，按创建时间倒序
func (r *feedRepository) GetFeed(offset, limit int) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	if err := r.db.Model(&model.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.Order("created_at desc").Offset(offset).Limit(limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *feedRepository) GetUserPosts(userID string, offset, limit int) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	q := r.db.Model(&model.Post{}).Where("author_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// DeletePost 连带删除评论和点赞行
func (r *feedRepository) DeletePost(id string) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.Post{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		if !deleted {
			return nil
		}

		var commentIDs []string
		if err := tx.Model(&model.Comment{}).Where("post_id = ?", id).
			Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).
				Delete(&model.CommentLike{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error
	})
	return deleted, err
}

// React 行锁读出汇总，内存里变更后整列写回。
// 两个并发反应串行执行，计数不变式不会被打破。
func (r *feedRepository) React(postID, userID, kind string) (*model.Post, string, error) {
	var post model.Post
	var action string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", postID).First(&post).Error; err != nil {
			return err
		}

		if post.Reactions == nil {
			post.Reactions = model.NewReactionSummary()
		}
		var err error
		action, err = post.Reactions.Apply(userID, kind)
		if err != nil {
			return err
		}

		return tx.Model(&model.Post{}).Where("id = ?", postID).
			Update("reactions", post.Reactions).Error
	})
	if err != nil {
		return nil, "", err
	}
	return &post, action, nil
}

func (r *feedRepository) IncrementShareCount(postID string) error {
	result := r.db.Model(&model.Post{}).Where("id = ?", postID).
		Update("share_count", gorm.Expr("share_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateComment 建评论并同步帖子评论数
func (r *feedRepository) CreateComment(comment *model.Comment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Post{}).Where("id = ?", comment.PostID).
			Update("comment_count", gorm.Expr("comment_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(comment).Error
	})
}

func (r *feedRepository) GetComment(id string) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetComments 按时间正序翻页
func (r *feedRepository) GetComments(postID string, offset, limit int) ([]model.Comment, int64, error) {
	var comments []model.Comment
	var total int64

	q := r.db.Model(&model.Comment{}).Where("post_id = ?", postID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at asc").Offset(offset).Limit(limit).Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (r *feedRepository) DeleteComment(id string) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		if err := tx.Where("id = ?", id).First(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", id).Delete(&model.CommentLike{}).Error; err != nil {
			return err
		}

		deleted = true
		// 评论数不允许为负
		return tx.Model(&model.Post{}).Where("id = ?", comment.PostID).
			Update("comment_count", gorm.Expr("GREATEST(comment_count - 1, 0)")).Error
	})
	return deleted, err
}

// ToggleCommentLike 点赞行存在则取消，不存在则创建
func (r *feedRepository) ToggleCommentLike(commentID, userID string) (bool, error) {
	var liked bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var like model.CommentLike
		err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).
			First(&like).Error

		if err == nil {
			if err := tx.Delete(&like).Error; err != nil {
				return err
			}
			liked = false
			return tx.Model(&model.Comment{}).Where("id = ?", commentID).
				Update("like_count", gorm.Expr("GREATEST(like_count - 1, 0)")).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 确认评论存在再点赞
		var exists int64
		if err := tx.Model(&model.Comment{}).Where("id = ?", commentID).
			Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Create(&model.CommentLike{CommentID: commentID, UserID: userID}).Error; err != nil {
			return err
		}
		liked = true
		return tx.Model(&model.Comment{}).Where("id = ?", commentID).
			Update("like_count", gorm.Expr("like_count + 1")).Error
	})
	return liked, err
}

// UpdateAuthorSnapshot 把新的作者快照刷到帖子和评论行。
// 只覆盖版本更旧的行，乱序执行的级联任务不会把新值改回旧值。
func (r *feedRepository) UpdateAuthorSnapshot(snapshot worker.AuthorSnapshot) error {
	values := map[string]interface{}{
		"author_name":     snapshot.Name,
		"author_username": snapshot.Username,
		"author_avatar":   snapshot.AvatarURL,
		"author_version":  snapshot.Version,
	}

	if err := r.db.Model(&model.Post{}).
		Where("author_id = ? AND author_version < ?", snapshot.UserID, snapshot.Version).
		Updates(values).Error; err != nil {
		return err
	}
	return r.db.Model(&model.Comment{}).
		Where("author_id = ? AND author_version < ?", snapshot.UserID, snapshot.Version).
		Updates(values).Error
}
