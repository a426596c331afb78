package repository

import (
	"errors"

	"neosixty/internal/domain/social/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialRepository 关注/好友请求存储
type SocialRepository interface {
	// CreateFollow 建关注边，已存在时返回 false 不报错
	CreateFollow(followerID, followeeID string) (bool, error)
	// DeleteFollow 删关注边，返回是否真的删了
	DeleteFollow(followerID, followeeID string) (bool, error)
	IsFollowing(followerID, followeeID string) (bool, error)
	ListFollowerIDs(userID string, offset, limit int) ([]string, int64, error)
	ListFollowingIDs(userID string, offset, limit int) ([]string, int64, error)

	CreateFriendRequest(req *model.FriendRequest) error
	GetFriendRequest(id string) (*model.FriendRequest, error)
	// GetPendingBetween 两人之间任一方向的待处理请求
	GetPendingBetween(userA, userB string) (*model.FriendRequest, error)
	ListIncoming(receiverID string) ([]model.FriendRequest, error)
	ListOutgoing(senderID string) ([]model.FriendRequest, error)
	UpdateRequestStatus(id, status string) error
	DeleteRequest(id string) error
}

type socialRepository struct {
	db *gorm.DB
}

func NewSocialRepository(db *gorm.DB) SocialRepository {
	return &socialRepository{db: db}
}

// CreateFollow 唯一索引冲突时静默跳过，重复关注不报错也不重复计数
func (r *socialRepository) CreateFollow(followerID, followeeID string) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Follow{FollowerID: followerID, FolloweeID: followeeID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *socialRepository) DeleteFollow(followerID, followeeID string) (bool, error) {
	result := r.db.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{})
	return result.RowsAffected > 0, result.Error
}

func (r *socialRepository) IsFollowing(followerID, followeeID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

func (r *socialRepository) ListFollowerIDs(userID string, offset, limit int) ([]string, int64, error) {
	var ids []string
	var total int64

	q := r.db.Model(&model.Follow{}).Where("followee_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("id desc").Offset(offset).Limit(limit).
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, 0, err
	}
	return ids, total, nil
}

func (r *socialRepository) ListFollowingIDs(userID string, offset, limit int) ([]string, int64, error) {
	var ids []string
	var total int64

	q := r.db.Model(&model.Follow{}).Where("follower_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("id desc").Offset(offset).Limit(limit).
		Pluck("followee_id", &ids).Error; err != nil {
		return nil, 0, err
	}
	return ids, total, nil
}

func (r *socialRepository) CreateFriendRequest(req *model.FriendRequest) error {
	return r.db.Create(req).Error
}

func (r *socialRepository) GetFriendRequest(id string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetPendingBetween 查两人之间任一方向的待处理请求，没有返回 nil
func (r *socialRepository) GetPendingBetween(userA, userB string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.db.Where("status = ?", model.RequestPending).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *socialRepository) ListIncoming(receiverID string) ([]model.FriendRequest, error) {
	var reqs []model.FriendRequest
	err := r.db.Where("receiver_id = ? AND status = ?", receiverID, model.RequestPending).
		Order("created_at desc").Find(&reqs).Error
	return reqs, err
}

func (r *socialRepository) ListOutgoing(senderID string) ([]model.FriendRequest, error) {
	var reqs []model.FriendRequest
	err := r.db.Where("sender_id = ? AND status = ?", senderID, model.RequestPending).
		Order("created_at desc").Find(&reqs).Error
	return reqs, err
}

// UpdateRequestStatus 只允许从 pending 流转，终态不可再改
func (r *socialRepository) UpdateRequestStatus(id, status string) error {
	result := r.db.Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.RequestPending).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *socialRepository) DeleteRequest(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.FriendRequest{}).Error
}
