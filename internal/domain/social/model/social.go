package model

import (
	baseModel "neosixty/pkg/model"
)

// Follow 关注边，(follower_id, followee_id) 唯一
type Follow struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	FollowerID string `gorm:"uniqueIndex:idx_follower_followee;type:uuid" json:"followerId"`
	FolloweeID string `gorm:"uniqueIndex:idx_follower_followee;index;type:uuid" json:"followeeId"`
}

// 好友请求状态
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest 好友请求。接受后双方互相关注。
type FriendRequest struct {
	baseModel.BaseModel
	SenderID   string `gorm:"index;type:uuid" json:"senderId"`
	ReceiverID string `gorm:"index;type:uuid" json:"receiverId"`
	Status     string `gorm:"default:'pending'" json:"status"` // pending, accepted, rejected
}
