package service

import (
	"errors"

	"neosixty/internal/domain/social/model"
	"neosixty/internal/domain/social/repository"
	usermodel "neosixty/internal/domain/user/model"
	"neosixty/pkg/errs"
	"neosixty/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserCounters social 模块对用户模块的依赖面：
// 关注/取关时调整计数，粉丝数达标触发加 V
type UserCounters interface {
	GetUser(id string) (*usermodel.User, error)
	AdjustFollowerCount(userID string, increment bool) (*usermodel.User, error)
	AdjustFollowingCount(userID string, increment bool) error
}

// SocialService 关注/好友请求服务接口
type SocialService interface {
	// Follow 关注，返回被关注者的最新状态（含可能触发的加 V）
	Follow(followerID, followeeID string) (*usermodel.User, error)
	Unfollow(followerID, followeeID string) error
	IsFollowing(followerID, followeeID string) (bool, error)
	GetFollowers(userID string, page, limit int) ([]usermodel.User, int64, error)
	GetFollowing(userID string, page, limit int) ([]usermodel.User, int64, error)

	SendFriendRequest(senderID, receiverID string) (*model.FriendRequest, error)
	// AcceptFriendRequest 接受后双方互相关注
	AcceptFriendRequest(receiverID, requestID string) error
	RejectFriendRequest(receiverID, requestID string) error
	CancelFriendRequest(senderID, requestID string) error
	ListIncomingRequests(userID string) ([]model.FriendRequest, error)
	ListOutgoingRequests(userID string) ([]model.FriendRequest, error)
}

type socialService struct {
	repo  repository.SocialRepository
	users UserCounters
}

func NewSocialService(repo repository.SocialRepository, users UserCounters) SocialService {
	return &socialService{repo: repo, users: users}
}

// Follow 关注。计数只在边真正新建时调整，重复关注报冲突。
func (s *socialService) Follow(followerID, followeeID string) (*usermodel.User, error) {
	if followerID == followeeID {
		return nil, errs.Validationf("cannot follow yourself")
	}

	if _, err := s.users.GetUser(followeeID); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateFollow(followerID, followeeID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errs.Conflictf("already following")
	}

	if err := s.users.AdjustFollowingCount(followerID, true); err != nil {
		return nil, err
	}
	// 粉丝数达标在这里触发加 V
	return s.users.AdjustFollowerCount(followeeID, true)
}

// ensureFollow 幂等版关注，好友请求接受时用。已有的边不报错也不重复计数。
func (s *socialService) ensureFollow(followerID, followeeID string) error {
	created, err := s.repo.CreateFollow(followerID, followeeID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	if err := s.users.AdjustFollowingCount(followerID, true); err != nil {
		return err
	}
	_, err = s.users.AdjustFollowerCount(followeeID, true)
	return err
}

// Unfollow 取关，边不存在时是幂等空操作
func (s *socialService) Unfollow(followerID, followeeID string) error {
	deleted, err := s.repo.DeleteFollow(followerID, followeeID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	if err := s.users.AdjustFollowingCount(followerID, false); err != nil {
		return err
	}
	// 取关掉粉不会取消已获得的加 V
	_, err = s.users.AdjustFollowerCount(followeeID, false)
	return err
}

func (s *socialService) IsFollowing(followerID, followeeID string) (bool, error) {
	return s.repo.IsFollowing(followerID, followeeID)
}

func (s *socialService) GetFollowers(userID string, page, limit int) ([]usermodel.User, int64, error) {
	offset, limit := pageOffset(page, limit)
	ids, total, err := s.repo.ListFollowerIDs(userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return s.resolveUsers(ids), total, nil
}

func (s *socialService) GetFollowing(userID string, page, limit int) ([]usermodel.User, int64, error) {
	offset, limit := pageOffset(page, limit)
	ids, total, err := s.repo.ListFollowingIDs(userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return s.resolveUsers(ids), total, nil
}

// resolveUsers 批量查用户，已删除的跳过
func (s *socialService) resolveUsers(ids []string) []usermodel.User {
	users := make([]usermodel.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.GetUser(id)
		if err != nil {
			logger.Log.Warn("Skipping unresolvable user in edge list",
				zap.String("user_id", id), zap.Error(err))
			continue
		}
		users = append(users, *user)
	}
	return users
}

func pageOffset(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}

// SendFriendRequest 发送好友请求
func (s *socialService) SendFriendRequest(senderID, receiverID string) (*model.FriendRequest, error) {
	if senderID == receiverID {
		return nil, errs.Validationf("cannot send a friend request to yourself")
	}

	if _, err := s.users.GetUser(receiverID); err != nil {
		return nil, err
	}

	pending, err := s.repo.GetPendingBetween(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, errs.Conflictf("a pending friend request already exists")
	}

	req := &model.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.RequestPending,
	}
	if err := s.repo.CreateFriendRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// AcceptFriendRequest 只有接收者能接受；接受后建立双向关注
func (s *socialService) AcceptFriendRequest(receiverID, requestID string) error {
	req, err := s.getPendingRequest(requestID)
	if err != nil {
		return err
	}
	if req.ReceiverID != receiverID {
		return errs.Forbiddenf("only the receiver can accept this request")
	}

	if err := s.repo.UpdateRequestStatus(requestID, model.RequestAccepted); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Conflictf("request is no longer pending")
		}
		return err
	}

	// 互相关注。接受前可能已有单向边，用幂等版避免重复计数。
	if err := s.ensureFollow(req.SenderID, req.ReceiverID); err != nil {
		return err
	}
	return s.ensureFollow(req.ReceiverID, req.SenderID)
}

// RejectFriendRequest 只有接收者能拒绝
func (s *socialService) RejectFriendRequest(receiverID, requestID string) error {
	req, err := s.getPendingRequest(requestID)
	if err != nil {
		return err
	}
	if req.ReceiverID != receiverID {
		return errs.Forbiddenf("only the receiver can reject this request")
	}

	if err := s.repo.UpdateRequestStatus(requestID, model.RequestRejected); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Conflictf("request is no longer pending")
		}
		return err
	}
	return nil
}

// CancelFriendRequest 发送者撤回待处理请求
func (s *socialService) CancelFriendRequest(senderID, requestID string) error {
	req, err := s.getPendingRequest(requestID)
	if err != nil {
		return err
	}
	if req.SenderID != senderID {
		return errs.Forbiddenf("only the sender can cancel this request")
	}
	return s.repo.DeleteRequest(requestID)
}

func (s *socialService) getPendingRequest(requestID string) (*model.FriendRequest, error) {
	req, err := s.repo.GetFriendRequest(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("friend request %s", requestID)
		}
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, errs.Conflictf("request is already %s", req.Status)
	}
	return req, nil
}

func (s *socialService) ListIncomingRequests(userID string) ([]model.FriendRequest, error) {
	return s.repo.ListIncoming(userID)
}

func (s *socialService) ListOutgoingRequests(userID string) ([]model.FriendRequest, error) {
	return s.repo.ListOutgoing(userID)
}
