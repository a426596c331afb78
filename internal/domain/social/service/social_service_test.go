package service

import (
	"testing"

	"neosixty/internal/domain/social/model"
	usermodel "neosixty/internal/domain/user/model"
	"neosixty/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type mockSocialRepository struct {
	mock.Mock
}

func (m *mockSocialRepository) CreateFollow(followerID, followeeID string) (bool, error) {
	args := m.Called(followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSocialRepository) DeleteFollow(followerID, followeeID string) (bool, error) {
	args := m.Called(followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSocialRepository) IsFollowing(followerID, followeeID string) (bool, error) {
	args := m.Called(followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSocialRepository) ListFollowerIDs(userID string, offset, limit int) ([]string, int64, error) {
	args := m.Called(userID, offset, limit)
	return args.Get(0).([]string), args.Get(1).(int64), args.Error(2)
}

func (m *mockSocialRepository) ListFollowingIDs(userID string, offset, limit int) ([]string, int64, error) {
	args := m.Called(userID, offset, limit)
	return args.Get(0).([]string), args.Get(1).(int64), args.Error(2)
}

func (m *mockSocialRepository) CreateFriendRequest(req *model.FriendRequest) error {
	return m.Called(req).Error(0)
}

func (m *mockSocialRepository) GetFriendRequest(id string) (*model.FriendRequest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FriendRequest), args.Error(1)
}

func (m *mockSocialRepository) GetPendingBetween(userA, userB string) (*model.FriendRequest, error) {
	args := m.Called(userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FriendRequest), args.Error(1)
}

func (m *mockSocialRepository) ListIncoming(receiverID string) ([]model.FriendRequest, error) {
	args := m.Called(receiverID)
	return args.Get(0).([]model.FriendRequest), args.Error(1)
}

func (m *mockSocialRepository) ListOutgoing(senderID string) ([]model.FriendRequest, error) {
	args := m.Called(senderID)
	return args.Get(0).([]model.FriendRequest), args.Error(1)
}

func (m *mockSocialRepository) UpdateRequestStatus(id, status string) error {
	return m.Called(id, status).Error(0)
}

func (m *mockSocialRepository) DeleteRequest(id string) error {
	return m.Called(id).Error(0)
}

type mockUserCounters struct {
	mock.Mock
}

func (m *mockUserCounters) GetUser(id string) (*usermodel.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usermodel.User), args.Error(1)
}

func (m *mockUserCounters) AdjustFollowerCount(userID string, increment bool) (*usermodel.User, error) {
	args := m.Called(userID, increment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usermodel.User), args.Error(1)
}

func (m *mockUserCounters) AdjustFollowingCount(userID string, increment bool) error {
	return m.Called(userID, increment).Error(0)
}

func userWithID(id string) *usermodel.User {
	u := &usermodel.User{IsActive: true}
	u.ID = id
	return u
}

func TestFollow(t *testing.T) {
	t.Run("new edge adjusts both counters", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		users.On("GetUser", "bob").Return(userWithID("bob"), nil)
		repo.On("CreateFollow", "alice", "bob").Return(true, nil)
		users.On("AdjustFollowingCount", "alice", true).Return(nil)
		users.On("AdjustFollowerCount", "bob", true).Return(userWithID("bob"), nil)

		svc := NewSocialService(repo, users)
		followee, err := svc.Follow("alice", "bob")

		assert.NoError(t, err)
		assert.Equal(t, "bob", followee.ID)
		users.AssertExpectations(t)
	})

	t.Run("repeat follow conflicts and leaves counters alone", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		users.On("GetUser", "bob").Return(userWithID("bob"), nil)
		repo.On("CreateFollow", "alice", "bob").Return(false, nil)

		svc := NewSocialService(repo, users)
		_, err := svc.Follow("alice", "bob")

		assert.ErrorIs(t, err, errs.ErrConflict)
		users.AssertNotCalled(t, "AdjustFollowingCount", mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "AdjustFollowerCount", mock.Anything, mock.Anything)
	})

	t.Run("self follow rejected", func(t *testing.T) {
		svc := NewSocialService(new(mockSocialRepository), new(mockUserCounters))
		_, err := svc.Follow("alice", "alice")
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("unfollow without edge is a no-op", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		repo.On("DeleteFollow", "alice", "bob").Return(false, nil)

		svc := NewSocialService(repo, users)
		assert.NoError(t, svc.Unfollow("alice", "bob"))
		users.AssertNotCalled(t, "AdjustFollowerCount", mock.Anything, mock.Anything)
	})
}

func TestSendFriendRequest(t *testing.T) {
	t.Run("creates a pending request", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		users.On("GetUser", "bob").Return(userWithID("bob"), nil)
		repo.On("GetPendingBetween", "alice", "bob").Return(nil, nil)
		repo.On("CreateFriendRequest", mock.AnythingOfType("*model.FriendRequest")).Return(nil)

		svc := NewSocialService(repo, users)
		req, err := svc.SendFriendRequest("alice", "bob")

		assert.NoError(t, err)
		assert.Equal(t, model.RequestPending, req.Status)
		assert.Equal(t, "alice", req.SenderID)
		assert.Equal(t, "bob", req.ReceiverID)
	})

	t.Run("duplicate pending request conflicts either direction", func(t *testing.T) {
		existing := &model.FriendRequest{SenderID: "bob", ReceiverID: "alice", Status: model.RequestPending}
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		users.On("GetUser", "bob").Return(userWithID("bob"), nil)
		repo.On("GetPendingBetween", "alice", "bob").Return(existing, nil)

		svc := NewSocialService(repo, users)
		_, err := svc.SendFriendRequest("alice", "bob")

		assert.ErrorIs(t, err, errs.ErrConflict)
		repo.AssertNotCalled(t, "CreateFriendRequest", mock.Anything)
	})

	t.Run("self request rejected", func(t *testing.T) {
		svc := NewSocialService(new(mockSocialRepository), new(mockUserCounters))
		_, err := svc.SendFriendRequest("alice", "alice")
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func pendingRequest(id, sender, receiver string) *model.FriendRequest {
	req := &model.FriendRequest{SenderID: sender, ReceiverID: receiver, Status: model.RequestPending}
	req.ID = id
	return req
}

func TestAcceptFriendRequest(t *testing.T) {
	t.Run("accept creates follows in both directions", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		repo.On("GetFriendRequest", "req-1").Return(pendingRequest("req-1", "alice", "bob"), nil)
		repo.On("UpdateRequestStatus", "req-1", model.RequestAccepted).Return(nil)
		users.On("GetUser", mock.Anything).Return(userWithID("x"), nil)
		repo.On("CreateFollow", "alice", "bob").Return(true, nil)
		repo.On("CreateFollow", "bob", "alice").Return(true, nil)
		users.On("AdjustFollowingCount", mock.Anything, true).Return(nil)
		users.On("AdjustFollowerCount", mock.Anything, true).Return(userWithID("x"), nil)

		svc := NewSocialService(repo, users)
		assert.NoError(t, svc.AcceptFriendRequest("bob", "req-1"))
		repo.AssertCalled(t, "CreateFollow", "alice", "bob")
		repo.AssertCalled(t, "CreateFollow", "bob", "alice")
	})

	t.Run("only the receiver can accept", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		repo.On("GetFriendRequest", "req-1").Return(pendingRequest("req-1", "alice", "bob"), nil)

		svc := NewSocialService(repo, users)
		err := svc.AcceptFriendRequest("alice", "req-1")

		assert.ErrorIs(t, err, errs.ErrForbidden)
		repo.AssertNotCalled(t, "UpdateRequestStatus", mock.Anything, mock.Anything)
	})

	t.Run("already handled request conflicts", func(t *testing.T) {
		handled := pendingRequest("req-1", "alice", "bob")
		handled.Status = model.RequestAccepted
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		repo.On("GetFriendRequest", "req-1").Return(handled, nil)

		svc := NewSocialService(repo, users)
		assert.ErrorIs(t, svc.AcceptFriendRequest("bob", "req-1"), errs.ErrConflict)
	})

	t.Run("missing request is not found", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		repo.On("GetFriendRequest", "req-9").Return(nil, gorm.ErrRecordNotFound)

		svc := NewSocialService(repo, users)
		assert.ErrorIs(t, svc.AcceptFriendRequest("bob", "req-9"), errs.ErrNotFound)
	})
}

func TestCancelFriendRequest(t *testing.T) {
	t.Run("sender can cancel", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		repo.On("GetFriendRequest", "req-1").Return(pendingRequest("req-1", "alice", "bob"), nil)
		repo.On("DeleteRequest", "req-1").Return(nil)

		svc := NewSocialService(repo, users)
		assert.NoError(t, svc.CancelFriendRequest("alice", "req-1"))
	})

	t.Run("receiver cannot cancel", func(t *testing.T) {
		repo := new(mockSocialRepository)
		users := new(mockUserCounters)
		repo.On("GetFriendRequest", "req-1").Return(pendingRequest("req-1", "alice", "bob"), nil)

		svc := NewSocialService(repo, users)
		assert.ErrorIs(t, svc.CancelFriendRequest("bob", "req-1"), errs.ErrForbidden)
	})
}
