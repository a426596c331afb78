package service

import (
	"encoding/json"
	"errors"
	"html"
	"strings"

	"neosixty/internal/domain/feed/model"
	"neosixty/internal/domain/feed/repository"
	usermodel "neosixty/internal/domain/user/model"
	"neosixty/pkg/errs"
	"neosixty/pkg/logger"
	"neosixty/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserDirectory feed 模块对用户模块的依赖面（user.service 满足该接口）
type UserDirectory interface {
	GetUser(id string) (*usermodel.User, error)
	GetSettings() (*usermodel.AdminSettings, error)
}

// CreatePostInput 发帖参数
type CreatePostInput struct {
	Content  string   `json:"content"`
	ImageURL string   `json:"imageUrl"`
	VideoURL string   `json:"videoUrl"`
	IsHTML   bool     `json:"isHtml"`
	Mentions []string `json:"mentions"`
	Tags     []string `json:"tags"`
}

// FeedService 帖子/评论服务接口
type FeedService interface {
	CreatePost(authorID string, input CreatePostInput) (*model.Post, error)
	GetPost(id string) (*model.Post, error)
	GetFeed(page, limit int) ([]model.Post, int64, error)
	GetUserPosts(userID string, page, limit int) ([]model.Post, int64, error)
	// DeletePost 幂等删除：帖子不存在时静默成功
	DeletePost(actorID, actorRole, postID string) error

	React(postID, userID, kind string) (*model.Post, error)
	SharePost(postID string) error

	AddComment(postID, authorID string, input AddCommentInput) (*model.Comment, error)
	GetComments(postID string, page, limit int) ([]model.Comment, int64, error)
	DeleteComment(actorID, actorRole, commentID string) error
	ToggleCommentLike(commentID, userID string) (bool, error)
}

type feedService struct {
	repo  repository.FeedRepository
	users UserDirectory
}

func NewFeedService(repo repository.FeedRepository, users UserDirectory) FeedService {
	return &feedService{repo: repo, users: users}
}

// sanitizeContent 非 HTML 内容写入前转义，防注入
func sanitizeContent(content string, isHTML bool) string {
	if isHTML {
		return content
	}
	return html.EscapeString(content)
}

// CreatePost 发帖
func (s *feedService) CreatePost(authorID string, input CreatePostInput) (*model.Post, error) {
	settings, err := s.users.GetSettings()
	if err != nil {
		return nil, err
	}
	if !settings.AllowPosts {
		return nil, errs.Forbiddenf("posting is currently disabled")
	}

	if strings.TrimSpace(input.Content) == "" && input.ImageURL == "" && input.VideoURL == "" {
		return nil, errs.Validationf("post must have content or media")
	}

	author, err := s.users.GetUser(authorID)
	if err != nil {
		return nil, err
	}
	if !author.IsActive {
		return nil, errs.Forbiddenf("account is disabled")
	}

	post := &model.Post{
		AuthorID:       author.ID,
		AuthorName:     author.Name,
		AuthorUsername: author.Username,
		AuthorAvatar:   author.AvatarURL,
		AuthorVersion:  author.ProfileVersion,
		Content:        sanitizeContent(input.Content, input.IsHTML),
		ImageURL:       input.ImageURL,
		VideoURL:       input.VideoURL,
		IsHTML:         input.IsHTML,
		Reactions:      model.NewReactionSummary(),
	}
	if len(input.Mentions) > 0 {
		post.Mentions, _ = json.Marshal(input.Mentions)
	}
	if len(input.Tags) > 0 {
		post.Tags, _ = json.Marshal(input.Tags)
	}

	if err := s.repo.CreatePost(post); err != nil {
		return nil, err
	}
	metrics.Default.RecordPostCreated()
	return post, nil
}

func (s *feedService) GetPost(id string) (*model.Post, error) {
	post, err := s.repo.GetPost(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("post %s", id)
		}
		return nil, err
	}
	return post, nil
}

func (s *feedService) GetFeed(page, limit int) ([]model.Post, int64, error) {
	offset, limit := pageOffset(page, limit)
	return s.repo.GetFeed(offset, limit)
}

func (s *feedService) GetUserPosts(userID string, page, limit int) ([]model.Post, int64, error) {
	offset, limit := pageOffset(page, limit)
	return s.repo.GetUserPosts(userID, offset, limit)
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

// DeletePost 作者本人或版主/管理员可删。帖子已不存在时视为成功，
// 重复点删除不报错。
func (s *feedService) DeletePost(actorID, actorRole, postID string) error {
	post, err := s.repo.GetPost(postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if post.AuthorID != actorID && !isModerator(actorRole) {
		return errs.Forbiddenf("only the author or a moderator can delete this post")
	}

	deleted, err := s.repo.DeletePost(postID)
	if err != nil {
		return err
	}
	if deleted {
		logger.Log.Info("Post deleted",
			zap.String("post_id", postID),
			zap.String("actor_id", actorID),
		)
	}
	return nil
}

func isModerator(role string) bool {
	return role == usermodel.RoleModerator || role == usermodel.RoleAdmin
}

// React 对帖子做反应（toggle / move / add）
func (s *feedService) React(postID, userID, kind string) (*model.Post, error) {
	if !model.IsValidReactionKind(kind) {
		return nil, errs.Validationf("unknown reaction kind %q", kind)
	}

	settings, err := s.users.GetSettings()
	if err != nil {
		return nil, err
	}
	if !settings.AllowReactions {
		return nil, errs.Forbiddenf("reactions are currently disabled")
	}

	post, action, err := s.repo.React(postID, userID, kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("post %s", postID)
		}
		return nil, err
	}

	metrics.Default.RecordReaction(kind, action)
	return post, nil
}

// SharePost 分享只累计计数，不生成转发帖
func (s *feedService) SharePost(postID string) error {
	if err := s.repo.IncrementShareCount(postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFoundf("post %s", postID)
		}
		return err
	}
	return nil
}

// AddCommentInput 评论参数
type AddCommentInput struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
	VideoURL string `json:"videoUrl"`
}

// AddComment 评论
func (s *feedService) AddComment(postID, authorID string, input AddCommentInput) (*model.Comment, error) {
	settings, err := s.users.GetSettings()
	if err != nil {
		return nil, err
	}
	if !settings.AllowComments {
		return nil, errs.Forbiddenf("commenting is currently disabled")
	}

	if strings.TrimSpace(input.Content) == "" && input.ImageURL == "" && input.VideoURL == "" {
		return nil, errs.Validationf("comment must have content or media")
	}

	author, err := s.users.GetUser(authorID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:         postID,
		AuthorID:       author.ID,
		AuthorName:     author.Name,
		AuthorUsername: author.Username,
		AuthorAvatar:   author.AvatarURL,
		AuthorVersion:  author.ProfileVersion,
		// 评论不支持富文本，一律转义
		Content:  html.EscapeString(input.Content),
		ImageURL: input.ImageURL,
		VideoURL: input.VideoURL,
	}

	if err := s.repo.CreateComment(comment); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("post %s", postID)
		}
		return nil, err
	}
	return comment, nil
}

func (s *feedService) GetComments(postID string, page, limit int) ([]model.Comment, int64, error) {
	offset, limit := pageOffset(page, limit)
	return s.repo.GetComments(postID, offset, limit)
}

// DeleteComment 作者本人或版主/管理员可删，不存在时静默成功
func (s *feedService) DeleteComment(actorID, actorRole, commentID string) error {
	comment, err := s.repo.GetComment(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if comment.AuthorID != actorID && !isModerator(actorRole) {
		return errs.Forbiddenf("only the author or a moderator can delete this comment")
	}

	_, err = s.repo.DeleteComment(commentID)
	return err
}

func (s *feedService) ToggleCommentLike(commentID, userID string) (bool, error) {
	liked, err := s.repo.ToggleCommentLike(commentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, errs.NotFoundf("comment %s", commentID)
		}
		return false, err
	}
	return liked, nil
}
