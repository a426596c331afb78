package service

import (
	"errors"
	"strings"

	"neosixty/internal/domain/user/model"
	"neosixty/internal/domain/user/repository"
	"neosixty/internal/pkg/config"
	"neosixty/internal/pkg/worker"
	"neosixty/pkg/errs"
	"neosixty/pkg/utils"

	"github.com/jinzhu/copier"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ProfilePatch 资料部分更新。零值字段不覆盖，调用方只传要改的字段。
type ProfilePatch struct {
	Bio                string `json:"bio"`
	CoverURL           string `json:"coverUrl"`
	Location           string `json:"location"`
	Website            string `json:"website"`
	ContactPhone       string `json:"contactPhone"`
	ContactEmail       string `json:"contactEmail"`
	Birthday           string `json:"birthday"`
	RelationshipStatus string `json:"relationshipStatus"`
	Work               []byte `json:"work"`
	Education          []byte `json:"education"`
	Interests          []byte `json:"interests"`
	Languages          []byte `json:"languages"`
	SocialLinks        []byte `json:"socialLinks"`
}

// SettingsPatch 全局设置部分更新
type SettingsPatch struct {
	AppName             *string  `json:"appName"`
	AllowRegistration   *bool    `json:"allowRegistration"`
	AllowPosts          *bool    `json:"allowPosts"`
	AllowStories        *bool    `json:"allowStories"`
	AllowComments       *bool    `json:"allowComments"`
	AllowReactions      *bool    `json:"allowReactions"`
	ModerationEnabled   *bool    `json:"moderationEnabled"`
	MonetizationEnabled *bool    `json:"monetizationEnabled"`
	MinimumWithdrawal   *float64 `json:"minimumWithdrawal"`
	AdRevenueShare      *int     `json:"adRevenueShare"`
}

// UserService 用户服务接口
type UserService interface {
	Register(name, phoneOrEmail, password string) (string, *model.User, error)
	Login(phoneOrEmail, password string) (string, *model.User, error)

	GetUser(id string) (*model.User, error)
	GetUsers(page, limit int) ([]model.User, int64, error)

	// UpdateIdentity 更新展示身份（名字/头像），触发内容表快照级联
	UpdateIdentity(id string, name, avatarURL string) (*model.User, error)
	UpdateProfile(userID string, patch ProfilePatch, expectedVersion int64) (*model.Profile, error)
	GetProfile(userID string) (*model.Profile, error)

	// AdjustFollowerCount 调整粉丝数并执行加 V 检查
	AdjustFollowerCount(userID string, increment bool) (*model.User, error)
	AdjustFollowingCount(userID string, increment bool) error

	EnableProfessionalMode(userID string) (*model.User, error)

	// 管理员操作
	CreateUser(name, phoneOrEmail, password, role string) (*model.User, error)
	SetUserRole(actorID, userID, role string) error
	SetVerified(userID string, verified bool) error
	ToggleUserStatus(actorID, userID string) (*model.User, error)
	DeleteUser(actorID, userID string) error

	GetSettings() (*model.AdminSettings, error)
	UpdateSettings(patch SettingsPatch) (*model.AdminSettings, error)
}

// userService 实现
type userService struct {
	repo    repository.UserRepository
	cascade *worker.CascadePool
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, cascade *worker.CascadePool) UserService {
	return &userService{repo: repo, cascade: cascade}
}

// deriveUsername 从手机号/邮箱派生默认用户名
func deriveUsername(phoneOrEmail string) string {
	cleaned := strings.NewReplacer("@", "", "+", "").Replace(phoneOrEmail)
	if len(cleaned) > 6 {
		return cleaned[len(cleaned)-6:]
	}
	return cleaned
}

// Register 注册新用户
func (s *userService) Register(name, phoneOrEmail, password string) (string, *model.User, error) {
	settings, err := s.repo.GetSettings()
	if err != nil {
		return "", nil, err
	}
	if !settings.AllowRegistration {
		return "", nil, errs.Forbiddenf("registration is currently disabled")
	}

	if name == "" || phoneOrEmail == "" {
		return "", nil, errs.Validationf("name and phone/email are required")
	}
	if len(password) < 6 {
		return "", nil, errs.Validationf("password must be at least 6 characters")
	}

	// 手机号/邮箱查重
	if _, err := s.repo.GetByIdentifier(phoneOrEmail); err == nil {
		return "", nil, errs.Conflictf("phone number or email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, err
	}

	// 密码只存哈希，绝不落明文
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	user := &model.User{
		Name:         name,
		Username:     deriveUsername(phoneOrEmail),
		AvatarURL:    "/placeholder.svg",
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if strings.Contains(phoneOrEmail, "@") {
		user.Email = phoneOrEmail
	} else {
		user.PhoneNumber = phoneOrEmail
	}

	if err := s.repo.Create(user); err != nil {
		return "", nil, err
	}

	token, _, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login 登录
func (s *userService) Login(phoneOrEmail, password string) (string, *model.User, error) {
	user, err := s.repo.GetByIdentifier(phoneOrEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errs.Validationf("invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, errs.Validationf("invalid credentials")
	}

	if !user.IsActive {
		return "", nil, errs.Forbiddenf("account is disabled")
	}

	token, _, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GetUser 获取单个用户
func (s *userService) GetUser(id string) (*model.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("user %s", id)
		}
		return nil, err
	}
	return user, nil
}

// GetUsers 获取用户列表（分页）
func (s *userService) GetUsers(page, limit int) ([]model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.GetList(offset, limit)
}

// UpdateIdentity 更新名字/头像并级联刷新内容表里的作者快照
func (s *userService) UpdateIdentity(id string, name, avatarURL string) (*model.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	changed := false
	if name != "" && name != user.Name {
		user.Name = name
		changed = true
	}
	if avatarURL != "" && avatarURL != user.AvatarURL {
		user.AvatarURL = avatarURL
		changed = true
	}
	if !changed {
		return user, nil
	}

	user.ProfileVersion++
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}

	// 异步把新快照刷到帖子/评论/故事（版本化级联，旧任务不会盖新值）
	if s.cascade != nil {
		s.cascade.AddTask(worker.CascadeTask{Snapshot: worker.AuthorSnapshot{
			UserID:    user.ID,
			Name:      user.Name,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			Version:   user.ProfileVersion,
		}})
	}

	return user, nil
}

// UpdateProfile 部分更新资料，乐观并发控制
func (s *userService) UpdateProfile(userID string, patch ProfilePatch, expectedVersion int64) (*model.Profile, error) {
	profile, err := s.repo.GetProfile(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 首次编辑时惰性建资料行
			profile = &model.Profile{UserID: userID}
		} else {
			return nil, err
		}
	}

	if profile.Version != expectedVersion {
		return nil, errs.Conflictf("profile was modified concurrently (version %d, expected %d)",
			profile.Version, expectedVersion)
	}

	// 只覆盖补丁里的非零字段，避免整体替换互相覆盖
	if err := copier.CopyWithOption(profile, &patch, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, err
	}

	if profile.ID == "" {
		if err := s.repo.CreateProfile(profile); err != nil {
			return nil, err
		}
		return profile, nil
	}

	if err := s.repo.SaveProfile(profile, expectedVersion); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Conflictf("profile was modified concurrently")
		}
		return nil, err
	}
	return profile, nil
}

// GetProfile 获取资料
func (s *userService) GetProfile(userID string) (*model.Profile, error) {
	profile, err := s.repo.GetProfile(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("profile for user %s", userID)
		}
		return nil, err
	}
	return profile, nil
}

// AdjustFollowerCount 调整粉丝数并执行加 V 检查
func (s *userService) AdjustFollowerCount(userID string, increment bool) (*model.User, error) {
	delta := int64(1)
	if !increment {
		delta = -1
	}

	count, err := s.repo.AdjustFollowerCount(userID, delta)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	// 加 V 检查：达到阈值且尚未加 V 时置位一次，之后不再自动取消
	threshold := config.GlobalConfig.App.VerifyFollowerThreshold
	if threshold <= 0 {
		threshold = 1000
	}
	if count >= threshold && !user.IsVerified {
		if err := s.repo.SetVerified(userID, true); err != nil {
			return nil, err
		}
		user.IsVerified = true
	}
	user.FollowerCount = count

	return user, nil
}

// AdjustFollowingCount 调整关注数
func (s *userService) AdjustFollowingCount(userID string, increment bool) error {
	delta := int64(1)
	if !increment {
		delta = -1
	}
	return s.repo.AdjustFollowingCount(userID, delta)
}

// EnableProfessionalMode 开通专业模式（创作者变现入口）
func (s *userService) EnableProfessionalMode(userID string) (*model.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	threshold := config.GlobalConfig.App.ProfessionalFollowerThreshold
	if threshold <= 0 {
		threshold = 1000
	}
	if user.FollowerCount < threshold {
		return nil, errs.Validationf("professional mode requires at least %d followers", threshold)
	}

	settings, err := s.repo.GetSettings()
	if err != nil {
		return nil, err
	}
	if !settings.MonetizationEnabled {
		return nil, errs.Forbiddenf("monetization is currently disabled")
	}

	user.IsProfessional = true
	user.MonetizationEnabled = true
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser 管理员创建用户（可指定角色）
func (s *userService) CreateUser(name, phoneOrEmail, password, role string) (*model.User, error) {
	if !model.IsValidRole(role) {
		return nil, errs.Validationf("invalid role %q", role)
	}

	if _, err := s.repo.GetByIdentifier(phoneOrEmail); err == nil {
		return nil, errs.Conflictf("phone number or email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Username:     deriveUsername(phoneOrEmail),
		AvatarURL:    "/placeholder.svg",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		// 管理员账号默认加 V
		IsVerified: role == model.RoleAdmin,
	}
	if strings.Contains(phoneOrEmail, "@") {
		user.Email = phoneOrEmail
	} else {
		user.PhoneNumber = phoneOrEmail
	}

	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserRole 管理员调整角色
func (s *userService) SetUserRole(actorID, userID, role string) error {
	if !model.IsValidRole(role) {
		return errs.Validationf("invalid role %q", role)
	}
	if actorID == userID {
		return errs.Validationf("cannot change your own role")
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	user.Role = role
	return s.repo.Update(user)
}

// SetVerified 管理员显式加 V / 取消 V（自动加 V 只能被这里取消）
func (s *userService) SetVerified(userID string, verified bool) error {
	if _, err := s.GetUser(userID); err != nil {
		return err
	}
	return s.repo.SetVerified(userID, verified)
}

// ToggleUserStatus 启用/停用账号
func (s *userService) ToggleUserStatus(actorID, userID string) (*model.User, error) {
	if actorID == userID {
		return nil, errs.Validationf("cannot deactivate yourself")
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	user.IsActive = !user.IsActive
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser 删除用户（软删除）
func (s *userService) DeleteUser(actorID, userID string) error {
	if actorID == userID {
		return errs.Validationf("cannot delete yourself")
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	return s.repo.Delete(user)
}

// GetSettings 获取全局设置
func (s *userService) GetSettings() (*model.AdminSettings, error) {
	return s.repo.GetSettings()
}

// UpdateSettings 部分更新全局设置
func (s *userService) UpdateSettings(patch SettingsPatch) (*model.AdminSettings, error) {
	settings, err := s.repo.GetSettings()
	if err != nil {
		return nil, err
	}

	if patch.AppName != nil {
		settings.AppName = *patch.AppName
	}
	if patch.AllowRegistration != nil {
		settings.AllowRegistration = *patch.AllowRegistration
	}
	if patch.AllowPosts != nil {
		settings.AllowPosts = *patch.AllowPosts
	}
	if patch.AllowStories != nil {
		settings.AllowStories = *patch.AllowStories
	}
	if patch.AllowComments != nil {
		settings.AllowComments = *patch.AllowComments
	}
	if patch.AllowReactions != nil {
		settings.AllowReactions = *patch.AllowReactions
	}
	if patch.ModerationEnabled != nil {
		settings.ModerationEnabled = *patch.ModerationEnabled
	}
	if patch.MonetizationEnabled != nil {
		settings.MonetizationEnabled = *patch.MonetizationEnabled
	}
	if patch.MinimumWithdrawal != nil {
		if *patch.MinimumWithdrawal <= 0 {
			return nil, errs.Validationf("minimum withdrawal must be positive")
		}
		settings.MinimumWithdrawal = *patch.MinimumWithdrawal
	}
	if patch.AdRevenueShare != nil {
		if *patch.AdRevenueShare < 0 || *patch.AdRevenueShare > 100 {
			return nil, errs.Validationf("ad revenue share must be between 0 and 100")
		}
		settings.AdRevenueShare = *patch.AdRevenueShare
	}

	if err := s.repo.SaveSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
