package repository

import (
	"errors"

	"neosixty/internal/domain/user/model"

	"gorm.io/gorm"
)

// UserRepository 接口定义
type UserRepository interface {
	Create(user *model.User) error
	GetByID(id string) (*model.User, error)
	GetByUsername(username string) (*model.User, error)
	// GetByIdentifier 按手机号或邮箱查找（登录入口二选一）
	GetByIdentifier(phoneOrEmail string) (*model.User, error)
	GetList(offset, limit int) ([]model.User, int64, error)
	Update(user *model.User) error
	Delete(user *model.User) error

	// AdjustFollowerCount 原子调整粉丝数，返回调整后的值
	AdjustFollowerCount(userID string, delta int64) (int64, error)
	AdjustFollowingCount(userID string, delta int64) error
	// SetVerified 加 V / 取消 V
	SetVerified(userID string, verified bool) error

	GetProfile(userID string) (*model.Profile, error)
	CreateProfile(profile *model.Profile) error
	SaveProfile(profile *model.Profile, expectedVersion int64) error

	GetSettings() (*model.AdminSettings, error)
	SaveSettings(settings *model.AdminSettings) error
}

// userRepository 实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的仓库实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(id string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *userRepository) GetByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIdentifier 根据手机号或邮箱获取用户
func (r *userRepository) GetByIdentifier(phoneOrEmail string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("phone_number = ? OR email = ?", phoneOrEmail, phoneOrEmail).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetList 获取用户列表（分页）
func (r *userRepository) GetList(offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	if err := r.db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.Order("created_at desc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update 更新用户
func (r *userRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

// Delete 删除用户
func (r *userRepository) Delete(user *model.User) error {
	return r.db.Delete(user).Error
}

// AdjustFollowerCount 原子调整粉丝数
func (r *userRepository) AdjustFollowerCount(userID string, delta int64) (int64, error) {
	// 单条 UPDATE 保证计数原子性，粉丝数不允许为负
	err := r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("follower_count", gorm.Expr("GREATEST(follower_count + ?, 0)", delta)).Error
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).
		Pluck("follower_count", &count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AdjustFollowingCount 原子调整关注数
func (r *userRepository) AdjustFollowingCount(userID string, delta int64) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("following_count", gorm.Expr("GREATEST(following_count + ?, 0)", delta)).Error
}

// SetVerified 设置加 V 状态
func (r *userRepository) SetVerified(userID string, verified bool) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("is_verified", verified).Error
}

// GetProfile 获取资料子记录
func (r *userRepository) GetProfile(userID string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile 首次编辑时惰性建资料行
func (r *userRepository) CreateProfile(profile *model.Profile) error {
	return r.db.Create(profile).Error
}

// SaveProfile 乐观并发保存：只有版本号匹配时才写入
func (r *userRepository) SaveProfile(profile *model.Profile, expectedVersion int64) error {
	result := r.db.Model(&model.Profile{}).
		Where("user_id = ? AND version = ?", profile.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"bio":                 profile.Bio,
			"cover_url":           profile.CoverURL,
			"location":            profile.Location,
			"website":             profile.Website,
			"contact_phone":       profile.ContactPhone,
			"contact_email":       profile.ContactEmail,
			"birthday":            profile.Birthday,
			"relationship_status": profile.RelationshipStatus,
			"work":                profile.Work,
			"education":           profile.Education,
			"interests":           profile.Interests,
			"languages":           profile.Languages,
			"social_links":        profile.SocialLinks,
			"version":             expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	profile.Version = expectedVersion + 1
	return nil
}

// GetSettings 获取全局设置（单行，不存在时返回默认值并落库）
func (r *userRepository) GetSettings() (*model.AdminSettings, error) {
	var settings model.AdminSettings
	err := r.db.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = model.AdminSettings{
			ID:                  1,
			AppName:             "Neo sixty",
			AllowRegistration:   true,
			AllowPosts:          true,
			AllowStories:        true,
			AllowComments:       true,
			AllowReactions:      true,
			MonetizationEnabled: true,
			MinimumWithdrawal:   30,
			AdRevenueShare:      70,
		}
		if err := r.db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings 保存全局设置
func (r *userRepository) SaveSettings(settings *model.AdminSettings) error {
	settings.ID = 1
	return r.db.Save(settings).Error
}
