package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neosixty/internal/domain/user/model"
	"neosixty/pkg/cache"
	"neosixty/pkg/logger"

	"go.uber.org/zap"
)

// cachedUserService 带缓存的用户服务装饰器。
// 读多写少的用户/设置查询走 Redis，写操作穿透后失效。
type cachedUserService struct {
	UserService
	cache cache.CacheService
}

// NewCachedUserService 包装用户服务，加缓存层
func NewCachedUserService(svc UserService, c cache.CacheService) UserService {
	return &cachedUserService{UserService: svc, cache: c}
}

const (
	userCacheTTL     = 10 * time.Minute
	settingsCacheTTL = 5 * time.Minute
	settingsCacheKey = "settings:global"
)

func userCacheKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

// GetUser 先查缓存，未命中回源并写缓存
func (s *cachedUserService) GetUser(id string) (*model.User, error) {
	ctx := context.Background()
	key := userCacheKey(id)

	var cached model.User
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Log.Warn("User cache read failed", zap.String("key", key), zap.Error(err))
	}

	user, err := s.UserService.GetUser(id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, user, userCacheTTL); err != nil {
		logger.Log.Warn("User cache write failed", zap.String("key", key), zap.Error(err))
	}
	return user, nil
}

func (s *cachedUserService) invalidateUser(id string) {
	if err := s.cache.Delete(context.Background(), userCacheKey(id)); err != nil {
		logger.Log.Warn("User cache invalidation failed", zap.String("user_id", id), zap.Error(err))
	}
}

// UpdateIdentity 写穿透并失效缓存
func (s *cachedUserService) UpdateIdentity(id string, name, avatarURL string) (*model.User, error) {
	user, err := s.UserService.UpdateIdentity(id, name, avatarURL)
	if err != nil {
		return nil, err
	}
	s.invalidateUser(id)
	return user, nil
}

func (s *cachedUserService) AdjustFollowerCount(userID string, increment bool) (*model.User, error) {
	user, err := s.UserService.AdjustFollowerCount(userID, increment)
	if err != nil {
		return nil, err
	}
	s.invalidateUser(userID)
	return user, nil
}

func (s *cachedUserService) EnableProfessionalMode(userID string) (*model.User, error) {
	user, err := s.UserService.EnableProfessionalMode(userID)
	if err != nil {
		return nil, err
	}
	s.invalidateUser(userID)
	return user, nil
}

func (s *cachedUserService) SetUserRole(actorID, userID, role string) error {
	if err := s.UserService.SetUserRole(actorID, userID, role); err != nil {
		return err
	}
	s.invalidateUser(userID)
	return nil
}

func (s *cachedUserService) SetVerified(userID string, verified bool) error {
	if err := s.UserService.SetVerified(userID, verified); err != nil {
		return err
	}
	s.invalidateUser(userID)
	return nil
}

func (s *cachedUserService) ToggleUserStatus(actorID, userID string) (*model.User, error) {
	user, err := s.UserService.ToggleUserStatus(actorID, userID)
	if err != nil {
		return nil, err
	}
	s.invalidateUser(userID)
	return user, nil
}

func (s *cachedUserService) DeleteUser(actorID, userID string) error {
	if err := s.UserService.DeleteUser(actorID, userID); err != nil {
		return err
	}
	s.invalidateUser(userID)
	return nil
}

// GetSettings 全局设置是所有写路径的前置检查，必须缓存
func (s *cachedUserService) GetSettings() (*model.AdminSettings, error) {
	ctx := context.Background()

	var cached model.AdminSettings
	if err := s.cache.Get(ctx, settingsCacheKey, &cached); err == nil {
		return &cached, nil
	}

	settings, err := s.UserService.GetSettings()
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, settingsCacheKey, settings, settingsCacheTTL); err != nil {
		logger.Log.Warn("Settings cache write failed", zap.Error(err))
	}
	return settings, nil
}

func (s *cachedUserService) UpdateSettings(patch SettingsPatch) (*model.AdminSettings, error) {
	settings, err := s.UserService.UpdateSettings(patch)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Delete(context.Background(), settingsCacheKey); err != nil {
		logger.Log.Warn("Settings cache invalidation failed", zap.Error(err))
	}
	return settings, nil
}
