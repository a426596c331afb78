package repository

import (
	"time"

	"neosixty/internal/domain/ads/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdsRepository 广告投放存储
type AdsRepository interface {
	Create(campaign *model.AdCampaign) error
	GetByID(id string) (*model.AdCampaign, error)
	ListByAdvertiser(advertiserID string, offset, limit int) ([]model.AdCampaign, int64, error)
	ListByStatus(status string, offset, limit int) ([]model.AdCampaign, int64, error)
	// ListServable 可投放的活跃投放
	ListServable(now time.Time, limit int) ([]model.AdCampaign, error)
	// HasFreeTrial 广告主是否已用过免费试用
	HasFreeTrial(advertiserID string) (bool, error)

	// TransitionStatus 条件状态流转，from 不匹配时返回 gorm.ErrRecordNotFound
	TransitionStatus(id, from, to, reason string) error
	// Activate pending → active，同时落投放窗口
	Activate(id string, startsAt, endsAt time.Time) error
	IncrementImpressions(id string) error
	// RecordClick 行锁事务：累计点击和花费，预算耗尽置 completed。
	// 返回变更后的投放。
	RecordClick(id string, now time.Time) (*model.AdCampaign, error)
}

type adsRepository struct {
	db *gorm.DB
}

func NewAdsRepository(db *gorm.DB) AdsRepository {
	return &adsRepository{db: db}
}

func (r *adsRepository) Create(campaign *model.AdCampaign) error {
	return r.db.Create(campaign).Error
}

func (r *adsRepository) GetByID(id string) (*model.AdCampaign, error) {
	var campaign model.AdCampaign
	if err := r.db.Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *adsRepository) ListByAdvertiser(advertiserID string, offset, limit int) ([]model.AdCampaign, int64, error) {
	var campaigns []model.AdCampaign
	var total int64

	q := r.db.Model(&model.AdCampaign{}).Where("advertiser_id = ?", advertiserID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *adsRepository) ListByStatus(status string, offset, limit int) ([]model.AdCampaign, int64, error) {
	var campaigns []model.AdCampaign
	var total int64

	q := r.db.Model(&model.AdCampaign{}).Where("status = ?", status)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// ListServable 活跃、没花完预算、没到期的投放
func (r *adsRepository) ListServable(now time.Time, limit int) ([]model.AdCampaign, error) {
	var campaigns []model.AdCampaign
	err := r.db.Where("status = ? AND spent < budget", model.StatusActive).
		Where("ends_at IS NULL OR ends_at > ?", now).
		Order("created_at desc").Limit(limit).Find(&campaigns).Error
	return campaigns, err
}

func (r *adsRepository) HasFreeTrial(advertiserID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.AdCampaign{}).
		Where("advertiser_id = ? AND is_free_trial = ?", advertiserID, true).
		Count(&count).Error
	return count > 0, err
}

// TransitionStatus 条件更新，防止并发下的非法流转
func (r *adsRepository) TransitionStatus(id, from, to, reason string) error {
	values := map[string]interface{}{"status": to}
	if reason != "" {
		values["reject_reason"] = reason
	}

	result := r.db.Model(&model.AdCampaign{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Activate 支付完成后的激活，投放窗口从此刻起算
func (r *adsRepository) Activate(id string, startsAt, endsAt time.Time) error {
	result := r.db.Model(&model.AdCampaign{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":    model.StatusActive,
			"starts_at": startsAt,
			"ends_at":   endsAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *adsRepository) IncrementImpressions(id string) error {
	result := r.db.Model(&model.AdCampaign{}).Where("id = ?", id).
		Update("impressions", gorm.Expr("impressions + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordClick 行锁串行化点击，花费和预算的比较不会竞争
func (r *adsRepository) RecordClick(id string, now time.Time) (*model.AdCampaign, error) {
	var campaign model.AdCampaign

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&campaign).Error; err != nil {
			return err
		}

		if !campaign.IsServable(now) {
			return gorm.ErrRecordNotFound
		}

		campaign.Clicks++
		campaign.Spent += campaign.CostPerClick
		updates := map[string]interface{}{
			"clicks": campaign.Clicks,
			"spent":  campaign.Spent,
			"status": campaign.Status,
		}
		if campaign.Spent >= campaign.Budget {
			campaign.Status = model.StatusCompleted
			campaign.CompletedAt = &now
			updates["status"] = campaign.Status
			updates["completed_at"] = now
		}

		return tx.Model(&model.AdCampaign{}).Where("id = ?", id).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}
