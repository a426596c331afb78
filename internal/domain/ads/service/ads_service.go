package service

import (
	"errors"
	"html"
	"net/url"
	"strings"
	"time"

	"neosixty/internal/domain/ads/model"
	"neosixty/internal/domain/ads/repository"
	usermodel "neosixty/internal/domain/user/model"
	"neosixty/internal/pkg/config"
	"neosixty/pkg/errs"
	"neosixty/pkg/logger"
	"neosixty/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EarningsCrediter 创作者分成入账（wallet.service 满足该接口）
type EarningsCrediter interface {
	CreditEarnings(userID string, amount float64) error
}

// UserGate ads 模块对用户模块的依赖面
type UserGate interface {
	GetUser(id string) (*usermodel.User, error)
	GetSettings() (*usermodel.AdminSettings, error)
}

// CreateCampaignInput 创建投放参数
type CreateCampaignInput struct {
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	ImageURL     string          `json:"imageUrl"`
	VideoURL     string          `json:"videoUrl"`
	TargetURL    string          `json:"targetUrl"`
	Targeting    model.Targeting `json:"targeting"`
	Budget       float64         `json:"budget"`
	DailyBudget  float64         `json:"dailyBudget"`
	DurationDays int             `json:"durationDays"`
	// FreeTrial 申请免费试用（每个广告主一次）
	FreeTrial bool `json:"freeTrial"`
}

// AdsService 广告投放服务接口
type AdsService interface {
	// CreateCampaign 建投放。免费试用直接激活，否则 pending 等支付。
	CreateCampaign(advertiserID string, input CreateCampaignInput) (*model.AdCampaign, error)
	GetCampaign(advertiserID, id string) (*model.AdCampaign, error)
	ListMyCampaigns(advertiserID string, page, limit int) ([]model.AdCampaign, int64, error)

	// ActivateCampaign 支付完成后由 wallet 回调激活
	ActivateCampaign(campaignID string) error
	PauseCampaign(advertiserID, campaignID string) error
	ResumeCampaign(advertiserID, campaignID string) error

	// ServeAds 取可投放的广告（时间线里穿插）
	ServeAds(limit int) ([]model.AdCampaign, error)
	RecordImpression(campaignID string) error
	// RecordClick 计费点击：广告主扣费、展示位创作者拿分成
	RecordClick(campaignID, hostUserID string) (*model.AdCampaign, error)

	// 管理员审核
	ListPendingReview(page, limit int) ([]model.AdCampaign, int64, error)
	RejectCampaign(campaignID, reason string) error
}

type adsService struct {
	repo     repository.AdsRepository
	users    UserGate
	earnings EarningsCrediter
	now      func() time.Time
}

func NewAdsService(repo repository.AdsRepository, users UserGate, earnings EarningsCrediter) AdsService {
	return &adsService{repo: repo, users: users, earnings: earnings, now: time.Now}
}

// CreateCampaign 建投放
func (s *adsService) CreateCampaign(advertiserID string, input CreateCampaignInput) (*model.AdCampaign, error) {
	settings, err := s.users.GetSettings()
	if err != nil {
		return nil, err
	}
	if !settings.MonetizationEnabled {
		return nil, errs.Forbiddenf("advertising is currently disabled")
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, errs.Validationf("campaign title is required")
	}
	if input.TargetURL == "" {
		return nil, errs.Validationf("target url is required")
	}
	if u, err := url.ParseRequestURI(input.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errs.Validationf("target url must be a valid http(s) url")
	}

	if _, err := s.users.GetUser(advertiserID); err != nil {
		return nil, err
	}

	adsCfg := config.GlobalConfig.Ads
	campaign := &model.AdCampaign{
		AdvertiserID: advertiserID,
		Title:        html.EscapeString(input.Title),
		Content:      html.EscapeString(input.Content),
		ImageURL:     input.ImageURL,
		VideoURL:     input.VideoURL,
		TargetURL:    input.TargetURL,
		Targeting:    input.Targeting,
		Budget:       input.Budget,
		DailyBudget:  input.DailyBudget,
		DurationDays: input.DurationDays,
		CostPerClick: adsCfg.CostPerClick,
		Status:       model.StatusPending,
	}

	if input.FreeTrial {
		used, err := s.repo.HasFreeTrial(advertiserID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, errs.Conflictf("free trial already used")
		}

		// 试用投放不走支付，固定预算和时长，立即激活
		endsAt := s.now().Add(time.Duration(adsCfg.FreeTrialDays) * 24 * time.Hour)
		startsAt := s.now()
		campaign.IsFreeTrial = true
		campaign.Budget = adsCfg.FreeTrialBudget
		campaign.DurationDays = adsCfg.FreeTrialDays
		campaign.Status = model.StatusActive
		campaign.StartsAt = &startsAt
		campaign.EndsAt = &endsAt
	} else {
		if input.Budget <= 0 {
			return nil, errs.Validationf("budget must be positive")
		}
		if input.DurationDays < 1 {
			return nil, errs.Validationf("duration must be at least one day")
		}
		if input.DailyBudget < 0 || input.DailyBudget > input.Budget {
			return nil, errs.Validationf("daily budget cannot exceed the total budget")
		}
	}

	if err := s.repo.Create(campaign); err != nil {
		return nil, err
	}

	logger.Log.Info("Ad campaign created",
		zap.String("campaign_id", campaign.ID),
		zap.String("advertiser_id", advertiserID),
		zap.Bool("free_trial", campaign.IsFreeTrial),
	)
	return campaign, nil
}

func (s *adsService) GetCampaign(advertiserID, id string) (*model.AdCampaign, error) {
	campaign, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if campaign.AdvertiserID != advertiserID {
		return nil, errs.Forbiddenf("campaign belongs to another advertiser")
	}
	return campaign, nil
}

func (s *adsService) get(id string) (*model.AdCampaign, error) {
	campaign, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("campaign %s", id)
		}
		return nil, err
	}
	return campaign, nil
}

func (s *adsService) ListMyCampaigns(advertiserID string, page, limit int) ([]model.AdCampaign, int64, error) {
	offset, limit := pageOffset(page, limit)
	return s.repo.ListByAdvertiser(advertiserID, offset, limit)
}

// ActivateCampaign 支付完成回调，pending → active，投放窗口从激活起算
func (s *adsService) ActivateCampaign(campaignID string) error {
	campaign, err := s.get(campaignID)
	if err != nil {
		return err
	}
	if campaign.Status == model.StatusActive {
		return nil
	}

	startsAt := s.now()
	endsAt := startsAt.Add(time.Duration(campaign.DurationDays) * 24 * time.Hour)
	if err := s.repo.Activate(campaignID, startsAt, endsAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Conflictf("campaign %s cannot be activated from %s", campaignID, campaign.Status)
		}
		return err
	}

	logger.Log.Info("Ad campaign activated", zap.String("campaign_id", campaignID))
	return nil
}

// PauseCampaign 广告主暂停投放
func (s *adsService) PauseCampaign(advertiserID, campaignID string) error {
	if _, err := s.GetCampaign(advertiserID, campaignID); err != nil {
		return err
	}
	if err := s.repo.TransitionStatus(campaignID, model.StatusActive, model.StatusPaused, ""); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Conflictf("only an active campaign can be paused")
		}
		return err
	}
	return nil
}

// ResumeCampaign 恢复投放
func (s *adsService) ResumeCampaign(advertiserID, campaignID string) error {
	if _, err := s.GetCampaign(advertiserID, campaignID); err != nil {
		return err
	}
	if err := s.repo.TransitionStatus(campaignID, model.StatusPaused, model.StatusActive, ""); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Conflictf("only a paused campaign can be resumed")
		}
		return err
	}
	return nil
}

func (s *adsService) ServeAds(limit int) ([]model.AdCampaign, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	return s.repo.ListServable(s.now(), limit)
}

func (s *adsService) RecordImpression(campaignID string) error {
	if err := s.repo.IncrementImpressions(campaignID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFoundf("campaign %s", campaignID)
		}
		return err
	}
	metrics.Default.RecordAdImpression()
	return nil
}

// RecordClick 计费点击。广告主按 CPC 扣费，展示位创作者按全局分成
// 比例入账；预算耗尽时投放自动结束。
func (s *adsService) RecordClick(campaignID, hostUserID string) (*model.AdCampaign, error) {
	campaign, err := s.repo.RecordClick(campaignID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("campaign %s is not servable", campaignID)
		}
		return nil, err
	}

	if hostUserID != "" && s.earnings != nil {
		settings, err := s.users.GetSettings()
		if err != nil {
			return nil, err
		}
		share := campaign.CostPerClick * float64(settings.AdRevenueShare) / 100
		if share > 0 {
			if err := s.earnings.CreditEarnings(hostUserID, share); err != nil {
				// 分成失败不回滚点击，记日志人工对账
				logger.Log.Error("Creator share credit failed",
					zap.String("campaign_id", campaignID),
					zap.String("host_user_id", hostUserID),
					zap.Float64("share", share),
					zap.Error(err),
				)
			}
		}
	}

	return campaign, nil
}

func (s *adsService) ListPendingReview(page, limit int) ([]model.AdCampaign, int64, error) {
	offset, limit := pageOffset(page, limit)
	return s.repo.ListByStatus(model.StatusPending, offset, limit)
}

// RejectCampaign 管理员驳回待支付/待审核的投放
func (s *adsService) RejectCampaign(campaignID, reason string) error {
	if err := s.repo.TransitionStatus(campaignID, model.StatusPending, model.StatusRejected, reason); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Conflictf("only a pending campaign can be rejected")
		}
		return err
	}
	return nil
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
