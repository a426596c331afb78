package database

import (
	"time"

	"neosixty/pkg/logger"
	"neosixty/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PoolMonitor 周期性采集连接池状态，上报指标并对连接等待告警
type PoolMonitor struct {
	db       *gorm.DB
	interval time.Duration
	stopCh   chan struct{}

	lastWaitCount int64
}

func NewPoolMonitor(db *gorm.DB, interval time.Duration) *PoolMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PoolMonitor{db: db, interval: interval, stopCh: make(chan struct{})}
}

func (pm *PoolMonitor) Start() {
	go func() {
		ticker := time.NewTicker(pm.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pm.collect()
			case <-pm.stopCh:
				return
			}
		}
	}()
}

func (pm *PoolMonitor) Stop() {
	close(pm.stopCh)
}

func (pm *PoolMonitor) collect() {
	sqlDB, err := pm.db.DB()
	if err != nil {
		logger.Log.Warn("Pool stats unavailable", zap.Error(err))
		return
	}

	stats := sqlDB.Stats()
	metrics.Default.SetDBPoolStats(stats.OpenConnections, stats.InUse, stats.Idle)

	// 本周期内出现过连接等待说明池子偏小
	if waited := stats.WaitCount - pm.lastWaitCount; waited > 0 {
		logger.Log.Warn("Database connection pool saturated",
			zap.Int64("waited", waited),
			zap.Duration("total_wait", stats.WaitDuration),
			zap.Int("open", stats.OpenConnections),
			zap.Int("in_use", stats.InUse),
		)
	}
	pm.lastWaitCount = stats.WaitCount
}
