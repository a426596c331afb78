package worker

import (
	"time"

	"neosixty/pkg/logger"
	"neosixty/pkg/metrics"

	"go.uber.org/zap"
)

// AuthorSnapshot 用户身份的反范式化副本（冗余存储在帖子/评论/故事行里）
type AuthorSnapshot struct {
	UserID    string
	Name      string
	Username  string
	AvatarURL string
	// Version 用户资料版本号，级联更新只覆盖更旧的快照，
	// 保证乱序执行的任务不会把新快照改回旧值
	Version int64
}

// SnapshotUpdater 持有反范式化作者快照的存储都实现该接口
// （feed 的帖子/评论、story 的故事）
type SnapshotUpdater interface {
	UpdateAuthorSnapshot(snapshot AuthorSnapshot) error
}

// CascadeTask 快照级联更新任务
type CascadeTask struct {
	Snapshot AuthorSnapshot
	Retry    int // 重试次数
}

// CascadePool 异步级联更新池。用户改名/换头像后，把新快照
// 刷到所有内容表，读路径无需 join。
type CascadePool struct {
	TaskQueue  chan CascadeTask
	RetryQueue chan CascadeTask
	updaters   []SnapshotUpdater
	WorkerNum  int
	MaxRetry   int
}

func NewCascadePool(workerNum int, bufferSize int, updaters ...SnapshotUpdater) *CascadePool {
	return &CascadePool{
		TaskQueue:  make(chan CascadeTask, bufferSize),
		RetryQueue: make(chan CascadeTask, bufferSize/2),
		updaters:   updaters,
		WorkerNum:  workerNum,
		MaxRetry:   3,
	}
}

// RegisterUpdater 注册快照存储（模块初始化时调用）
func (p *CascadePool) RegisterUpdater(u SnapshotUpdater) {
	p.updaters = append(p.updaters, u)
}

func (p *CascadePool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	go p.retryWorker()
	logger.Log.Info("Cascade worker pool started", zap.Int("workers", p.WorkerNum))
}

func (p *CascadePool) worker(id int) {
	for task := range p.TaskQueue {
		if err := p.processTask(task); err != nil {
			logger.Log.Warn("Failed to process cascade task",
				zap.Int("worker", id),
				zap.String("user_id", task.Snapshot.UserID),
				zap.Error(err),
			)

			// 如果未达到最大重试次数，加入重试队列
			if task.Retry < p.MaxRetry {
				task.Retry++
				select {
				case p.RetryQueue <- task:
				default:
					p.logFailedTask(task, err)
				}
			} else {
				p.logFailedTask(task, err)
			}
			continue
		}
		metrics.Default.RecordCascadeJob("ok")
	}
}

func (p *CascadePool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * time.Second)

		select {
		case p.TaskQueue <- task:
		default:
			p.logFailedTask(task, nil)
		}
	}
}

func (p *CascadePool) processTask(task CascadeTask) error {
	for _, u := range p.updaters {
		if err := u.UpdateAuthorSnapshot(task.Snapshot); err != nil {
			return err
		}
	}
	return nil
}

func (p *CascadePool) logFailedTask(task CascadeTask, err error) {
	metrics.Default.RecordCascadeJob("failed")
	logger.Log.Error("Cascade task failed permanently",
		zap.String("user_id", task.Snapshot.UserID),
		zap.Int64("version", task.Snapshot.Version),
		zap.Error(err),
	)
}

// AddTask 任务入队，队列满时丢弃并记录
func (p *CascadePool) AddTask(task CascadeTask) {
	select {
	case p.TaskQueue <- task:
	default:
		p.logFailedTask(task, nil)
	}
}
