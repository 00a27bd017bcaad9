package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/workflow"
)

// Store 是截止时间扫描需要的持久化操作的子集，由 repository 实现
type Store interface {
	GetExpiringAssignments(from time.Time, to time.Time) ([]*domain.Assignment, error)
	GetParentByID(kind domain.ParentKind, id int64) (*domain.Parent, error)
	GetUserByID(id int64) (*domain.User, error)
	CreateNotification(notification *domain.Notification) error
}

// DeadlineScanner 周期性地扫描即将到期且未完成的分配，给被分配人写入提醒通知。
// 扫描只读写数据库，不持有任何锁，和请求路径上的并发写入互不干扰。
type DeadlineScanner struct {
	cfg      *config.Config
	store    Store
	notifier workflow.Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDeadlineScanner(cfg *config.Config, store Store, notifier workflow.Notifier) *DeadlineScanner {
	ctx, cancel := context.WithCancel(context.Background())
	return &DeadlineScanner{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *DeadlineScanner) Start() {
	interval := time.Duration(s.cfg.DeadlineScanner.Interval) * time.Second
	ticker := time.NewTicker(interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		slog.Info("截止时间扫描已启动", "interval", interval)
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.Scan(time.Now())
			}
		}
	}()
}

func (s *DeadlineScanner) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("截止时间扫描已停止")
}

var parentKindLabels = map[domain.ParentKind]string{
	domain.ParentProject: "项目",
	domain.ParentTask:    "任务",
}

// Scan 扫描一轮。同一条分配只会被提醒一次，去重依据是已写入的提醒通知
func (s *DeadlineScanner) Scan(now time.Time) {
	lookAhead := time.Duration(s.cfg.DeadlineScanner.LookAhead) * time.Hour

	assignments, err := s.store.GetExpiringAssignments(now, now.Add(lookAhead))
	if err != nil {
		slog.Error("扫描即将到期的分配失败", "error", err)
		return
	}

	for _, assignment := range assignments {
		parent, err := s.store.GetParentByID(assignment.ParentKind, assignment.ParentID)
		if err != nil {
			slog.Error("扫描无法获取父实体", "kind", assignment.ParentKind, "parentID", assignment.ParentID, "error", err)
			continue
		}

		user, err := s.store.GetUserByID(assignment.UserID)
		if err != nil {
			slog.Error("扫描无法获取用户", "userID", assignment.UserID, "error", err)
			continue
		}

		deadline := assignment.Deadline.Local().Format("2006-01-02 15:04")

		notification := &domain.Notification{
			UserID:     user.ID,
			Type:       domain.NotificationDeadlineApproaching,
			Message:    fmt.Sprintf("%s「%s」即将于 %s 到期", parentKindLabels[assignment.ParentKind], parent.Name, deadline),
			ParentKind: &parent.Kind,
			ParentID:   &parent.ID,
		}
		if err := s.store.CreateNotification(notification); err != nil {
			slog.Error("提醒通知写入失败", "userID", user.ID, "error", err)
			continue
		}

		if err := s.notifier.PushIfConnected(user, notification); err != nil {
			slog.Error("提醒推送失败", "userID", user.ID, "error", err)
		}
		if err := s.notifier.SendEmail(domain.MailMessage{
			Type: "deadline",
			To:   user.Email,
			Data: domain.DeadlineMailData{
				FullName:   user.FullName,
				ParentKind: parentKindLabels[assignment.ParentKind],
				ParentName: parent.Name,
				Deadline:   deadline,
			},
		}); err != nil {
			slog.Error("提醒邮件发送失败", "userID", user.ID, "error", err)
		}
	}
}
