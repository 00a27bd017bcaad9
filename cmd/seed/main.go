package main

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	seedUserNumber   = 30
	seedParentNumber = 10
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 生成随机用户
	 **********************************************/
	seedPassword := cfg.Seed.User.Password
	if seedPassword == "" {
		seedPassword = utils.GenerateRandomPassword(12)
		logger.Info("未配置种子用户密码，已随机生成", "password", seedPassword)
	}

	users := make([]*domain.User, 0, seedUserNumber)
	for i := 0; i < seedUserNumber; i++ {
		user, err := utils.GenerateRandomUser(seedPassword, cfg.Email.UserDomain)
		if err != nil {
			logger.Error("无法生成随机用户", "error", err)
			return
		}
		if err := repo.CreateUser(user); err != nil {
			// 随机的用户名可能撞车，跳过即可
			logger.Warn("插入随机用户失败", "username", user.Username, "error", err)
			continue
		}
		users = append(users, user)
	}
	logger.Info("随机用户已生成", "count", len(users))

	admins := make([]*domain.User, 0)
	members := make([]*domain.User, 0)
	for _, user := range users {
		if user.Role == domain.RoleAdmin {
			admins = append(admins, user)
		} else {
			members = append(members, user)
		}
	}
	if len(admins) == 0 || len(members) == 0 {
		logger.Error("随机用户中缺少管理员或团队成员，请重新运行")
		return
	}

	/**********************************************
	 * 生成随机项目和任务，并随机分配
	 **********************************************/
	for _, kind := range []domain.ParentKind{domain.ParentProject, domain.ParentTask} {
		for i := 0; i < seedParentNumber; i++ {
			admin := admins[rand.Intn(len(admins))]
			parent := utils.GenerateRandomParent(kind, admin.ID)
			if err := repo.CreateParent(parent); err != nil {
				logger.Warn("插入随机实体失败", "kind", kind, "name", parent.Name, "error", err)
				continue
			}

			// 给一部分成员随机分配这个实体
			assignments := make([]*domain.Assignment, 0)
			notifications := make([]*domain.Notification, 0)
			for _, member := range members {
				if rand.Intn(3) != 0 {
					continue
				}
				assignments = append(assignments, &domain.Assignment{
					ParentKind:   kind,
					ParentID:     parent.ID,
					UserID:       member.ID,
					AssignedByID: admin.ID,
					Deadline:     time.Now().Add(time.Duration(rand.Intn(14*24)+1) * time.Hour),
				})
				notifications = append(notifications, &domain.Notification{
					UserID:     member.ID,
					Type:       domain.NotificationAssignedToProject,
					Message:    "你被分配了项目：" + parent.Name,
					ParentKind: &parent.Kind,
					ParentID:   &parent.ID,
				})
			}
			if kind == domain.ParentTask {
				for _, notification := range notifications {
					notification.Type = domain.NotificationAssignedToTask
					notification.Message = "你被分配了任务：" + parent.Name
				}
			}

			if len(assignments) == 0 {
				continue
			}
			if err := repo.ReplaceAssignments(assignments, notifications); err != nil {
				logger.Warn("插入随机分配失败", "kind", kind, "name", parent.Name, "error", err)
			}
		}
	}

	logger.Info("随机数据已生成")
}
