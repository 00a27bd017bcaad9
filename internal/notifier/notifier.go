package notifier

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// PushPayload 是推送通道上的消息格式
type PushPayload struct {
	Event        string               `json:"event"`
	Notification *domain.Notification `json:"notification"`
}

type Notifier struct {
	cfg         *config.Config
	hub         *Hub
	mailChannel *amqp.Channel
}

func NewNotifier(cfg *config.Config, hub *Hub, mailCh *amqp.Channel) *Notifier {
	return &Notifier{
		cfg:         cfg,
		hub:         hub,
		mailChannel: mailCh,
	}
}

// PushIfConnected 用户没有在线连接时是空操作，不算错误
func (n *Notifier) PushIfConnected(user *domain.User, notification *domain.Notification) error {
	return n.hub.Push(user.ID, PushPayload{
		Event:        "notification",
		Notification: notification,
	})
}

// SendEmail 只负责把邮件投递到消息队列，真正的发送由 mail worker 完成
func (n *Notifier) SendEmail(message domain.MailMessage) error {
	mailData, err := json.Marshal(message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(n.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return n.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	)
}
