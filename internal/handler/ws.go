package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/utils"
)

// WebSocket 把当前用户的实时连接注册到连接目录中，并把连接标识持久化到用户记录上。
// 连接断开后目录中的条目会被移除，用户记录上保留的是最近一次已知的标识。
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	currentUser := r.Context().Value(CurrentUserCtx).(*domain.User)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Origin") == h.config.FrontendURL
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket 升级失败", "userID", currentUser.ID, "error", err)
		return
	}

	socketID := utils.GenerateRandomID(8, 4)

	pongWait := time.Duration(h.config.WebSocket.PongWait) * time.Second
	conn.SetReadLimit(h.config.WebSocket.MaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Error("websocket 设置读取超时失败", "userID", currentUser.ID, "error", err)
		_ = conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.hub.Register(currentUser.ID, conn)

	if err := h.repository.UpdateUserSocketID(currentUser.ID, &socketID); err != nil {
		slog.Error("更新用户连接标识失败", "userID", currentUser.ID, "error", err)
	}

	done := make(chan struct{})

	// 读循环只用来感知连接关闭，客户端不会通过这条连接发送业务消息
	go func() {
		defer func() {
			close(done)
			h.hub.Unregister(currentUser.ID, conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// 定期发送心跳，客户端回的 pong 会刷新读取超时，空闲连接才不会被掐掉
	go func() {
		ticker := time.NewTicker(time.Duration(h.config.WebSocket.PingPeriod) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := h.hub.Ping(currentUser.ID, conn); err != nil {
					return
				}
			}
		}
	}()
}
