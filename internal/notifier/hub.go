package notifier

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errConnReplaced = errors.New("连接已被新的连接顶掉")

// gorilla/websocket 同一条连接只允许一个并发写入者，
// 所有写入（推送和心跳）都要拿着这把锁
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub 是用户 ID 到在线连接的目录，由 /ws 端点在建立和断开连接时维护。
// 每个用户只保留最近一条连接，新连接会顶掉旧连接。
type Hub struct {
	mu        sync.RWMutex
	clients   map[int64]*client
	writeWait time.Duration
}

func NewHub(writeWait time.Duration) *Hub {
	return &Hub{
		clients:   make(map[int64]*client),
		writeWait: writeWait,
	}
}

func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	old, exists := h.clients[userID]
	h.clients[userID] = &client{conn: conn}
	h.mu.Unlock()

	if exists && old.conn != conn {
		_ = old.conn.Close()
	}
}

// Unregister 只有在传入的连接仍然是该用户的当前连接时才会移除，
// 避免旧连接的清理把新连接顶掉
func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	if c, exists := h.clients[userID]; exists && c.conn == conn {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
}

func (h *Hub) IsConnected(userID int64) bool {
	h.mu.RLock()
	_, exists := h.clients[userID]
	h.mu.RUnlock()
	return exists
}

// Push 把 payload 以 JSON 形式写给用户的当前连接。用户不在线时直接返回 nil，
// 写入失败时移除并关闭这条连接
func (h *Hub) Push(userID int64, payload any) error {
	h.mu.RLock()
	c, exists := h.clients[userID]
	h.mu.RUnlock()

	if !exists {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		h.drop(userID, c)
		return err
	}

	if err := c.conn.WriteJSON(payload); err != nil {
		h.drop(userID, c)
		return err
	}

	return nil
}

// Ping 给指定的连接发送心跳，让客户端回 pong 以刷新读取超时。
// 连接已经被新的连接顶掉或写入失败时返回错误，调用方应停止心跳
func (h *Hub) Ping(userID int64, conn *websocket.Conn) error {
	h.mu.RLock()
	c, exists := h.clients[userID]
	h.mu.RUnlock()

	if !exists || c.conn != conn {
		return errConnReplaced
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		h.drop(userID, c)
		return err
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		h.drop(userID, c)
		return err
	}

	return nil
}

func (h *Hub) drop(userID int64, c *client) {
	h.Unregister(userID, c.conn)
	_ = c.conn.Close()
}
