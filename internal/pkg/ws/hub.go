package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Hub struct {
	// 每个身份可以有多个连接（多标签页、重连等场景）
	clients map[identity]map[*Client]struct{}
	mu      sync.RWMutex
	logger  *zap.Logger
}

type identity struct {
	role   string
	userID int64
}

type Client struct {
	UserID int64
	Role   string
	Conn   *websocket.Conn
	mu     sync.Mutex // 写锁，防止并发写入
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[identity]map[*Client]struct{}),
		logger:  logger,
	}
}

func (c *Client) key() identity {
	return identity{role: c.Role, userID: c.UserID}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := client.key()
	if h.clients[k] == nil {
		h.clients[k] = make(map[*Client]struct{})
	}
	h.clients[k][client] = struct{}{}

	h.logger.Info("websocket connected",
		zap.Int64("user_id", client.UserID),
		zap.String("role", client.Role),
		zap.Int("user_conns", len(h.clients[k])),
	)
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := client.key()
	if conns, ok := h.clients[k]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, k)
		}
	}
	h.logger.Info("websocket disconnected", zap.Int64("user_id", client.UserID), zap.String("role", client.Role))
}

// SendToUser 向指定身份的所有连接发送消息
func (h *Hub) SendToUser(role string, userID int64, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := h.clients[identity{role: role, userID: userID}]
	// 复制一份引用，避免长时间持锁
	targets := make([]*Client, 0, len(conns))
	for c := range conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.write(targets, data)
	return nil
}

// SendToRole 向某角色的全部在线连接发送消息
func (h *Hub) SendToRole(role string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var targets []*Client
	for k, conns := range h.clients {
		if k.role != role {
			continue
		}
		for c := range conns {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.write(targets, data)
	return nil
}

func (h *Hub) write(targets []*Client, data []byte) {
	for _, c := range targets {
		c.mu.Lock()
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.logger.Warn("websocket write failed", zap.Int64("user_id", c.UserID), zap.Error(err))
		}
	}
}

// IsOnline 检查用户是否在线
func (h *Hub) IsOnline(role string, userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[identity{role: role, userID: userID}]) > 0
}

// ConnectionCount 获取在线连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
