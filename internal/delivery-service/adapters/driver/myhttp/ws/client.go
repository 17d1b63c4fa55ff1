package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	websocketdto "dropx/internal/delivery-service/core/domain/websocket_dto"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Client struct {
	conn       *websocket.Conn
	dis        *Dispatcher
	egress     chan websocketdto.ChatMessage
	userID     uuid.UUID
	deliveryID uuid.UUID
}

func NewClient(conn *websocket.Conn, dis *Dispatcher, userID, deliveryID uuid.UUID) *Client {
	return &Client{
		conn:       conn,
		dis:        dis,
		egress:     make(chan websocketdto.ChatMessage, 16),
		userID:     userID,
		deliveryID: deliveryID,
	}
}

func (c *Client) readPump() {
	defer c.dis.removeClient(c)

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.dis.log.Warn("chat connection closed unexpectedly", "user_id", c.userID.String())
			}
			break
		}

		var req websocketdto.ChatMessage
		if err := json.Unmarshal(payload, &req); err != nil {
			continue
		}
		if req.Body == "" {
			continue
		}

		// The server owns the envelope; only the body is the client's.
		sender := c.userID
		c.dis.Broadcast(c.deliveryID, websocketdto.ChatMessage{
			Type:       websocketdto.TypeChatMessage,
			DeliveryID: c.deliveryID,
			SenderID:   &sender,
			Body:       req.Body,
			SentAt:     time.Now().UTC(),
		})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.dis.removeClient(c)
	}()

	for {
		select {
		case msg, ok := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
