package websocket

import (
	"context"
	"encoding/json"

	"ai-chatwidget-be/internal/dto"
	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/internal/service"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs handles one chat websocket connection. Each inbound frame is a
// send request; the reply streams back as delta frames followed by a
// turn_completed frame carrying the persisted reply.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, chats service.IChatService) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Send: make(chan []byte, 256)}
	client.ctx, client.cancel = context.WithCancel(context.Background())
	client.OnMessage = func(data []byte) {
		go streamTurn(client, chats, data)
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}

func streamTurn(client *Client, chats service.IChatService, data []byte) {
	var request dto.SendMessageRequest
	if err := json.Unmarshal(data, &request); err != nil {
		client.push(Push{Type: "error", Data: "invalid request payload"})
		return
	}

	// Bound to the connection: closing the socket cancels the stream mid-turn.
	response, err := chats.SendMessageStream(client.ctx, client.UserID, &request, func(delta string) error {
		client.push(Push{Type: "delta", Data: delta})
		return nil
	})
	if err != nil {
		client.push(Push{Type: "error", Data: map[string]interface{}{
			"kind":    string(apperror.KindOf(err)),
			"message": err.Error(),
		}})
		return
	}

	// Route through the hub so the user's other tabs see the turn too.
	client.Hub.Send(client.UserID, Push{Type: "turn_completed", Data: response})
}

// push writes directly to this connection, dropping the frame if the buffer
// is full rather than blocking the stream.
func (c *Client) push(p Push) {
	data, _ := json.Marshal(p)
	select {
	case c.Send <- data:
	default:
	}
}
