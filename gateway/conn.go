package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"studymate/domain"
	"studymate/domain/event"
)

// client is one websocket connection: a transient connection id, its event
// sink, and the room it joined (empty until the first successful join).
type client struct {
	id     string
	conn   *websocket.Conn
	sink   *ConnSink
	server *Server
	room   domain.RoomID
	log    *slog.Logger
}

func newClient(id string, conn *websocket.Conn, server *Server) *client {
	conn.SetReadLimit(server.maxMessageBytes)
	return &client{
		id:     id,
		conn:   conn,
		sink:   NewConnSink(server.connBufferSize),
		server: server,
		log:    server.log.With("conn", id),
	}
}

// readPump decodes inbound frames and hands them to the server until the
// peer disconnects or sends garbage the codec refuses.
func (c *client) readPump(ctx context.Context) {
	c.setupReadDeadlines()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected websocket error", "err", err)
			} else {
				c.log.Debug("Client disconnected", "err", err)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debug("Malformed frame", "err", err)
			c.rejectDirect(ctx, "", "malformed frame")
			continue
		}

		c.server.handleFrame(ctx, c, frame)
	}
}

// writePump drains the sink into the websocket and keeps the connection
// alive with pings. It owns all writes to the connection.
func (c *client) writePump(ctx context.Context) {
	pingTicker := time.NewTicker(c.server.pongTimeout * 9 / 10)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-pingTicker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "err", err)
				return
			}
		case evt := <-c.sink.Events:
			frame, ok := EncodeEvent(evt)
			if !ok {
				c.log.Debug("Event without wire representation", "room", evt.RoomID())
				continue
			}
			if err := c.writeJSON(frame); err != nil {
				c.log.Debug("Write failed", "err", err)
				return
			}
		}
	}
}

// rejectDirect enqueues a rejection through the sink so ordering with other
// outbound frames is preserved.
func (c *client) rejectDirect(ctx context.Context, op, reason string) {
	evt := event.Rejected{Room: string(c.room), Conn: c.id, Op: op, Reason: reason}
	if err := c.sink.Consume(ctx, evt); err != nil {
		c.log.Debug("Rejection lost", "op", op, "err", err)
	}
}

func (c *client) setupReadDeadlines() {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.server.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.server.pongTimeout))
	})
}

func (c *client) write(messageType int, payload []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.writeTimeout))
	return c.conn.WriteMessage(messageType, payload)
}

func (c *client) writeJSON(frame ServerFrame) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.writeTimeout))
	return c.conn.WriteJSON(frame)
}
