package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beaconchat/beacon/internal/hub"
	"github.com/beaconchat/beacon/internal/protocol"
)

const (
	pongWait      = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// Client binds one WebSocket connection to the hub: the read pump decodes
// inbound invocation frames and calls the coordinator, the write pump drains
// the dispatcher-owned outbound channel back to the socket.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	coord    *hub.Coordinator
	dispatch *hub.Dispatcher
	log      *slog.Logger

	rateLimiter *rateLimiter
	rateLimit   RateLimitConfig
}

// NewClient prepares a client for the given upgraded connection. The send
// channel must also be registered with the dispatcher under the same id.
func NewClient(id string, conn *websocket.Conn, coord *hub.Coordinator, dispatch *hub.Dispatcher, logger *slog.Logger) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
		coord:       coord,
		dispatch:    dispatch,
		log:         logger,
		rateLimiter: newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:   cfg.RateLimit,
	}
}

// ID returns the connection id assigned at upgrade time.
func (c *Client) ID() string {
	return c.id
}

// SendChan exposes the outbound channel for dispatcher registration.
func (c *Client) SendChan() chan []byte {
	return c.send
}

// readPump consumes inbound frames until the connection drops, then reports
// the disconnect to the coordinator. The final read error, if unexpected,
// travels into Disconnect for logging and no further.
func (c *Client) readPump() {
	var disconnectErr error

	defer func() {
		c.dispatch.Unregister(c.id)
		c.coord.Disconnect(c.id, disconnectErr)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("ws.close", "connectionId", c.id, "err", err)
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("ws.deadline", "connectionId", c.id, "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			disconnectErr = c.classifyReadError(err)
			return
		}

		if !c.rateLimiter.allow() {
			c.log.Warn("ws.ratelimited", "connectionId", c.id,
				"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
			continue
		}

		c.handleFrame(raw)
	}
}

// classifyReadError separates expected teardown from genuine transport
// faults. Expected closes return nil so the coordinator treats them as clean
// disconnects.
func (c *Client) classifyReadError(err error) error {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("ws.read.toolarge", "connectionId", c.id)
		return nil
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		return nil
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		return nil
	default:
		return err
	}
}

// handleFrame decodes one inbound envelope and invokes the matching
// coordinator operation. Request/response invocations push their reply
// through the dispatcher so ordering matches other outbound events.
func (c *Client) handleFrame(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.log.Warn("ws.frame.invalid", "connectionId", c.id, "err", err)
		return
	}

	switch env.Type {
	case protocol.TypeSendMessage:
		var p protocol.SendMessagePayload
		if c.decode(env, &p) {
			c.coord.SendMessage(c.id, p.User, p.Message)
		}

	case protocol.TypeSendMessageToUser:
		var p protocol.SendPrivatePayload
		if c.decode(env, &p) {
			c.coord.SendMessageToUser(c.id, p.TargetUser, p.Message)
		}

	case protocol.TypeSendTypingStatus:
		var p protocol.TypingStatusPayload
		if c.decode(env, &p) {
			c.coord.SendTypingStatus(c.id, p.IsTyping)
		}

	case protocol.TypeJoinRoom:
		var p protocol.RoomPayload
		if c.decode(env, &p) {
			info := c.coord.JoinRoom(c.id, p.RoomName)
			c.reply(protocol.TypeRoomJoined, info)
		}

	case protocol.TypeLeaveRoom:
		var p protocol.RoomPayload
		if c.decode(env, &p) {
			c.coord.LeaveRoom(c.id, p.RoomName)
		}

	case protocol.TypeSendMessageToRoom:
		var p protocol.RoomMessagePayload
		if c.decode(env, &p) {
			c.coord.SendMessageToRoom(c.id, p.RoomName, p.Message)
		}

	case protocol.TypeGetOnlineUsers:
		c.reply(protocol.TypeOnlineUsers, protocol.OnlineUsersPayload{Users: c.coord.OnlineUsers()})

	case protocol.TypeGetRooms:
		c.reply(protocol.TypeRooms, protocol.RoomsPayload{Rooms: c.coord.Rooms()})

	case protocol.TypeStartMonitoring:
		c.coord.StartMonitoring(c.id)

	case protocol.TypeStopMonitoring:
		c.coord.StopMonitoring(c.id)

	case protocol.TypeUploadFileChunk:
		var p protocol.UploadFileChunkPayload
		if c.decode(env, &p) {
			complete := c.coord.UploadFileChunk(c.id, p.FileName, p.Chunk, p.ChunkIndex, p.TotalChunks)
			c.reply(protocol.TypeUploadFileChunkResult, protocol.UploadResultPayload{FileName: p.FileName, Complete: complete})
		}

	default:
		c.log.Warn("ws.frame.unknown", "connectionId", c.id, "type", env.Type)
	}
}

func (c *Client) decode(env protocol.Envelope, dst any) bool {
	if err := protocol.DecodePayload(env, dst); err != nil {
		c.log.Warn("ws.frame.invalid", "connectionId", c.id, "err", err)
		return false
	}
	return true
}

func (c *Client) reply(t protocol.Type, payload any) {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		c.log.Error("ws.encode", "connectionId", c.id, "type", t, "err", err)
		return
	}
	c.dispatch.SendTo(c.id, frame)
}

// writePump drains the outbound channel to the socket, coalescing queued
// frames into one write and keeping the connection alive with pings. It exits
// when the dispatcher closes the channel or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("ws.close", "connectionId", c.id, "err", err)
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeFrames(frame) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeFrames writes the frame plus anything already queued behind it, each
// frame as its own WebSocket message so clients decode envelope-per-message.
func (c *Client) writeFrames(frame []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("ws.write", "connectionId", c.id, "err", err)
		}
		return false
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		queued, ok := <-c.send
		if !ok {
			return false
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
			if !isExpectedCloseError(err) {
				c.log.Warn("ws.write", "connectionId", c.id, "err", err)
			}
			return false
		}
	}
	return true
}
