package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/beaconchat/beacon/internal/protocol"
	"github.com/beaconchat/beacon/internal/telemetry"
)

// Options tune coordinator behavior that the deployment exposes as
// configuration.
type Options struct {
	// FileChunkSize is the declared chunk size used for upload byte
	// accounting.
	FileChunkSize int
	// MonitoringInterval is the cadence of the telemetry stream.
	MonitoringInterval time.Duration
}

// DefaultOptions mirror the wire-level constants clients are built against.
func DefaultOptions() Options {
	return Options{
		FileChunkSize:      32 * 1024,
		MonitoringInterval: time.Second,
	}
}

func (o Options) sanitized() Options {
	if o.FileChunkSize <= 0 {
		o.FileChunkSize = 32 * 1024
	}
	if o.MonitoringInterval <= 0 {
		o.MonitoringInterval = time.Second
	}
	return o
}

// Coordinator orchestrates the connection lifecycle, message routing, typing
// relay, telemetry subscriptions, and chunked uploads. It is safe under
// concurrent invocations from many connections: every piece of shared state
// lives behind the registry, directory, dispatcher, transfer store, and
// stream set, each with its own locking. No operation returns an error to an
// unrelated caller; user-facing failures surface as notifications.
type Coordinator struct {
	log       *slog.Logger
	registry  *Registry
	rooms     *RoomDirectory
	dispatch  *Dispatcher
	source    telemetry.Source
	transfers *TransferStore
	streams   *streamSet
	opts      Options
}

// NewCoordinator wires the coordinator to its collaborators. All of them are
// process-scoped instances owned by the caller, which keeps tests isolated.
func NewCoordinator(logger *slog.Logger, registry *Registry, rooms *RoomDirectory, dispatch *Dispatcher, source telemetry.Source, opts Options) *Coordinator {
	return &Coordinator{
		log:       logger,
		registry:  registry,
		rooms:     rooms,
		dispatch:  dispatch,
		source:    source,
		transfers: NewTransferStore(),
		streams:   newStreamSet(),
		opts:      opts.sanitized(),
	}
}

// Connect registers a new connection. The display name comes from the
// client-supplied value, falling back to a generated one; other connections
// get a userJoined event, the caller gets a private welcome.
func (c *Coordinator) Connect(connectionID, requestedName string) {
	name := requestedName
	if name == "" {
		short := connectionID
		if len(short) > 8 {
			short = short[:8]
		}
		name = "User_" + short
	}

	c.registry.Add(connectionID, name)
	metricActiveConnections.Set(float64(c.registry.Len()))

	status := protocol.ConnectionStatus{
		ConnectionID: connectionID,
		UserName:     name,
		IsConnected:  true,
		LastSeen:     time.Now().UTC(),
	}
	c.pushExcept(connectionID, protocol.TypeUserJoined, status)

	c.notify(connectionID, "Connected", fmt.Sprintf("Welcome %s! You are connected to the server.", name), protocol.NotificationSuccess)

	c.log.Info("hub.connect", "connectionId", connectionID, "userName", name)
}

// Disconnect tears down a connection's state: registry entry, room
// memberships, pending uploads, and any telemetry subscription. If the id was
// registered, every remaining connection gets a userLeft event. A transport
// error is logged and goes no further; cleanup is identical either way.
func (c *Coordinator) Disconnect(connectionID string, err error) {
	c.streams.stop(connectionID)
	c.transfers.DropAll(connectionID)
	c.rooms.LeaveAll(connectionID)

	name, registered := c.registry.Remove(connectionID)
	metricActiveConnections.Set(float64(c.registry.Len()))

	if registered {
		status := protocol.ConnectionStatus{
			ConnectionID: connectionID,
			UserName:     name,
			IsConnected:  false,
			LastSeen:     time.Now().UTC(),
		}
		c.pushAll(protocol.TypeUserLeft, status)
		c.log.Info("hub.disconnect", "connectionId", connectionID, "userName", name)
	}

	if err != nil {
		c.log.Error("hub.disconnect.error", "connectionId", connectionID, "err", err)
	}
}

// SendMessage broadcasts a global chat message to every connection, the
// sender included. The user field is caller-supplied and not checked against
// the registry; the global channel trusts the client by contract.
func (c *Coordinator) SendMessage(connectionID, user, text string) {
	msg := protocol.ChatMessage{User: user, Message: text, Timestamp: time.Now().UTC()}
	c.pushAll(protocol.TypeReceiveMessage, msg)
	metricMessagesTotal.WithLabelValues(scopeGlobal).Inc()

	c.log.Info("hub.message", "user", user)
}

// SendMessageToUser routes a private message. The sender name is resolved
// from the registry, never trusted from the payload. Both ends receive a
// receivePrivateMessage event whose from field names the conversation
// counterpart; an unknown target produces a single warning to the caller.
func (c *Coordinator) SendMessageToUser(connectionID, targetUser, text string) {
	senderName := c.registry.NameOf(connectionID)

	targetID, ok := c.registry.FindByName(targetUser)
	if !ok {
		c.notify(connectionID, "Delivery failed", fmt.Sprintf("User %s is not online.", targetUser), protocol.NotificationWarning)
		return
	}

	msg := protocol.ChatMessage{
		User:      senderName,
		Message:   text,
		Timestamp: time.Now().UTC(),
		Scope:     protocol.PrivateScope + senderName,
	}

	c.push(targetID, protocol.TypeReceivePrivateMessage, protocol.PrivateMessagePayload{From: senderName, Message: msg})
	c.push(connectionID, protocol.TypeReceivePrivateMessage, protocol.PrivateMessagePayload{From: targetUser, Message: msg})
	metricMessagesTotal.WithLabelValues(scopePrivate).Inc()

	c.log.Info("hub.private", "from", senderName, "to", targetUser)
}

// SendTypingStatus relays the caller's typing state to everyone else. No
// debouncing happens here; clients throttle on their side.
func (c *Coordinator) SendTypingStatus(connectionID string, isTyping bool) {
	name := c.registry.NameOf(connectionID)
	c.pushExcept(connectionID, protocol.TypeUserTyping, protocol.TypingEventPayload{UserName: name, IsTyping: isTyping})
}

// JoinRoom adds the connection to the room, creating it on first join, and
// announces the join to the whole room. Returns the updated room info.
func (c *Coordinator) JoinRoom(connectionID, roomName string) protocol.RoomInfo {
	info := c.rooms.Join(roomName, connectionID)
	metricRooms.Set(float64(c.rooms.Count()))

	name := c.registry.NameOf(connectionID)
	c.notifyRoom(roomName, "User joined", fmt.Sprintf("%s joined room %s", name, roomName))

	c.log.Info("hub.room.join", "userName", name, "room", roomName)
	return info
}

// LeaveRoom removes the connection from the room and tells the remaining
// members. Leaving a room the caller is not in is a silent no-op.
func (c *Coordinator) LeaveRoom(connectionID, roomName string) {
	name := c.registry.NameOf(connectionID)
	c.rooms.Leave(roomName, connectionID)

	c.notifyRoom(roomName, "User left", fmt.Sprintf("%s left room %s", name, roomName))

	c.log.Info("hub.room.leave", "userName", name, "room", roomName)
}

// SendMessageToRoom delivers a message to the room's membership as of the
// send. The scope tag carries the room name so clients route it to the right
// view.
func (c *Coordinator) SendMessageToRoom(connectionID, roomName, text string) {
	name := c.registry.NameOf(connectionID)
	msg := protocol.ChatMessage{User: name, Message: text, Timestamp: time.Now().UTC(), Scope: roomName}

	frame, err := protocol.Encode(protocol.TypeReceiveMessage, msg)
	if err != nil {
		c.log.Error("hub.encode", "type", protocol.TypeReceiveMessage, "err", err)
		return
	}
	c.dispatch.SendToMany(c.rooms.Members(roomName), frame)
	metricMessagesTotal.WithLabelValues(scopeRoom).Inc()

	c.log.Info("hub.room.message", "userName", name, "room", roomName)
}

// OnlineUsers snapshots the registry. Connections are connected by
// definition, and lastSeen is synthesized at snapshot time; per-connection
// activity is not tracked.
func (c *Coordinator) OnlineUsers() []protocol.ConnectionStatus {
	now := time.Now().UTC()
	entries := c.registry.All()

	users := make([]protocol.ConnectionStatus, 0, len(entries))
	for _, e := range entries {
		users = append(users, protocol.ConnectionStatus{
			ConnectionID: e.ConnectionID,
			UserName:     e.UserName,
			IsConnected:  true,
			LastSeen:     now,
		})
	}
	return users
}

// Rooms lists every room, busiest first.
func (c *Coordinator) Rooms() []protocol.RoomInfo {
	return c.rooms.ListRooms()
}

// StartMonitoring begins the connection's telemetry stream: one snapshot per
// configured interval until StopMonitoring, Disconnect, or a replacing
// StartMonitoring. Each connection's stream is independent.
func (c *Coordinator) StartMonitoring(connectionID string) {
	ctx := c.streams.start(connectionID)

	go func() {
		defer c.streams.drop(connectionID, ctx)
		runStream(ctx, c.dispatch, c.source, connectionID, c.opts.MonitoringInterval)
	}()

	c.log.Info("hub.monitor.start", "connectionId", connectionID)
}

// StopMonitoring cancels the connection's telemetry stream, if any. The
// stream observes cancellation within one emission interval.
func (c *Coordinator) StopMonitoring(connectionID string) {
	c.streams.stop(connectionID)
	c.log.Info("hub.monitor.stop", "connectionId", connectionID)
}

// ActiveStreams reports how many telemetry subscriptions are live.
func (c *Coordinator) ActiveStreams() int {
	return c.streams.active()
}

// UploadFileChunk accumulates one chunk and pushes a progress event to the
// uploader. When the declared total is reached the entry is discarded, the
// uploader gets a completion notification, and the call reports true.
func (c *Coordinator) UploadFileChunk(connectionID, fileName string, chunk []byte, chunkIndex, totalChunks int) bool {
	if totalChunks < 1 {
		c.notify(connectionID, "Upload failed", fmt.Sprintf("File %s declared no chunks.", fileName), protocol.NotificationError)
		return false
	}

	received, complete := c.transfers.Put(connectionID, fileName, chunkIndex, totalChunks, chunk)

	chunkSize := int64(c.opts.FileChunkSize)
	progress := protocol.FileUploadProgress{
		FileName:        fileName,
		TotalBytes:      int64(totalChunks) * chunkSize,
		UploadedBytes:   int64(received) * chunkSize,
		PercentComplete: float64(received) / float64(totalChunks) * 100,
	}
	c.push(connectionID, protocol.TypeFileUploadProgress, progress)

	if complete {
		c.notify(connectionID, "Upload complete", fmt.Sprintf("File %s uploaded successfully!", fileName), protocol.NotificationSuccess)
		c.log.Info("hub.upload.complete", "fileName", fileName, "connectionId", connectionID)
		return true
	}
	return false
}

// push encodes and queues one event for a single connection.
func (c *Coordinator) push(connectionID string, t protocol.Type, payload any) {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		c.log.Error("hub.encode", "type", t, "err", err)
		return
	}
	c.dispatch.SendTo(connectionID, frame)
}

func (c *Coordinator) pushAll(t protocol.Type, payload any) {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		c.log.Error("hub.encode", "type", t, "err", err)
		return
	}
	c.dispatch.Broadcast(frame)
}

func (c *Coordinator) pushExcept(exceptID string, t protocol.Type, payload any) {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		c.log.Error("hub.encode", "type", t, "err", err)
		return
	}
	c.dispatch.BroadcastExcept(exceptID, frame)
}

func (c *Coordinator) notify(connectionID, title, content string, nt protocol.NotificationType) {
	c.push(connectionID, protocol.TypeReceiveNotification, protocol.SystemNotification{
		Title:     title,
		Content:   content,
		Type:      nt,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Coordinator) notifyRoom(roomName, title, content string) {
	frame, err := protocol.Encode(protocol.TypeReceiveNotification, protocol.SystemNotification{
		Title:     title,
		Content:   content,
		Type:      protocol.NotificationInfo,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		c.log.Error("hub.encode", "type", protocol.TypeReceiveNotification, "err", err)
		return
	}
	c.dispatch.SendToMany(c.rooms.Members(roomName), frame)
}
