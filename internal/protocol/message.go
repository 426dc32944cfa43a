// Package protocol defines the JSON wire contract shared by the hub and its
// clients: a typed envelope plus the payload types carried inside it.
package protocol

import "time"

// Type identifies the kind of frame carried by an Envelope.
type Type string

// Client-to-server invocation types.
const (
	TypeSendMessage       Type = "sendMessage"
	TypeSendMessageToUser Type = "sendMessageToUser"
	TypeSendTypingStatus  Type = "sendTypingStatus"
	TypeJoinRoom          Type = "joinRoom"
	TypeLeaveRoom         Type = "leaveRoom"
	TypeSendMessageToRoom Type = "sendMessageToRoom"
	TypeGetOnlineUsers    Type = "getOnlineUsers"
	TypeGetRooms          Type = "getRooms"
	TypeStartMonitoring   Type = "startMonitoring"
	TypeStopMonitoring    Type = "stopMonitoring"
	TypeUploadFileChunk   Type = "uploadFileChunk"
)

// Server-to-client push event types.
const (
	TypeReceiveMessage        Type = "receiveMessage"
	TypeReceiveNotification   Type = "receiveNotification"
	TypeUserJoined            Type = "userJoined"
	TypeUserLeft              Type = "userLeft"
	TypeUserTyping            Type = "userTyping"
	TypeReceivePrivateMessage Type = "receivePrivateMessage"
	TypeReceiveMonitoringData Type = "receiveMonitoringData"
	TypeFileUploadProgress    Type = "fileUploadProgress"
	TypeOnlineUsers           Type = "onlineUsers"
	TypeRooms                 Type = "rooms"
	TypeUploadFileChunkResult Type = "uploadFileChunkResult"
	TypeRoomJoined            Type = "roomJoined"
)

// NotificationType classifies a SystemNotification for client rendering.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
)

// ChatMessage is an immutable chat payload. Scope routes it: empty means a
// global broadcast, "Private:<sender>" marks a private exchange, anything else
// is a room name.
type ChatMessage struct {
	User      string    `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Scope     string    `json:"scope,omitempty"`
}

// PrivateScope is the scope prefix applied to private chat messages.
const PrivateScope = "Private:"

// SystemNotification is a server-originated informational push.
type SystemNotification struct {
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
}

// ConnectionStatus describes one live connection for presence events and
// online-user listings.
type ConnectionStatus struct {
	ConnectionID string    `json:"connectionId"`
	UserName     string    `json:"userName"`
	IsConnected  bool      `json:"isConnected"`
	LastSeen     time.Time `json:"lastSeen"`
}

// RoomInfo is the client-visible view of a room.
type RoomInfo struct {
	RoomName  string `json:"roomName"`
	UserCount int    `json:"userCount"`
}

// FileUploadProgress reports chunked-upload progress back to the uploader.
type FileUploadProgress struct {
	FileName        string  `json:"fileName"`
	TotalBytes      int64   `json:"totalBytes"`
	UploadedBytes   int64   `json:"uploadedBytes"`
	PercentComplete float64 `json:"percentComplete"`
}

// TelemetrySnapshot is one emission of the monitoring stream.
type TelemetrySnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUUsage    float64   `json:"cpuUsage"`
	MemoryUsage float64   `json:"memoryUsage"`
	NetworkIn   float64   `json:"networkIn"`
	NetworkOut  float64   `json:"networkOut"`
}
