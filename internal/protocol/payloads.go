package protocol

// Inbound invocation payloads.

// SendMessagePayload carries a global broadcast request. User is
// caller-supplied and deliberately not verified against the registry.
type SendMessagePayload struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// SendPrivatePayload addresses a message to a single user by display name.
type SendPrivatePayload struct {
	TargetUser string `json:"targetUser"`
	Message    string `json:"message"`
}

// TypingStatusPayload relays whether the caller is currently typing.
type TypingStatusPayload struct {
	IsTyping bool `json:"isTyping"`
}

// RoomPayload names a room for join/leave requests.
type RoomPayload struct {
	RoomName string `json:"roomName"`
}

// RoomMessagePayload carries a message scoped to a single room.
type RoomMessagePayload struct {
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
}

// UploadFileChunkPayload carries one chunk of a chunked file upload. Chunk
// travels base64-encoded on the wire via encoding/json.
type UploadFileChunkPayload struct {
	FileName    string `json:"fileName"`
	Chunk       []byte `json:"chunk"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
}

// Outbound event payloads.

// PrivateMessagePayload is pushed to both ends of a private exchange. From
// names the conversation counterpart: the recipient sees the sender's name,
// the sender's echo sees the target's name, so either client can route the
// message into the right private-chat view.
type PrivateMessagePayload struct {
	From    string      `json:"from"`
	Message ChatMessage `json:"message"`
}

// TypingEventPayload is relayed to every connection except the typist.
type TypingEventPayload struct {
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// OnlineUsersPayload answers a getOnlineUsers invocation.
type OnlineUsersPayload struct {
	Users []ConnectionStatus `json:"users"`
}

// RoomsPayload answers a getRooms invocation.
type RoomsPayload struct {
	Rooms []RoomInfo `json:"rooms"`
}

// UploadResultPayload answers an uploadFileChunk invocation.
type UploadResultPayload struct {
	FileName string `json:"fileName"`
	Complete bool   `json:"complete"`
}
