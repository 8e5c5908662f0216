package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"` // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"`
	OnlineUsers []string        `json:"onlineUsers"`
	Rooms       RoomStats       `json:"rooms"`
	Clients     []ClientInfo    `json:"clients"`
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"` // open websocket connections
	UsersOnline    int `json:"usersOnline"`    // distinct users with a connection
}

// RoomStats holds fan-out room statistics
type RoomStats struct {
	TotalRooms   int        `json:"totalRooms"`
	ChannelRooms int        `json:"channelRooms"`
	RoomDetails  []RoomInfo `json:"roomDetails"`
}

// RoomInfo contains information about a single room
type RoomInfo struct {
	Key         string `json:"key"`
	UserRoom    bool   `json:"userRoom"`
	Connections int    `json:"connections"`
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
	Rooms    int    `json:"rooms"`
}
