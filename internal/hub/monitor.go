package hub

import (
	"context"

	"Chatline/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats(ctx context.Context) model.MonitorResponse {
	clients := ms.getClientList()
	rooms := ms.getRoomStats()

	online, err := ms.hub.presence.Snapshot(ctx)
	if err != nil {
		online = []string{}
	}

	status := "healthy"
	if len(clients) == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: model.ConnectionStats{TotalConnected: len(clients), UsersOnline: len(online)},
		OnlineUsers: online,
		Rooms:       rooms,
		Clients:     clients,
	}
}

// getRoomStats walks every shard and reports per-room occupancy.
func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for key, room := range bucket.rooms {
			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				Key:         string(key),
				UserRoom:    key.IsUserRoom(),
				Connections: len(room),
			})
			stats.TotalRooms++
			if !key.IsUserRoom() {
				stats.ChannelRooms++
			}
		}
		bucket.RUnlock()
	}

	return stats
}

// getClientList returns list of all connected clients
func (ms *MonitorService) getClientList() []model.ClientInfo {
	ms.hub.clientsMu.RLock()
	defer ms.hub.clientsMu.RUnlock()

	clients := make([]model.ClientInfo, 0, len(ms.hub.clients))
	for _, client := range ms.hub.clients {
		clients = append(clients, model.ClientInfo{
			ClientID: client.ID,
			UserID:   client.userID,
			Rooms:    len(client.trackedRooms()),
		})
	}
	return clients
}
