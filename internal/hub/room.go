package hub

import (
	"crypto/sha1"
	"encoding/binary"
	"strings"
)

// RoomKey addresses a fan-out target: either all connections of one user
// or all connections of a channel's members. Keys are only built through
// UserRoom and ChannelRoom so user and channel ids can never collide.
type RoomKey string

const (
	userRoomPrefix    = "user:"
	channelRoomPrefix = "channel:"
)

// UserRoom returns the private room holding every connection of one user.
func UserRoom(userID string) RoomKey {
	return RoomKey(userRoomPrefix + userID)
}

// ChannelRoom returns the shared room holding the connections of a
// channel's members.
func ChannelRoom(channelID string) RoomKey {
	return RoomKey(channelRoomPrefix + channelID)
}

// IsUserRoom reports whether the key addresses a single user's room.
func (k RoomKey) IsUserRoom() bool {
	return strings.HasPrefix(string(k), userRoomPrefix)
}

func shardOf(s string) uint32 {
	if s == "" {
		return 0
	}
	h := sha1.Sum([]byte(s))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (k RoomKey) shard() uint32 {
	return shardOf(string(k))
}
