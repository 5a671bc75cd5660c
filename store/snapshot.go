// Package store owns the durable snapshot document: owner identity,
// room directory and message correlation table. The snapshot is the
// single source of persistent truth and is replaced atomically on save.
package store

// Room holds the administrator set of a named room.
type Room struct {
	Admins []int64 `json:"admins"`
}

// Entry preserves the origin of a relayed message so a later reply can
// be routed back to the sender. Entries are immutable once recorded.
type Entry struct {
	SenderID  int64  `json:"sender_id"`
	Room      string `json:"room"`
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
}

// Snapshot is the persisted state document. TokenSeq backs relay token
// generation and survives restarts so tokens are never reused.
type Snapshot struct {
	OwnerID     *int64           `json:"owner_id"`
	Rooms       map[string]Room  `json:"rooms"`
	Correlation map[string]Entry `json:"correlation"`
	TokenSeq    uint64           `json:"token_seq"`
}

// NewSnapshot returns an empty snapshot with initialized containers.
func NewSnapshot() Snapshot {
	return Snapshot{
		Rooms:       make(map[string]Room),
		Correlation: make(map[string]Entry),
	}
}

// Clone returns a deep copy so mutations can be prepared and persisted
// without touching the currently visible state.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Rooms:       make(map[string]Room, len(s.Rooms)),
		Correlation: make(map[string]Entry, len(s.Correlation)),
		TokenSeq:    s.TokenSeq,
	}
	if s.OwnerID != nil {
		owner := *s.OwnerID
		out.OwnerID = &owner
	}
	for name, room := range s.Rooms {
		admins := make([]int64, len(room.Admins))
		copy(admins, room.Admins)
		out.Rooms[name] = Room{Admins: admins}
	}
	for token, entry := range s.Correlation {
		out.Correlation[token] = entry
	}
	return out
}

// normalize ensures containers are non-nil after decoding.
func (s *Snapshot) normalize() {
	if s.Rooms == nil {
		s.Rooms = make(map[string]Room)
	}
	if s.Correlation == nil {
		s.Correlation = make(map[string]Entry)
	}
}
