// Package relay implements message routing between anonymous senders
// and room administrators: the room directory, the correlation table
// that ties replies back to their original sender, and the fan-out
// dispatcher that delivers messages over a transport.
package relay

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"roomrelay/core/logger"
	"roomrelay/store"

	"log/slog"

	"github.com/samber/lo"
)

// Origin identifies a relayed inbound message: who sent it, which room
// it targeted and where the original message lives so replies can be
// forwarded verbatim.
type Origin struct {
	SenderID  int64
	Room      string
	ChatID    int64
	MessageID int
}

// RoomInfo is a read-only view of a room for listing and menus.
type RoomInfo struct {
	Name   string
	Admins []int64
}

// Service guards all persistent routing state behind a single mutex.
// Every mutation is prepared on a snapshot copy and persisted before
// it becomes visible, so an in-memory state is never ahead of disk.
type Service struct {
	mu    sync.RWMutex
	store store.Store
	snap  store.Snapshot
}

// NewService loads the snapshot and returns a ready service. A present
// but undecodable snapshot is returned as an error so the caller can
// refuse startup instead of silently clobbering state.
func NewService(st store.Store) (*Service, error) {
	snap, err := st.Load()
	if err != nil {
		return nil, err
	}
	logger.Info(logger.Background(), "relay", "state.loaded",
		slog.Int("count", len(snap.Rooms)),
		slog.Uint64("token_seq", snap.TokenSeq),
	)
	return &Service{store: st, snap: snap}, nil
}

// commit persists the candidate snapshot and installs it on success.
// Must be called with s.mu held for writing.
func (s *Service) commit(next store.Snapshot) error {
	if err := s.store.Save(next); err != nil {
		logger.Error(logger.Background(), "relay", "state.save_failed",
			slog.String("err", err.Error()),
		)
		return persistFailed(err)
	}
	s.snap = next
	return nil
}

// Owner returns the owner identity, if one has been claimed.
func (s *Service) Owner() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.OwnerID == nil {
		return 0, false
	}
	return *s.snap.OwnerID, true
}

// IsOwner reports whether the given user is the claimed owner.
func (s *Service) IsOwner(userID int64) bool {
	owner, ok := s.Owner()
	return ok && owner == userID
}

// ClaimOwner sets the owner exactly once. Any later claim fails with
// ErrOwnerAlreadySet, including a repeat claim by the current owner.
func (s *Service) ClaimOwner(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.OwnerID != nil {
		return ErrOwnerAlreadySet
	}
	next := s.snap.Clone()
	next.OwnerID = &userID
	if err := s.commit(next); err != nil {
		return err
	}
	logger.Info(logger.Background(), "relay", "owner.claimed",
		slog.Int64("owner_id", userID),
	)
	return nil
}

// CreateRoom adds a new empty room. The name must be non-empty after
// trimming; an existing room is never overwritten.
func (s *Service) CreateRoom(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &Error{code: ErrParse.code, text: "room name must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snap.Rooms[name]; exists {
		return ErrDuplicateRoom
	}
	next := s.snap.Clone()
	next.Rooms[name] = store.Room{Admins: []int64{}}
	if err := s.commit(next); err != nil {
		return err
	}
	logger.Info(logger.Background(), "relay", "room.created",
		slog.String("room", name),
	)
	return nil
}

// DeleteRoom removes a room and its admin set. Correlation entries
// pointing at the room are kept; Resolve reports them as stale.
func (s *Service) DeleteRoom(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snap.Rooms[name]; !exists {
		return ErrRoomNotFound
	}
	next := s.snap.Clone()
	delete(next.Rooms, name)
	if err := s.commit(next); err != nil {
		return err
	}
	logger.Info(logger.Background(), "relay", "room.deleted",
		slog.String("room", name),
	)
	return nil
}

// AddAdmin grants a user admin rights in a room. Adding an existing
// admin is a no-op and reported via the bool without touching disk.
func (s *Service) AddAdmin(room string, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.snap.Rooms[room]
	if !exists {
		return false, ErrRoomNotFound
	}
	if lo.Contains(current.Admins, userID) {
		return false, nil
	}
	next := s.snap.Clone()
	r := next.Rooms[room]
	r.Admins = append(r.Admins, userID)
	next.Rooms[room] = r
	if err := s.commit(next); err != nil {
		return false, err
	}
	logger.Info(logger.Background(), "relay", "admin.added",
		slog.String("room", room),
		slog.Int64("admin_id", userID),
	)
	return true, nil
}

// RemoveAdmin revokes admin rights in a room.
func (s *Service) RemoveAdmin(room string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.snap.Rooms[room]
	if !exists {
		return ErrRoomNotFound
	}
	if !lo.Contains(current.Admins, userID) {
		return ErrAdminNotFound
	}
	next := s.snap.Clone()
	r := next.Rooms[room]
	r.Admins = lo.Without(r.Admins, userID)
	next.Rooms[room] = r
	if err := s.commit(next); err != nil {
		return err
	}
	logger.Info(logger.Background(), "relay", "admin.removed",
		slog.String("room", room),
		slog.Int64("admin_id", userID),
	)
	return nil
}

// Rooms returns all rooms sorted by name.
func (s *Service) Rooms() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := lo.Keys(s.snap.Rooms)
	sort.Strings(names)
	out := make([]RoomInfo, 0, len(names))
	for _, name := range names {
		admins := make([]int64, len(s.snap.Rooms[name].Admins))
		copy(admins, s.snap.Rooms[name].Admins)
		out = append(out, RoomInfo{Name: name, Admins: admins})
	}
	return out
}

// Room returns a single room view.
func (s *Service) Room(name string) (RoomInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, exists := s.snap.Rooms[name]
	if !exists {
		return RoomInfo{}, ErrRoomNotFound
	}
	admins := make([]int64, len(room.Admins))
	copy(admins, room.Admins)
	return RoomInfo{Name: name, Admins: admins}, nil
}

// RoomExists reports whether a room is present in the directory.
func (s *Service) RoomExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.snap.Rooms[name]
	return exists
}

// CanReply reports whether a user may answer relayed messages: the
// owner or an admin of at least one room.
func (s *Service) CanReply(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap.OwnerID != nil && *s.snap.OwnerID == userID {
		return true
	}
	return lo.SomeBy(lo.Values(s.snap.Rooms), func(r store.Room) bool {
		return lo.Contains(r.Admins, userID)
	})
}

// RelayTargets validates a room for fan-out and returns its recipient
// set: the admins plus the owner, deduplicated. A room without admins
// is not relayable even when an owner exists.
func (s *Service) RelayTargets(room string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.snap.Rooms[room]
	if !exists {
		return nil, ErrRoomNotFound
	}
	if len(r.Admins) == 0 {
		return nil, ErrNoAdmins
	}
	targets := make([]int64, 0, len(r.Admins)+1)
	targets = append(targets, r.Admins...)
	if s.snap.OwnerID != nil {
		targets = append(targets, *s.snap.OwnerID)
	}
	return lo.Uniq(targets), nil
}

// Record stores the origin of an inbound message under a fresh token
// and returns the token. The sequence counter is persisted with the
// entry, so tokens stay unique across restarts.
func (s *Service) Record(o Origin) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Clone()
	next.TokenSeq++
	token := fmt.Sprintf("m%d-%d", next.TokenSeq, o.SenderID)
	next.Correlation[token] = store.Entry{
		SenderID:  o.SenderID,
		Room:      o.Room,
		ChatID:    o.ChatID,
		MessageID: o.MessageID,
	}
	if err := s.commit(next); err != nil {
		return "", err
	}
	logger.Debug(logger.Background(), "relay", "token.recorded",
		slog.String("token", token),
		slog.String("room", o.Room),
	)
	return token, nil
}

// Resolve looks up the origin behind a token. Tokens whose room has
// since been deleted resolve as not found, the reply path for them is
// intentionally closed.
func (s *Service) Resolve(token string) (Origin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.snap.Correlation[token]
	if !ok {
		return Origin{}, ErrTokenNotFound
	}
	if _, exists := s.snap.Rooms[entry.Room]; !exists {
		return Origin{}, &Error{code: ErrTokenNotFound.code, text: "correlation token stale, room deleted"}
	}
	return Origin{
		SenderID:  entry.SenderID,
		Room:      entry.Room,
		ChatID:    entry.ChatID,
		MessageID: entry.MessageID,
	}, nil
}
