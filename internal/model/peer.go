package model

import "time"

// PeerID identifies a user, group or channel in the local directory.
type PeerID int64

// PeerKind distinguishes the kinds of peers a folder can reference.
type PeerKind int

const (
	PeerUser PeerKind = iota
	PeerGroup
	PeerChannel
	PeerSecretChat
)

func (k PeerKind) String() string {
	switch k {
	case PeerUser:
		return "user"
	case PeerGroup:
		return "group"
	case PeerChannel:
		return "channel"
	case PeerSecretChat:
		return "secret"
	default:
		return "unknown"
	}
}

// AdminRights is the bit set of administrator rights held in a channel.
type AdminRights uint32

const (
	AdminChangeInfo AdminRights = 1 << iota
	AdminPostMessages
	AdminEditMessages
	AdminDeleteMessages
	AdminBanUsers
	AdminInviteMembers
	AdminPinMessages
	AdminAddAdmins
)

// Has reports whether all rights in r are present.
func (a AdminRights) Has(r AdminRights) bool {
	return a&r == r
}

// Peer is the locally cached record of a user, group or channel.
type Peer struct {
	ID          PeerID       `json:"id"`
	Kind        PeerKind     `json:"kind"`
	Title       string       `json:"title"`
	Username    string       `json:"username,omitempty"`
	AccessHash  int64        `json:"accessHash"`
	AdminRights *AdminRights `json:"adminRights,omitempty"` // nil = not an admin
}

// Presence is the last known online status of a user.
type Presence struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// ChatListIndex is the position of a peer in the local chat list.
// A peer has one iff the account has joined it.
type ChatListIndex struct {
	PeerID PeerID `json:"peerId"`
	Order  int64  `json:"order"`
}

// PeerIDSet is an unordered set of peer ids.
type PeerIDSet map[PeerID]struct{}

// NewPeerIDSet builds a set from ids.
func NewPeerIDSet(ids ...PeerID) PeerIDSet {
	s := make(PeerIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s PeerIDSet) Contains(id PeerID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s PeerIDSet) Add(id PeerID) {
	s[id] = struct{}{}
}
