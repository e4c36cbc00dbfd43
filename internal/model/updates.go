package model

import "encoding/json"

// Updates is an opaque state-update payload returned by join operations.
// It is forwarded as-is to the account's update pipeline.
type Updates struct {
	Raw json.RawMessage `json:"raw"`
}

// PendingFolderUpdate lists peers added to a joined folder since the account
// last caught up.
type PendingFolderUpdate struct {
	MissingPeers []PeerID
	Chats        []Peer
	Users        []Peer
}

// AvailableChatsToJoin is the number of peers the account could still join.
func (u PendingFolderUpdate) AvailableChatsToJoin() int {
	return len(u.MissingPeers)
}
