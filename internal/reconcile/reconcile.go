// Package reconcile merges server-supplied peer lists with the local
// directory and computes which of them the account has already joined.
package reconcile

import "github.com/nikbrunner/folderlink/internal/model"

// Snapshot is a consistent read view of the local store.
type Snapshot interface {
	Peer(id model.PeerID) (*model.Peer, error)
	ChatListIndex(id model.PeerID) (*model.ChatListIndex, error)
}

// Result is a de-duplicated peer list and the subset already joined.
type Result struct {
	Peers         []model.Peer
	AlreadyMember model.PeerIDSet
}

// Engine evaluates candidates against a single Snapshot.
type Engine struct {
	snap Snapshot
}

// New creates an Engine reading from snap.
func New(snap Snapshot) *Engine {
	return &Engine{snap: snap}
}

// Resolve looks up ids in the local directory. Unknown ids are dropped.
func (e *Engine) Resolve(ids []model.PeerID) ([]model.Peer, error) {
	peers := make([]model.Peer, 0, len(ids))
	for _, id := range ids {
		peer, err := e.snap.Peer(id)
		if err != nil {
			return nil, err
		}
		if peer != nil {
			peers = append(peers, *peer)
		}
	}
	return peers, nil
}

// Filter returns the peers for which keep is true, in order.
func Filter(peers []model.Peer, keep func(model.Peer) bool) []model.Peer {
	var result []model.Peer
	for _, p := range peers {
		if keep(p) {
			result = append(result, p)
		}
	}
	return result
}

// Merge concatenates groups, keeping each peer at its first occurrence,
// and checks chat-list membership exactly once per peer.
func (e *Engine) Merge(groups ...[]model.Peer) (Result, error) {
	result := Result{
		Peers:         []model.Peer{},
		AlreadyMember: model.PeerIDSet{},
	}
	seen := model.PeerIDSet{}
	for _, group := range groups {
		for _, peer := range group {
			if seen.Contains(peer.ID) {
				continue
			}
			seen.Add(peer.ID)
			result.Peers = append(result.Peers, peer)

			index, err := e.snap.ChatListIndex(peer.ID)
			if err != nil {
				return Result{}, err
			}
			if index != nil {
				result.AlreadyMember.Add(peer.ID)
			}
		}
	}
	return result, nil
}
