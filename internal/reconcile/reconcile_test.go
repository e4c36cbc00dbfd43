package reconcile

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/folderlink/internal/model"
)

// mapSnapshot is an in-memory Snapshot that counts membership lookups.
type mapSnapshot struct {
	peers   map[model.PeerID]model.Peer
	joined  model.PeerIDSet
	lookups map[model.PeerID]int
	err     error
}

func newSnapshot(peers []model.Peer, joined ...model.PeerID) *mapSnapshot {
	s := &mapSnapshot{
		peers:   map[model.PeerID]model.Peer{},
		joined:  model.NewPeerIDSet(joined...),
		lookups: map[model.PeerID]int{},
	}
	for _, p := range peers {
		s.peers[p.ID] = p
	}
	return s
}

func (s *mapSnapshot) Peer(id model.PeerID) (*model.Peer, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.peers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *mapSnapshot) ChatListIndex(id model.PeerID) (*model.ChatListIndex, error) {
	s.lookups[id]++
	if s.err != nil {
		return nil, s.err
	}
	if !s.joined.Contains(id) {
		return nil, nil
	}
	return &model.ChatListIndex{PeerID: id}, nil
}

func peer(id model.PeerID) model.Peer {
	return model.Peer{ID: id, Kind: model.PeerChannel}
}

func ids(peers []model.Peer) []model.PeerID {
	result := make([]model.PeerID, len(peers))
	for i, p := range peers {
		result[i] = p.ID
	}
	return result
}

func TestResolve_DropsUnknown(t *testing.T) {
	e := New(newSnapshot([]model.Peer{peer(1), peer(3)}))

	peers, err := e.Resolve([]model.PeerID{3, 2, 1})
	assert.NilError(t, err)
	assert.DeepEqual(t, ids(peers), []model.PeerID{3, 1})
}

func TestMerge_FirstOccurrenceWins(t *testing.T) {
	e := New(newSnapshot(nil))

	result, err := e.Merge(
		[]model.Peer{peer(3), peer(2)},
		[]model.Peer{peer(1), peer(2), peer(4)},
	)
	assert.NilError(t, err)
	assert.DeepEqual(t, ids(result.Peers), []model.PeerID{3, 2, 1, 4})
}

func TestMerge_DuplicateWithinGroup(t *testing.T) {
	e := New(newSnapshot(nil))

	result, err := e.Merge([]model.Peer{peer(5), peer(5), peer(6)})
	assert.NilError(t, err)
	assert.DeepEqual(t, ids(result.Peers), []model.PeerID{5, 6})
}

func TestMerge_MembershipEvaluatedOncePerPeer(t *testing.T) {
	snap := newSnapshot(nil, 2, 9)
	e := New(snap)

	result, err := e.Merge([]model.Peer{peer(1), peer(2)}, []model.Peer{peer(2), peer(3)})
	assert.NilError(t, err)
	assert.DeepEqual(t, result.AlreadyMember, model.NewPeerIDSet(2))
	for id, n := range snap.lookups {
		assert.Equal(t, n, 1, "peer %d looked up %d times", id, n)
	}
}

func TestMerge_AlreadyMemberSubsetOfPeers(t *testing.T) {
	e := New(newSnapshot(nil, 1, 2, 3))

	result, err := e.Merge([]model.Peer{peer(2)})
	assert.NilError(t, err)
	for id := range result.AlreadyMember {
		assert.Assert(t, result.AlreadyMember.Contains(id))
		found := false
		for _, p := range result.Peers {
			found = found || p.ID == id
		}
		assert.Assert(t, found, "member %d not in peers", id)
	}
}

func TestMerge_Empty(t *testing.T) {
	result, err := New(newSnapshot(nil)).Merge()
	assert.NilError(t, err)
	assert.Assert(t, result.Peers != nil)
	assert.Equal(t, len(result.AlreadyMember), 0)
}

func TestMerge_StoreError(t *testing.T) {
	snap := newSnapshot(nil)
	snap.err = errors.New("disk I/O")

	_, err := New(snap).Merge([]model.Peer{peer(1)})
	assert.ErrorContains(t, err, "disk I/O")
}

func TestFilter(t *testing.T) {
	peers := []model.Peer{peer(1), peer(2), peer(3)}
	odd := Filter(peers, func(p model.Peer) bool { return p.ID%2 == 1 })
	assert.DeepEqual(t, ids(odd), []model.PeerID{1, 3})
}
