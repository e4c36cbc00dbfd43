package search

import (
	"strconv"

	"github.com/nikbrunner/folderlink/internal/model"
	"github.com/sahilm/fuzzy"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Peer           model.Peer
	MatchedIndexes []int
	Score          int
}

// peerTitles implements fuzzy.Source for a peer slice.
type peerTitles []model.Peer

func (pt peerTitles) String(i int) string {
	if pt[i].Username != "" {
		return pt[i].Title + " @" + pt[i].Username
	}
	return pt[i].Title
}

func (pt peerTitles) Len() int {
	return len(pt)
}

// FuzzySearchPeers searches peers by title and username using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearchPeers(peers []model.Peer, query string) []SearchResult {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, peerTitles(peers))

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Peer:           peers[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// ResolvePeerIDs turns each query into a peer id. Numeric queries are taken
// as ids; anything else resolves to the best fuzzy match. Queries with no
// match are returned in unmatched.
func ResolvePeerIDs(peers []model.Peer, queries []string) (ids []model.PeerID, unmatched []string) {
	for _, q := range queries {
		if id, err := strconv.ParseInt(q, 10, 64); err == nil {
			ids = append(ids, model.PeerID(id))
			continue
		}
		results := FuzzySearchPeers(peers, q)
		if len(results) == 0 {
			unmatched = append(unmatched, q)
			continue
		}
		ids = append(ids, results[0].Peer.ID)
	}
	return ids, unmatched
}
