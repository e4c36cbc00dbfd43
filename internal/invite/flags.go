package invite

import "github.com/nikbrunner/folderlink/internal/model"

// EditFlags marks which optional fields of an edit request are meaningful.
// An unset bit leaves the field unchanged on the server.
type EditFlags int32

const (
	EditRevoke EditFlags = 1 << iota
	EditTitle
	EditPeers
)

// NewEditFlags computes the flags for an edit. A nil peerIDs slice means
// the peer list is not being changed; an empty non-nil slice clears it.
func NewEditFlags(revoke bool, title *string, peerIDs []model.PeerID) EditFlags {
	var flags EditFlags
	if revoke {
		flags |= EditRevoke
	}
	if title != nil {
		flags |= EditTitle
	}
	if peerIDs != nil {
		flags |= EditPeers
	}
	return flags
}

// Has reports whether every bit in f is set.
func (flags EditFlags) Has(f EditFlags) bool {
	return flags&f == f
}
