package invite

import (
	"context"

	"github.com/nikbrunner/folderlink/internal/model"
)

// Transport performs the remote folder-invite calls.
// Failures reported by the server are returned as *RPCError.
type Transport interface {
	ExportInvite(ctx context.Context, folder FolderRef, title string, peers []InputPeer) (*ExportedFolder, error)
	GetExportedInvites(ctx context.Context, folder FolderRef) (*ExportedInvites, error)
	EditExportedInvite(ctx context.Context, req EditRequest) (*ExportedInvite, error)
	DeleteExportedInvite(ctx context.Context, folder FolderRef, slug string) error
	CheckInvite(ctx context.Context, slug string) (CheckResult, error)
	JoinInvite(ctx context.Context, slug string, peers []InputPeer) (model.Updates, error)
	GetUpdates(ctx context.Context, folder FolderRef) (*FolderUpdates, error)
	JoinUpdates(ctx context.Context, folder FolderRef, peers []InputPeer) (model.Updates, error)
	HideUpdates(ctx context.Context, folder FolderRef) error
}

// Store runs functions against the local peer directory and filter registry.
// Each call is one short transaction; Update commits only when fn returns nil.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the local store as seen inside a transaction.
type Tx interface {
	// Peer returns nil when id is unknown.
	Peer(id model.PeerID) (*model.Peer, error)
	// ChatListIndex returns nil when the account has not joined id.
	ChatListIndex(id model.PeerID) (*model.ChatListIndex, error)
	UpsertPeers(peers []model.Peer) error
	UpsertPresences(presences map[model.PeerID]model.Presence) error
	FilterState() (model.FilterState, error)
	UpdateFilterState(fn func(model.FilterState) model.FilterState) error
}

// UpdateSink receives state-update payloads produced by join operations.
type UpdateSink interface {
	AddUpdates(ctx context.Context, updates model.Updates)
}

// UpdateSinkFunc adapts a function to UpdateSink.
type UpdateSinkFunc func(ctx context.Context, updates model.Updates)

func (f UpdateSinkFunc) AddUpdates(ctx context.Context, updates model.Updates) {
	f(ctx, updates)
}
