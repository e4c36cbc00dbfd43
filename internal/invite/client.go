package invite

import (
	"context"
	"log/slog"

	"github.com/nikbrunner/folderlink/internal/model"
	"github.com/nikbrunner/folderlink/internal/reconcile"
)

// Client issues folder-invite calls and applies their results to the local
// store. The store is never held open across a network call: peer references
// are read in one transaction and results are written in another.
type Client struct {
	transport Transport
	store     Store
	updates   UpdateSink
	log       *slog.Logger
}

// ClientParams holds the dependencies of a Client.
type ClientParams struct {
	Transport Transport
	Store     Store
	Updates   UpdateSink
	Logger    *slog.Logger // defaults to slog.Default()
}

// NewClient creates a Client.
func NewClient(params ClientParams) *Client {
	log := params.Logger
	if log == nil {
		log = slog.Default()
	}
	updates := params.Updates
	if updates == nil {
		updates = UpdateSinkFunc(func(context.Context, model.Updates) {})
	}
	return &Client{
		transport: params.Transport,
		store:     params.Store,
		updates:   updates,
		log:       log,
	}
}

// inputPeers resolves ids to transport references, silently dropping ids
// that are unknown locally or cannot be referenced remotely.
func (c *Client) inputPeers(ctx context.Context, ids []model.PeerID) ([]InputPeer, error) {
	result := make([]InputPeer, 0, len(ids))
	err := c.store.View(ctx, func(tx Tx) error {
		for _, id := range ids {
			peer, err := tx.Peer(id)
			if err != nil {
				return err
			}
			if peer == nil {
				continue
			}
			if input, ok := InputPeerFor(*peer); ok {
				result = append(result, input)
			}
		}
		return nil
	})
	return result, err
}

// Export creates a new invite link for the folder and records the folder
// definition returned by the server as the local and remote-known state.
func (c *Client) Export(ctx context.Context, folderID int32, title string, peerIDs []model.PeerID) (model.FolderLink, error) {
	peers, err := c.inputPeers(ctx, peerIDs)
	if err != nil {
		c.log.Error("resolve peers for export", "folder_id", folderID, "error", err)
		return model.FolderLink{}, ExportGeneric
	}

	result, err := c.transport.ExportInvite(ctx, FolderRef{FilterID: folderID}, title, peers)
	if err != nil {
		c.log.Debug("export invite failed", "folder_id", folderID, "error", err)
		return model.FolderLink{}, ClassifyExport(err)
	}

	err = c.store.Update(ctx, func(tx Tx) error {
		return tx.UpdateFilterState(func(state model.FilterState) model.FilterState {
			filter := result.Filter
			filter.ID = folderID
			state.UpsertFolder(filter)
			state.MarkSynced()
			return state
		})
	})
	if err != nil {
		c.log.Error("store exported folder", "folder_id", folderID, "error", err)
		return model.FolderLink{}, ExportGeneric
	}

	return result.Invite.FolderLink(), nil
}

// List returns every invite link of the folder. It returns nil when the
// links could not be fetched; callers must treat nil as unknown.
func (c *Client) List(ctx context.Context, folderID int32) []model.FolderLink {
	result, err := c.transport.GetExportedInvites(ctx, FolderRef{FilterID: folderID})
	if err != nil {
		c.log.Debug("list invites failed", "folder_id", folderID, "error", err)
		return nil
	}

	err = c.store.Update(ctx, func(tx Tx) error {
		return storeChatsAndUsers(tx, result.Chats, result.Users)
	})
	if err != nil {
		c.log.Error("store invite peers", "folder_id", folderID, "error", err)
		return nil
	}

	links := make([]model.FolderLink, 0, len(result.Invites))
	for _, invite := range result.Invites {
		links = append(links, invite.FolderLink())
	}
	return links
}

// Edit changes an existing link. A nil title or nil peerIDs leaves that
// field unchanged.
func (c *Client) Edit(ctx context.Context, folderID int32, link model.FolderLink, title *string, peerIDs []model.PeerID, revoke bool) (model.FolderLink, error) {
	req := EditRequest{
		Flags:  NewEditFlags(revoke, title, peerIDs),
		Folder: FolderRef{FilterID: folderID},
		Slug:   link.Slug(),
		Title:  title,
	}
	if req.Flags.Has(EditPeers) {
		peers, err := c.inputPeers(ctx, peerIDs)
		if err != nil {
			c.log.Error("resolve peers for edit", "folder_id", folderID, "error", err)
			return model.FolderLink{}, EditGeneric
		}
		req.Peers = peers
	}

	result, err := c.transport.EditExportedInvite(ctx, req)
	if err != nil {
		c.log.Debug("edit invite failed", "folder_id", folderID, "slug", req.Slug, "error", err)
		return model.FolderLink{}, ClassifyEdit(err)
	}
	return result.FolderLink(), nil
}

// Delete removes a link on the server. The local registry is untouched.
func (c *Client) Delete(ctx context.Context, folderID int32, link model.FolderLink) error {
	slug := link.Slug()
	if err := c.transport.DeleteExportedInvite(ctx, FolderRef{FilterID: folderID}, slug); err != nil {
		c.log.Debug("delete invite failed", "folder_id", folderID, "slug", slug, "error", err)
		return ClassifyRevoke(err)
	}
	return nil
}

// Check resolves a link without prior knowledge of its folder.
func (c *Client) Check(ctx context.Context, slug string) (*model.FolderLinkContents, error) {
	result, err := c.transport.CheckInvite(ctx, slug)
	if err != nil {
		c.log.Debug("check invite failed", "slug", slug, "error", err)
		return nil, ClassifyCheck(err)
	}

	var contents *model.FolderLinkContents
	err = c.store.Update(ctx, func(tx Tx) error {
		v := &checkVisitor{tx: tx}
		if err := result.Accept(v); err != nil {
			return err
		}
		contents = v.contents
		return nil
	})
	if err != nil {
		c.log.Error("apply checked invite", "slug", slug, "error", err)
		return nil, CheckGeneric
	}
	return contents, nil
}

// checkVisitor builds FolderLinkContents from either check response.
type checkVisitor struct {
	tx       Tx
	contents *model.FolderLinkContents
}

func (v *checkVisitor) VisitInvite(r *InviteContents) error {
	if err := storeChatsAndUsers(v.tx, r.Chats, r.Users); err != nil {
		return err
	}
	engine := reconcile.New(v.tx)
	peers, err := engine.Resolve(r.Peers)
	if err != nil {
		return err
	}
	merged, err := engine.Merge(peers)
	if err != nil {
		return err
	}

	title := r.Title
	v.contents = &model.FolderLinkContents{
		Title: &title,
		Peers: merged.Peers,
		// Membership is not reported for folders the account has not joined.
		AlreadyMemberPeerIDs: model.PeerIDSet{},
	}
	return nil
}

func (v *checkVisitor) VisitAlreadyJoined(r *AlreadyJoinedContents) error {
	if err := storeChatsAndUsers(v.tx, r.Chats, r.Users); err != nil {
		return err
	}

	state, err := v.tx.FilterState()
	if err != nil {
		return err
	}
	var title *string
	var localPeerIDs []model.PeerID
	if folder := state.GetFolderByID(r.FilterID); folder != nil {
		t := folder.Title
		title = &t
		localPeerIDs = folder.IncludePeers
	}

	engine := reconcile.New(v.tx)
	missing, err := engine.Resolve(r.MissingPeers)
	if err != nil {
		return err
	}
	local, err := engine.Resolve(localPeerIDs)
	if err != nil {
		return err
	}
	merged, err := engine.Merge(missing, reconcile.Filter(local, model.CanShareLink))
	if err != nil {
		return err
	}

	filterID := r.FilterID
	v.contents = &model.FolderLinkContents{
		LocalFilterID:        &filterID,
		Title:                title,
		Peers:                merged.Peers,
		AlreadyMemberPeerIDs: merged.AlreadyMember,
	}
	return nil
}

// Join adds the folder behind slug with the chosen peers.
func (c *Client) Join(ctx context.Context, slug string, peerIDs []model.PeerID) error {
	peers, err := c.inputPeers(ctx, peerIDs)
	if err != nil {
		c.log.Error("resolve peers for join", "slug", slug, "error", err)
		return JoinGeneric
	}

	updates, err := c.transport.JoinInvite(ctx, slug, peers)
	if err != nil {
		c.log.Debug("join invite failed", "slug", slug, "error", err)
		return ClassifyJoin(err)
	}
	c.updates.AddUpdates(ctx, updates)
	return nil
}

// GetUpdates returns peers added to a joined folder since the account last
// caught up, or nil when none could be fetched.
func (c *Client) GetUpdates(ctx context.Context, folderID int32) *model.PendingFolderUpdate {
	result, err := c.transport.GetUpdates(ctx, FolderRef{FilterID: folderID})
	if err != nil {
		c.log.Debug("get folder updates failed", "folder_id", folderID, "error", err)
		return nil
	}

	users := make([]model.Peer, 0, len(result.Users))
	for _, u := range result.Users {
		users = append(users, u.Peer)
	}
	return &model.PendingFolderUpdate{
		MissingPeers: result.MissingPeers,
		Chats:        result.Chats,
		Users:        users,
	}
}

// JoinAvailable joins peers added to an already joined folder.
func (c *Client) JoinAvailable(ctx context.Context, folderID int32, peerIDs []model.PeerID) error {
	peers, err := c.inputPeers(ctx, peerIDs)
	if err != nil {
		c.log.Error("resolve peers for join updates", "folder_id", folderID, "error", err)
		return JoinGeneric
	}

	updates, err := c.transport.JoinUpdates(ctx, FolderRef{FilterID: folderID}, peers)
	if err != nil {
		c.log.Debug("join folder updates failed", "folder_id", folderID, "error", err)
		return ClassifyJoin(err)
	}
	c.updates.AddUpdates(ctx, updates)
	return nil
}

// HideUpdates asks the server to stop suggesting updates for the folder.
// Failures are ignored.
func (c *Client) HideUpdates(ctx context.Context, folderID int32) {
	if err := c.transport.HideUpdates(ctx, FolderRef{FilterID: folderID}); err != nil {
		c.log.Debug("hide folder updates failed", "folder_id", folderID, "error", err)
	}
}

// storeChatsAndUsers upserts peers referenced by a response.
func storeChatsAndUsers(tx Tx, chats []model.Peer, users []User) error {
	peers := make([]model.Peer, 0, len(chats)+len(users))
	presences := make(map[model.PeerID]model.Presence)
	for _, u := range users {
		peers = append(peers, u.Peer)
		if u.Presence != nil {
			presences[u.Peer.ID] = *u.Presence
		}
	}
	peers = append(peers, chats...)

	if err := tx.UpsertPeers(peers); err != nil {
		return err
	}
	return tx.UpsertPresences(presences)
}
