// Package service exposes folder invite links to application code.
package service

import (
	"context"
	"errors"

	"github.com/nikbrunner/folderlink/internal/invite"
	"github.com/nikbrunner/folderlink/internal/logger"
	"github.com/nikbrunner/folderlink/internal/model"
	"github.com/nikbrunner/folderlink/internal/reconcile"
)

var (
	ErrEmptySlug      = errors.New("empty folder link")
	ErrFolderNotFound = errors.New("folder not found")
)

// Service is the folder-link API. Calls that change a folder's links are
// serialized per folder id; calls for different folders run concurrently.
type Service struct {
	client *invite.Client
	store  invite.Store
	locks  *folderLocks
}

// Params holds the dependencies of a Service.
type Params struct {
	Client *invite.Client
	Store  invite.Store
}

// New creates a Service.
func New(params Params) *Service {
	return &Service{
		client: params.Client,
		store:  params.Store,
		locks:  newFolderLocks(),
	}
}

// EditParams describes an edit. Nil fields are left unchanged; a non-nil
// empty PeerIDs clears the link's peers.
type EditParams struct {
	Title   *string
	PeerIDs []model.PeerID
	Revoke  bool
}

// ShareablePeers returns the peers of the local folder that may be attached
// to a link, in folder order.
func (s *Service) ShareablePeers(ctx context.Context, folderID int32) ([]model.Peer, error) {
	_, peers, err := s.localFolder(ctx, folderID)
	return peers, err
}

// localFolder reads the folder's title and shareable peers in one transaction.
func (s *Service) localFolder(ctx context.Context, folderID int32) (string, []model.Peer, error) {
	var title string
	var peers []model.Peer
	err := s.store.View(ctx, func(tx invite.Tx) error {
		state, err := tx.FilterState()
		if err != nil {
			return err
		}
		folder := state.GetFolderByID(folderID)
		if folder == nil {
			return ErrFolderNotFound
		}
		resolved, err := reconcile.New(tx).Resolve(folder.IncludePeers)
		if err != nil {
			return err
		}
		title = folder.Title
		peers = reconcile.Filter(resolved, model.CanShareLink)
		return nil
	})
	return title, peers, err
}

// CreateLink exports a link with every shareable peer of the local folder.
// An empty title uses the folder's title.
func (s *Service) CreateLink(ctx context.Context, folderID int32, title string) (model.FolderLink, error) {
	folderTitle, peers, err := s.localFolder(ctx, folderID)
	if err != nil {
		return model.FolderLink{}, err
	}
	if title == "" {
		title = folderTitle
	}
	ids := make([]model.PeerID, len(peers))
	for i, p := range peers {
		ids[i] = p.ID
	}
	return s.ExportLink(ctx, folderID, title, ids)
}

// ExportLink creates a link with the given peers.
func (s *Service) ExportLink(ctx context.Context, folderID int32, title string, peerIDs []model.PeerID) (model.FolderLink, error) {
	unlock, err := s.locks.lock(ctx, folderID)
	if err != nil {
		return model.FolderLink{}, err
	}
	defer unlock()

	link, err := s.client.Export(ctx, folderID, title, peerIDs)
	if err != nil {
		logger.FromContext(ctx).Warn("export folder link", "folder_id", folderID, "error", err)
		return model.FolderLink{}, err
	}
	logger.FromContext(ctx).Info("exported folder link", "folder_id", folderID, "slug", link.Slug(), "peers", len(link.PeerIDs))
	return link, nil
}

// Links returns the folder's links, or nil when they are unknown.
func (s *Service) Links(ctx context.Context, folderID int32) []model.FolderLink {
	return s.client.List(ctx, folderID)
}

// EditLink applies params to link.
func (s *Service) EditLink(ctx context.Context, folderID int32, link model.FolderLink, params EditParams) (model.FolderLink, error) {
	unlock, err := s.locks.lock(ctx, folderID)
	if err != nil {
		return model.FolderLink{}, err
	}
	defer unlock()

	updated, err := s.client.Edit(ctx, folderID, link, params.Title, params.PeerIDs, params.Revoke)
	if err != nil {
		logger.FromContext(ctx).Warn("edit folder link", "folder_id", folderID, "slug", link.Slug(), "error", err)
		return model.FolderLink{}, err
	}
	return updated, nil
}

// RevokeLink marks link revoked, leaving its title and peers unchanged.
func (s *Service) RevokeLink(ctx context.Context, folderID int32, link model.FolderLink) (model.FolderLink, error) {
	return s.EditLink(ctx, folderID, link, EditParams{Revoke: true})
}

// DeleteLink deletes link on the server.
func (s *Service) DeleteLink(ctx context.Context, folderID int32, link model.FolderLink) error {
	unlock, err := s.locks.lock(ctx, folderID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.client.Delete(ctx, folderID, link); err != nil {
		logger.FromContext(ctx).Warn("delete folder link", "folder_id", folderID, "slug", link.Slug(), "error", err)
		return err
	}
	return nil
}

// CheckLink resolves a link or bare slug.
func (s *Service) CheckLink(ctx context.Context, link string) (*model.FolderLinkContents, error) {
	slug := model.Slug(link)
	if slug == "" {
		return nil, ErrEmptySlug
	}
	return s.client.Check(ctx, slug)
}

// JoinLink joins the folder behind a link or bare slug with the chosen peers.
func (s *Service) JoinLink(ctx context.Context, link string, peerIDs []model.PeerID) error {
	slug := model.Slug(link)
	if slug == "" {
		return ErrEmptySlug
	}
	if err := s.client.Join(ctx, slug, peerIDs); err != nil {
		logger.FromContext(ctx).Warn("join folder link", "slug", slug, "error", err)
		return err
	}
	logger.FromContext(ctx).Info("joined folder link", "slug", slug, "peers", len(peerIDs))
	return nil
}

// PendingUpdates returns peers added to a joined folder, or nil when none
// are known.
func (s *Service) PendingUpdates(ctx context.Context, folderID int32) *model.PendingFolderUpdate {
	return s.client.GetUpdates(ctx, folderID)
}

// JoinAvailable joins peers added to an already joined folder.
func (s *Service) JoinAvailable(ctx context.Context, folderID int32, peerIDs []model.PeerID) error {
	unlock, err := s.locks.lock(ctx, folderID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.client.JoinAvailable(ctx, folderID, peerIDs); err != nil {
		logger.FromContext(ctx).Warn("join folder updates", "folder_id", folderID, "error", err)
		return err
	}
	return nil
}

// HideUpdates stops update suggestions for the folder. It never fails.
func (s *Service) HideUpdates(ctx context.Context, folderID int32) {
	s.client.HideUpdates(ctx, folderID)
}

// Folders returns the local folders in display order.
func (s *Service) Folders(ctx context.Context) ([]model.Folder, error) {
	var folders []model.Folder
	err := s.store.View(ctx, func(tx invite.Tx) error {
		state, err := tx.FilterState()
		if err != nil {
			return err
		}
		folders = state.Filters
		return nil
	})
	return folders, err
}

// SaveFolder creates or replaces a local folder.
func (s *Service) SaveFolder(ctx context.Context, folder model.Folder) error {
	unlock, err := s.locks.lock(ctx, folder.ID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.Update(ctx, func(tx invite.Tx) error {
		return tx.UpdateFilterState(func(state model.FilterState) model.FilterState {
			state.UpsertFolder(folder)
			return state
		})
	})
}
