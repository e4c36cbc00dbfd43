package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/folderlink/internal/invite"
	"github.com/nikbrunner/folderlink/internal/model"
	"github.com/nikbrunner/folderlink/internal/service"
	"github.com/nikbrunner/folderlink/internal/storage"
	"github.com/nikbrunner/folderlink/internal/transport"
)

// fakeAPI answers folder-invite methods from a per-method response table.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  map[string][]map[string]any
}

type fakeResponse struct {
	status int
	body   string
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(data, &body)

	a.mu.Lock()
	a.requests[method] = append(a.requests[method], body)
	resp, ok := a.responses[method]
	a.mu.Unlock()

	if !ok {
		resp = fakeResponse{status: http.StatusNotFound, body: `{"error_code": 404, "error_message": "METHOD_UNKNOWN"}`}
	}
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (a *fakeAPI) respond(method string, status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[method] = fakeResponse{status: status, body: body}
}

func (a *fakeAPI) lastRequest(t *testing.T, method string) map[string]any {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	reqs := a.requests[method]
	assert.Assert(t, len(reqs) > 0, "no %s request", method)
	return reqs[len(reqs)-1]
}

type fixture struct {
	svc   *service.Service
	api   *fakeAPI
	store *storage.SQLStore
	sunk  []model.Updates
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{responses: map[string]fakeResponse{}, requests: map[string][]map[string]any{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "svc.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{api: api, store: store}
	client := invite.NewClient(invite.ClientParams{
		Transport: transport.New(transport.Params{BaseURL: srv.URL}),
		Store:     store,
		Updates: invite.UpdateSinkFunc(func(_ context.Context, u model.Updates) {
			f.sunk = append(f.sunk, u)
		}),
	})
	f.svc = service.New(service.Params{Client: client, Store: store})
	return f
}

func rightsPtr(r model.AdminRights) *model.AdminRights { return &r }

func (f *fixture) seedFolder(t *testing.T) {
	t.Helper()
	err := f.store.Update(context.Background(), func(tx invite.Tx) error {
		err := tx.UpsertPeers([]model.Peer{
			{ID: 1, Kind: model.PeerChannel, Title: "Private"},
			{ID: 2, Kind: model.PeerChannel, Title: "Public", Username: "pub"},
			{ID: 3, Kind: model.PeerChannel, Title: "Mine", AdminRights: rightsPtr(model.AdminInviteMembers)},
			{ID: 4, Kind: model.PeerUser, Title: "Friend"},
		})
		if err != nil {
			return err
		}
		return tx.UpdateFilterState(func(state model.FilterState) model.FilterState {
			state.UpsertFolder(model.NewFolder(model.NewFolderParams{
				ID:           10,
				Title:        "Reading",
				IncludePeers: []model.PeerID{1, 2, 3, 4},
			}))
			return state
		})
	})
	assert.NilError(t, err)
}

func sentPeerIDs(req map[string]any) []float64 {
	var ids []float64
	for _, p := range req["peers"].([]any) {
		ids = append(ids, p.(map[string]any)["id"].(float64))
	}
	return ids
}

func TestService_ShareablePeers(t *testing.T) {
	f := newFixture(t)
	f.seedFolder(t)

	peers, err := f.svc.ShareablePeers(context.Background(), 10)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(peers, 2))
	assert.Equal(t, peers[0].ID, model.PeerID(2))
	assert.Equal(t, peers[1].ID, model.PeerID(3))

	_, err = f.svc.ShareablePeers(context.Background(), 99)
	assert.ErrorIs(t, err, service.ErrFolderNotFound)
}

func TestService_CreateLink(t *testing.T) {
	f := newFixture(t)
	f.seedFolder(t)
	f.api.respond("communities.exportInvite", http.StatusOK, `{
		"filter": {"id": 10, "title": "Reading", "include_peers": [1, 2, 3, 4]},
		"invite": {"flags": 0, "title": "Reading", "url": "https://t.me/folder/read", "peers": [2, 3]}
	}`)

	link, err := f.svc.CreateLink(context.Background(), 10, "")
	assert.NilError(t, err)
	assert.Equal(t, link.Slug(), "read")
	assert.DeepEqual(t, link.PeerIDs, []model.PeerID{2, 3})

	req := f.api.lastRequest(t, "communities.exportInvite")
	assert.Equal(t, req["title"], "Reading")
	assert.DeepEqual(t, sentPeerIDs(req), []float64{2, 3})
}

func TestService_CreateLink_UnknownFolder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateLink(context.Background(), 5, "x")
	assert.ErrorIs(t, err, service.ErrFolderNotFound)
}

func TestService_ExportLink_LimitExceeded(t *testing.T) {
	f := newFixture(t)
	f.seedFolder(t)
	f.api.respond("communities.exportInvite", http.StatusBadRequest, `{"error_code": 400, "error_message": "INVITES_TOO_MUCH"}`)

	_, err := f.svc.ExportLink(context.Background(), 10, "Reading", []model.PeerID{2})
	assert.ErrorIs(t, err, invite.ExportLimitExceeded)
}

func TestService_Links(t *testing.T) {
	f := newFixture(t)
	assert.Assert(t, f.svc.Links(context.Background(), 10) == nil, "unknown method must degrade to nil")

	f.api.respond("communities.getExportedInvites", http.StatusOK, `{
		"invites": [{"flags": 1, "title": "A", "url": "https://t.me/folder/a", "peers": []}],
		"chats": [], "users": []
	}`)
	links := f.svc.Links(context.Background(), 10)
	assert.Assert(t, is.Len(links, 1))
	assert.Assert(t, links[0].IsRevoked)
}

func TestService_RevokeLink(t *testing.T) {
	f := newFixture(t)
	f.api.respond("communities.editExportedInvite", http.StatusOK, `{"flags": 1, "title": "A", "url": "https://t.me/folder/a", "peers": [2]}`)

	link, err := f.svc.RevokeLink(context.Background(), 10, model.FolderLink{Link: "https://t.me/folder/a"})
	assert.NilError(t, err)
	assert.Assert(t, link.IsRevoked)

	req := f.api.lastRequest(t, "communities.editExportedInvite")
	assert.Equal(t, req["flags"], float64(invite.EditRevoke))
	assert.Equal(t, req["slug"], "a")
}

func TestService_EditLink_PeersAndTitle(t *testing.T) {
	f := newFixture(t)
	f.seedFolder(t)
	f.api.respond("communities.editExportedInvite", http.StatusOK, `{"flags": 0, "title": "New", "url": "https://t.me/folder/a", "peers": [3]}`)

	title := "New"
	_, err := f.svc.EditLink(context.Background(), 10, model.FolderLink{Link: "a"}, service.EditParams{
		Title:   &title,
		PeerIDs: []model.PeerID{3},
	})
	assert.NilError(t, err)

	req := f.api.lastRequest(t, "communities.editExportedInvite")
	assert.Equal(t, req["flags"], float64(invite.EditTitle|invite.EditPeers))
	assert.Equal(t, req["title"], "New")
	assert.DeepEqual(t, sentPeerIDs(req), []float64{3})
}

func TestService_DeleteLink(t *testing.T) {
	f := newFixture(t)
	f.api.respond("communities.deleteExportedInvite", http.StatusOK, `{}`)

	assert.NilError(t, f.svc.DeleteLink(context.Background(), 10, model.FolderLink{Link: "https://t.me/folder/a"}))
	assert.Equal(t, f.api.lastRequest(t, "communities.deleteExportedInvite")["slug"], "a")

	f.api.respond("communities.deleteExportedInvite", http.StatusBadRequest, `{"error_code": 400, "error_message": "INVITE_SLUG_EXPIRED"}`)
	err := f.svc.DeleteLink(context.Background(), 10, model.FolderLink{Link: "a"})
	assert.ErrorIs(t, err, invite.RevokeGeneric)
}

func TestService_CheckLink(t *testing.T) {
	f := newFixture(t)
	f.seedFolder(t)
	assert.NilError(t, f.store.SetChatListIndex(context.Background(), model.ChatListIndex{PeerID: 2, Order: 1}))
	f.api.respond("communities.checkInvite", http.StatusOK, `{
		"type": "communityInviteAlready", "filter_id": 10, "missing_peers": [5],
		"chats": [{"id": 5, "type": "channel", "title": "Fresh", "username": "fresh"}], "users": []
	}`)

	contents, err := f.svc.CheckLink(context.Background(), "https://t.me/folder/abc")
	assert.NilError(t, err)
	assert.Equal(t, f.api.lastRequest(t, "communities.checkInvite")["slug"], "abc")

	var ids []model.PeerID
	for _, p := range contents.Peers {
		ids = append(ids, p.ID)
	}
	assert.DeepEqual(t, ids, []model.PeerID{5, 2, 3})
	assert.DeepEqual(t, contents.AlreadyMemberPeerIDs, model.NewPeerIDSet(2))
	assert.Equal(t, *contents.Title, "Reading")
}

func TestService_CheckLink_EmptySlug(t *testing.T) {
	f := newFixture(t)

	for _, link := range []string{"", "https://t.me/folder/"} {
		_, err := f.svc.CheckLink(context.Background(), link)
		assert.ErrorIs(t, err, service.ErrEmptySlug)
		assert.ErrorIs(t, f.svc.JoinLink(context.Background(), link, nil), service.ErrEmptySlug)
	}
}

func TestService_JoinLink(t *testing.T) {
	f := newFixture(t)
	f.seedFolder(t)
	f.api.respond("communities.joinInvite", http.StatusOK, `{"updates": []}`)

	err := f.svc.JoinLink(context.Background(), "https://t.me/folder/abc", []model.PeerID{2, 3})
	assert.NilError(t, err)
	assert.Assert(t, is.Len(f.sunk, 1))
	assert.DeepEqual(t, sentPeerIDs(f.api.lastRequest(t, "communities.joinInvite")), []float64{2, 3})

	f.api.respond("communities.joinInvite", http.StatusBadRequest, `{"error_code": 400, "error_message": "DIALOG_FILTERS_TOO_MUCH"}`)
	err = f.svc.JoinLink(context.Background(), "abc", nil)
	assert.ErrorIs(t, err, invite.JoinLimitExceeded)
}

func TestService_Updates(t *testing.T) {
	f := newFixture(t)
	assert.Assert(t, f.svc.PendingUpdates(context.Background(), 10) == nil)

	f.api.respond("communities.getUpdates", http.StatusOK, `{"missing_peers": [7, 8], "chats": [], "users": []}`)
	updates := f.svc.PendingUpdates(context.Background(), 10)
	assert.Assert(t, updates != nil)
	assert.Equal(t, updates.AvailableChatsToJoin(), 2)

	f.api.respond("communities.joinUpdates", http.StatusOK, `{}`)
	assert.NilError(t, f.svc.JoinAvailable(context.Background(), 10, nil))
	assert.Assert(t, is.Len(f.sunk, 1))

	// hideUpdates is not configured: the failure is swallowed.
	f.svc.HideUpdates(context.Background(), 10)
}

func TestService_CancelledWhileWaitingForFolder(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ExportLink(ctx, 10, "x", nil)
	// Either the lock or the HTTP call observes the cancellation.
	assert.Assert(t, err != nil)
	assert.Assert(t, errors.Is(err, context.Canceled) || errors.Is(err, invite.ExportGeneric))
}

func TestService_SaveFolderAndFolders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NilError(t, f.svc.SaveFolder(ctx, model.NewFolder(model.NewFolderParams{ID: 3, Title: "Work"})))
	assert.NilError(t, f.svc.SaveFolder(ctx, model.NewFolder(model.NewFolderParams{ID: 1, Title: "News"})))
	assert.NilError(t, f.svc.SaveFolder(ctx, model.NewFolder(model.NewFolderParams{ID: 3, Title: "Job", IncludePeers: []model.PeerID{2}})))

	folders, err := f.svc.Folders(ctx)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(folders, 2))
	assert.Equal(t, folders[0].Title, "Job")
	assert.DeepEqual(t, folders[0].IncludePeers, []model.PeerID{2})
	assert.Equal(t, folders[1].ID, int32(1))
}
