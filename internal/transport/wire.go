package transport

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nikbrunner/folderlink/internal/invite"
	"github.com/nikbrunner/folderlink/internal/model"
)

const (
	checkTypeInvite        = "communityInvite"
	checkTypeInviteAlready = "communityInviteAlready"
)

type community struct {
	FilterID int32 `json:"filter_id"`
}

type inputPeer struct {
	Type       string `json:"type"`
	ID         int64  `json:"id"`
	AccessHash int64  `json:"access_hash"`
}

type chat struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Username    string  `json:"username,omitempty"`
	AccessHash  int64   `json:"access_hash"`
	AdminRights *uint32 `json:"admin_rights,omitempty"`
}

type userStatus struct {
	Online   bool  `json:"online"`
	LastSeen int64 `json:"was_online"` // unix seconds
}

type user struct {
	ID         int64       `json:"id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name,omitempty"`
	Username   string      `json:"username,omitempty"`
	AccessHash int64       `json:"access_hash"`
	Status     *userStatus `json:"status,omitempty"`
}

type exportedInvite struct {
	Flags int32   `json:"flags"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Peers []int64 `json:"peers"`
}

type dialogFilter struct {
	ID           int32   `json:"id"`
	Title        string  `json:"title"`
	IncludePeers []int64 `json:"include_peers"`
	ExcludePeers []int64 `json:"exclude_peers,omitempty"`
}

type exportInviteRequest struct {
	Community community   `json:"community"`
	Title     string      `json:"title"`
	Peers     []inputPeer `json:"peers"`
}

type exportInviteResponse struct {
	Filter dialogFilter   `json:"filter"`
	Invite exportedInvite `json:"invite"`
}

type communityRequest struct {
	Community community `json:"community"`
}

type exportedInvitesResponse struct {
	Invites []exportedInvite `json:"invites"`
	Chats   []chat           `json:"chats"`
	Users   []user           `json:"users"`
}

type editInviteRequest struct {
	Flags     int32       `json:"flags"`
	Community community   `json:"community"`
	Slug      string      `json:"slug"`
	Title     *string     `json:"title,omitempty"`
	Peers     []inputPeer `json:"peers,omitempty"`
}

type deleteInviteRequest struct {
	Community community `json:"community"`
	Slug      string    `json:"slug"`
}

type slugRequest struct {
	Slug string `json:"slug"`
}

type checkInviteResponse struct {
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Peers        []int64 `json:"peers"`
	FilterID     int32   `json:"filter_id"`
	MissingPeers []int64 `json:"missing_peers"`
	Chats        []chat  `json:"chats"`
	Users        []user  `json:"users"`
}

type joinInviteRequest struct {
	Slug  string      `json:"slug"`
	Peers []inputPeer `json:"peers"`
}

type joinUpdatesRequest struct {
	Community community   `json:"community"`
	Peers     []inputPeer `json:"peers"`
}

type updatesResponse struct {
	MissingPeers []int64 `json:"missing_peers"`
	Chats        []chat  `json:"chats"`
	Users        []user  `json:"users"`
}

type errorResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func peerType(kind model.PeerKind) string {
	switch kind {
	case model.PeerUser:
		return "user"
	case model.PeerGroup:
		return "chat"
	case model.PeerChannel:
		return "channel"
	default:
		return kind.String()
	}
}

func peerKind(typ string) (model.PeerKind, error) {
	switch typ {
	case "user":
		return model.PeerUser, nil
	case "chat":
		return model.PeerGroup, nil
	case "channel":
		return model.PeerChannel, nil
	default:
		return 0, fmt.Errorf("%w: unknown peer type %q", ErrInvalidResponse, typ)
	}
}

func toInputPeers(peers []invite.InputPeer) []inputPeer {
	result := make([]inputPeer, len(peers))
	for i, p := range peers {
		result[i] = inputPeer{Type: peerType(p.Kind), ID: int64(p.ID), AccessHash: p.AccessHash}
	}
	return result
}

func toPeerIDs(ids []int64) []model.PeerID {
	result := make([]model.PeerID, len(ids))
	for i, id := range ids {
		result[i] = model.PeerID(id)
	}
	return result
}

func (c chat) toPeer() (model.Peer, error) {
	kind, err := peerKind(c.Type)
	if err != nil {
		return model.Peer{}, err
	}
	p := model.Peer{
		ID:         model.PeerID(c.ID),
		Kind:       kind,
		Title:      c.Title,
		Username:   c.Username,
		AccessHash: c.AccessHash,
	}
	if c.AdminRights != nil {
		r := model.AdminRights(*c.AdminRights)
		p.AdminRights = &r
	}
	return p, nil
}

func toChats(chats []chat) ([]model.Peer, error) {
	result := make([]model.Peer, 0, len(chats))
	for _, c := range chats {
		p, err := c.toPeer()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

func (u user) toUser() invite.User {
	result := invite.User{
		Peer: model.Peer{
			ID:         model.PeerID(u.ID),
			Kind:       model.PeerUser,
			Title:      strings.TrimSpace(u.FirstName + " " + u.LastName),
			Username:   u.Username,
			AccessHash: u.AccessHash,
		},
	}
	if u.Status != nil {
		result.Presence = &model.Presence{
			Online:   u.Status.Online,
			LastSeen: time.Unix(u.Status.LastSeen, 0).UTC(),
		}
	}
	return result
}

func toUsers(users []user) []invite.User {
	result := make([]invite.User, len(users))
	for i, u := range users {
		result[i] = u.toUser()
	}
	return result
}

func (i exportedInvite) toInvite() invite.ExportedInvite {
	return invite.ExportedInvite{
		Flags: i.Flags,
		Title: i.Title,
		URL:   i.URL,
		Peers: toPeerIDs(i.Peers),
	}
}

func (f dialogFilter) toFolder() model.Folder {
	folder := model.NewFolder(model.NewFolderParams{
		ID:           f.ID,
		Title:        f.Title,
		IncludePeers: toPeerIDs(f.IncludePeers),
	})
	folder.ExcludePeers = toPeerIDs(f.ExcludePeers)
	return folder
}

func (r checkInviteResponse) toResult() (invite.CheckResult, error) {
	chats, err := toChats(r.Chats)
	if err != nil {
		return nil, err
	}
	switch r.Type {
	case checkTypeInvite:
		return &invite.InviteContents{
			Title: r.Title,
			Peers: toPeerIDs(r.Peers),
			Chats: chats,
			Users: toUsers(r.Users),
		}, nil
	case checkTypeInviteAlready:
		return &invite.AlreadyJoinedContents{
			FilterID:     r.FilterID,
			MissingPeers: toPeerIDs(r.MissingPeers),
			Chats:        chats,
			Users:        toUsers(r.Users),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown check result type %q", ErrInvalidResponse, r.Type)
	}
}

// rawUpdates keeps a join response as an opaque payload.
func rawUpdates(body []byte) model.Updates {
	return model.Updates{Raw: json.RawMessage(append([]byte(nil), body...))}
}
