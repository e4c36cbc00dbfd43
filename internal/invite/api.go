package invite

import "github.com/nikbrunner/folderlink/internal/model"

const inviteFlagRevoked int32 = 1 << 0

// FolderRef addresses a folder on the server by its filter id.
type FolderRef struct {
	FilterID int32 `json:"filter_id"`
}

// InputPeer is the transport-level reference to a peer.
type InputPeer struct {
	Kind       model.PeerKind `json:"kind"`
	ID         model.PeerID   `json:"id"`
	AccessHash int64          `json:"access_hash"`
}

// InputPeerFor converts a cached peer into a transport reference.
// Secret chats cannot be referenced remotely.
func InputPeerFor(peer model.Peer) (InputPeer, bool) {
	switch peer.Kind {
	case model.PeerUser, model.PeerGroup, model.PeerChannel:
		return InputPeer{Kind: peer.Kind, ID: peer.ID, AccessHash: peer.AccessHash}, true
	default:
		return InputPeer{}, false
	}
}

// ExportedInvite is an invite link as returned by the server.
type ExportedInvite struct {
	Flags int32
	Title string
	URL   string
	Peers []model.PeerID
}

// FolderLink converts the invite, keeping the server's peer order.
func (i ExportedInvite) FolderLink() model.FolderLink {
	peerIDs := make([]model.PeerID, len(i.Peers))
	copy(peerIDs, i.Peers)
	return model.FolderLink{
		Title:     i.Title,
		Link:      i.URL,
		PeerIDs:   peerIDs,
		IsRevoked: i.Flags&inviteFlagRevoked != 0,
	}
}

// ExportedFolder is the export response: the folder as the server now
// defines it plus the new invite.
type ExportedFolder struct {
	Filter model.Folder
	Invite ExportedInvite
}

// User is a user record with its optional presence.
type User struct {
	Peer     model.Peer
	Presence *model.Presence
}

// ExportedInvites is the list response with every referenced chat and user.
type ExportedInvites struct {
	Invites []ExportedInvite
	Chats   []model.Peer
	Users   []User
}

// EditRequest carries an edit. Only fields whose flag is set are sent.
type EditRequest struct {
	Flags  EditFlags
	Folder FolderRef
	Slug   string
	Title  *string
	Peers  []InputPeer
}

// FolderUpdates is the missing-peer delta of an already joined folder.
type FolderUpdates struct {
	MissingPeers []model.PeerID
	Chats        []model.Peer
	Users        []User
}

// CheckResult is one of the two shapes returned when checking a link:
// *InviteContents or *AlreadyJoinedContents.
type CheckResult interface {
	Accept(v CheckResultVisitor) error
}

// CheckResultVisitor must handle every CheckResult variant.
type CheckResultVisitor interface {
	VisitInvite(r *InviteContents) error
	VisitAlreadyJoined(r *AlreadyJoinedContents) error
}

// InviteContents is returned when the account has not joined the link.
type InviteContents struct {
	Title string
	Peers []model.PeerID
	Chats []model.Peer
	Users []User
}

func (r *InviteContents) Accept(v CheckResultVisitor) error {
	return v.VisitInvite(r)
}

// AlreadyJoinedContents is returned when the folder behind the link is
// already one of the account's folders.
type AlreadyJoinedContents struct {
	FilterID     int32
	MissingPeers []model.PeerID
	Chats        []model.Peer
	Users        []User
}

func (r *AlreadyJoinedContents) Accept(v CheckResultVisitor) error {
	return v.VisitAlreadyJoined(r)
}
