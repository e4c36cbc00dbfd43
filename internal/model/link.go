package model

import "strings"

// FolderLinkPrefix is the URL prefix of every folder invite link.
const FolderLinkPrefix = "https://t.me/folder/"

// FolderLink is a shareable invite link to a folder.
type FolderLink struct {
	Title     string   `json:"title"`
	Link      string   `json:"link"`
	PeerIDs   []PeerID `json:"peerIds"` // server order, never reordered
	IsRevoked bool     `json:"isRevoked"`
}

// Slug returns the server token identifying the link.
func (l FolderLink) Slug() string {
	return Slug(l.Link)
}

// Slug strips FolderLinkPrefix from link. Strings without the prefix are
// returned unchanged. The prefix is stripped until none is left so that
// Slug(Slug(x)) == Slug(x) for every x.
func Slug(link string) string {
	for strings.HasPrefix(link, FolderLinkPrefix) {
		link = link[len(FolderLinkPrefix):]
	}
	return link
}

// FolderLinkContents describes what joining a link would add.
type FolderLinkContents struct {
	LocalFilterID        *int32    // set when the folder already exists locally
	Title                *string
	Peers                []Peer    // unique by ID
	AlreadyMemberPeerIDs PeerIDSet // subset of Peers
}
