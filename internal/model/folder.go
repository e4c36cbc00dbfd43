package model

// Folder is a user-defined chat-list filter: a named set of peers.
type Folder struct {
	ID           int32    `json:"id"`
	Title        string   `json:"title"`
	IncludePeers []PeerID `json:"includePeers"`
	ExcludePeers []PeerID `json:"excludePeers,omitempty"`
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	ID           int32
	Title        string
	IncludePeers []PeerID
}

// NewFolder creates a Folder with initialized peer lists.
func NewFolder(params NewFolderParams) Folder {
	include := params.IncludePeers
	if include == nil {
		include = []PeerID{}
	}
	return Folder{
		ID:           params.ID,
		Title:        params.Title,
		IncludePeers: include,
		ExcludePeers: []PeerID{},
	}
}
