package model

// FilterState is the local folder-filter registry.
// Filters is the local list in display order; RemoteFilters is the last
// state known to match the server.
type FilterState struct {
	Filters       []Folder `json:"filters"`
	RemoteFilters []Folder `json:"remoteFilters"`
}

// NewFilterState creates an empty FilterState with initialized slices.
func NewFilterState() FilterState {
	return FilterState{
		Filters:       []Folder{},
		RemoteFilters: []Folder{},
	}
}

// GetFolderByID finds a folder by ID, returns nil if not found.
func (s *FilterState) GetFolderByID(id int32) *Folder {
	for i := range s.Filters {
		if s.Filters[i].ID == id {
			return &s.Filters[i]
		}
	}
	return nil
}

// UpsertFolder replaces the folder with the same ID or appends it.
func (s *FilterState) UpsertFolder(folder Folder) {
	if existing := s.GetFolderByID(folder.ID); existing != nil {
		*existing = folder
		return
	}
	s.Filters = append(s.Filters, folder)
}

// MarkSynced records the local filters as the remote-known state.
func (s *FilterState) MarkSynced() {
	remote := make([]Folder, len(s.Filters))
	for i, f := range s.Filters {
		remote[i] = f.clone()
	}
	s.RemoteFilters = remote
}

func (f Folder) clone() Folder {
	c := f
	c.IncludePeers = append([]PeerID(nil), f.IncludePeers...)
	c.ExcludePeers = append([]PeerID(nil), f.ExcludePeers...)
	return c
}
