package model

// CanShareLink reports whether peer may be attached to a shareable folder link.
// Only channels qualify: either the account administers the channel with the
// right to invite members, or the channel is public.
func CanShareLink(peer Peer) bool {
	if peer.Kind != PeerChannel {
		return false
	}
	if peer.AdminRights != nil && peer.AdminRights.Has(AdminInviteMembers) {
		return true
	}
	return peer.Username != ""
}
