package board

import (
	"sort"

	"inkwire/internal/protocol"
)

// FlattenPresence collapses the transport's grouped presence state into one
// record per user id. If a user somehow carries several records (a re-track
// racing a reconnect), the earliest JoinedAt wins so the flattened view stays
// stable across deliveries. The result is ordered by seniority: the host
// first, then everyone else.
func FlattenPresence(state protocol.PresenceState) []protocol.PresenceMeta {
	flat := make([]protocol.PresenceMeta, 0, len(state))

	for userID, metas := range state {
		if len(metas) == 0 {
			continue
		}

		pick := metas[0]
		for _, m := range metas[1:] {
			if m.JoinedAt < pick.JoinedAt {
				pick = m
			}
		}
		pick.UserID = userID

		flat = append(flat, pick)
	}

	sort.Slice(flat, func(i, j int) bool {
		return senior(flat[i], flat[j])
	})

	return flat
}

// ElectHost returns the record that currently holds the host role: the
// oldest continuously connected participant. The role is never stored
// anywhere. Every caller derives it fresh from the presence view it holds,
// so a departed host is replaced implicitly on the next presence update.
//
// Election is a pure function of the set: any permutation of records yields
// the same answer. Equal join instants fall back to the lexicographically
// smaller user id, which keeps the outcome total and deterministic even when
// two clients join within the same millisecond.
func ElectHost(metas []protocol.PresenceMeta) (protocol.PresenceMeta, bool) {
	if len(metas) == 0 {
		return protocol.PresenceMeta{}, false
	}

	host := metas[0]
	for _, m := range metas[1:] {
		if senior(m, host) {
			host = m
		}
	}
	return host, true
}

// senior reports whether a joined strictly before b, breaking exact ties on
// user id.
func senior(a, b protocol.PresenceMeta) bool {
	if a.JoinedAt != b.JoinedAt {
		return a.JoinedAt < b.JoinedAt
	}
	return a.UserID < b.UserID
}
