// Package ticsync orchestrates and verifies time-synchronized multi-device
// recordings. Grouping works on the sidecar metadata devices write next to
// each recording; verification works offline on exported IMU samples.
package ticsync

import (
	"sort"

	"github.com/wearlab/ariactl/device"
)

// SessionGroup is one shared ticsync session as found on connected devices:
// the server recording plus the client recordings that joined it.
type SessionGroup struct {
	SharedSessionID string
	Server          *device.DeviceRecording
	Clients         []device.DeviceRecording
}

// MissingClients reports a session where only the server recorded. That
// usually means the clients lost the hotspot before recording started.
func (g SessionGroup) MissingClients() bool {
	return g.Server != nil && len(g.Clients) == 0
}

// EndedAt is the session end time, taken from the server recording when
// present, otherwise the latest client.
func (g SessionGroup) EndedAt() (end int64) {
	if g.Server != nil {
		return g.Server.EndedAt().Unix()
	}
	for _, rec := range g.Clients {
		if t := rec.EndedAt().Unix(); t > end {
			end = t
		}
	}
	return end
}

// GroupRecordings groups recordings by shared session id, newest session
// first. Recordings without a shared session id (plain, non-ticsync
// recordings) are returned separately.
func GroupRecordings(recordings []device.DeviceRecording) (groups []SessionGroup, plain []device.DeviceRecording) {
	byID := make(map[string]*SessionGroup)

	for _, rec := range recordings {
		id := rec.Meta.SharedSessionID
		if id == "" {
			plain = append(plain, rec)
			continue
		}

		group, ok := byID[id]
		if !ok {
			group = &SessionGroup{SharedSessionID: id}
			byID[id] = group
		}

		switch rec.Meta.TicsyncMode {
		case device.TicsyncRoleServer:
			rec := rec
			group.Server = &rec
		default:
			group.Clients = append(group.Clients, rec)
		}
	}

	for _, group := range byID {
		sort.Slice(group.Clients, func(i, j int) bool {
			return group.Clients[i].UUID < group.Clients[j].UUID
		})
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		ti, tj := groups[i].EndedAt(), groups[j].EndedAt()
		if ti != tj {
			return ti > tj
		}
		return groups[i].SharedSessionID < groups[j].SharedSessionID
	})

	return groups, plain
}
