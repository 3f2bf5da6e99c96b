package village

import "sort"

// NotificationKey identifies a stall notice: one per (building type,
// missing resource) pair, so a starving building produces a single
// de-duplicated entry no matter how many ticks it stays stalled.
type NotificationKey struct {
	BuildingType string
	Resource     Resource
}

// NotificationBoard collects the user-facing notices a tick produces:
// keyed stall notices that persist while the condition reproduces, and a
// bounded feed of one-shot event messages (trade pauses and the like).
type NotificationBoard struct {
	limit  int
	stalls map[NotificationKey]string
	feed   []string
}

func NewNotificationBoard(limit int) *NotificationBoard {
	if limit <= 0 {
		limit = 50
	}
	return &NotificationBoard{
		limit:  limit,
		stalls: make(map[NotificationKey]string),
	}
}

func (nb *NotificationBoard) SetStall(key NotificationKey, message string) {
	nb.stalls[key] = message
}

func (nb *NotificationBoard) ClearStall(key NotificationKey) {
	delete(nb.stalls, key)
}

// ClearStallsFor drops every stall notice of one building type.
func (nb *NotificationBoard) ClearStallsFor(buildingType string) {
	for key := range nb.stalls {
		if key.BuildingType == buildingType {
			delete(nb.stalls, key)
		}
	}
}

// Push appends a one-shot message, dropping the oldest past the limit.
func (nb *NotificationBoard) Push(message string) {
	nb.feed = append(nb.feed, message)
	if len(nb.feed) > nb.limit {
		nb.feed = nb.feed[len(nb.feed)-nb.limit:]
	}
}

// Feed returns a copy of the pending messages without draining them.
func (nb *NotificationBoard) Feed() []string {
	return append([]string(nil), nb.feed...)
}

// DrainFeed returns and clears the pending one-shot messages.
func (nb *NotificationBoard) DrainFeed() []string {
	out := nb.feed
	nb.feed = nil
	return out
}

// Stalls returns active stall notices in a stable order.
func (nb *NotificationBoard) Stalls() []StallNotice {
	out := make([]StallNotice, 0, len(nb.stalls))
	for key, msg := range nb.stalls {
		out = append(out, StallNotice{
			BuildingType: key.BuildingType,
			Resource:     key.Resource.Key(),
			Message:      msg,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BuildingType != out[j].BuildingType {
			return out[i].BuildingType < out[j].BuildingType
		}
		return out[i].Resource < out[j].Resource
	})
	return out
}

// StallNotice is the read-only projection of one keyed notice.
type StallNotice struct {
	BuildingType string `json:"building_type"`
	Resource     string `json:"resource"`
	Message      string `json:"message"`
}
