package finder

import (
	"sort"
	"time"
)

// Phase partitions requests into the upcoming and historical views.
type Phase string

const (
	PhaseActive  Phase = "ACTIVE"
	PhaseExpired Phase = "EXPIRED"
)

// Classify reports whether a request still lies ahead of now. A request is
// EXPIRED only once its play end time is strictly before now; a game ending
// exactly at now is still ACTIVE. Play times carry no zone of their own, so
// they are interpreted in now's location.
func Classify(r *Request, now time.Time) Phase {
	if r.PlayEndTime.Time(now.Location()).Before(now) {
		return PhaseExpired
	}
	return PhaseActive
}

// Upcoming filters the active requests and orders them for the dashboard:
// play time ascending, requestId ascending on identical play times so list
// rendering is reproducible.
func Upcoming(requests []*Request, now time.Time) []*Request {
	active := make([]*Request, 0, len(requests))
	for _, req := range requests {
		if Classify(req, now) == PhaseActive {
			active = append(active, req)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if c := active[i].PlayTime.Compare(active[j].PlayTime); c != 0 {
			return c < 0
		}
		return active[i].RequestID < active[j].RequestID
	})

	return active
}

// HistoryGroup collects the expired requests of one calendar day.
type HistoryGroup struct {
	Date     time.Time
	Requests []*Request
}

// History filters the expired requests and groups them by the calendar date
// of their play time, most recent day first. Within a day requests are
// ordered by play time descending with requestId breaking ties.
func History(requests []*Request, now time.Time) []HistoryGroup {
	loc := now.Location()

	byDate := make(map[time.Time][]*Request)
	for _, req := range requests {
		if Classify(req, now) != PhaseExpired {
			continue
		}
		key := req.PlayTime.DateKey(loc)
		byDate[key] = append(byDate[key], req)
	}

	groups := make([]HistoryGroup, 0, len(byDate))
	for date, reqs := range byDate {
		sort.Slice(reqs, func(i, j int) bool {
			if c := reqs[i].PlayTime.Compare(reqs[j].PlayTime); c != 0 {
				return c > 0
			}
			return reqs[i].RequestID < reqs[j].RequestID
		})
		groups = append(groups, HistoryGroup{Date: date, Requests: reqs})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})

	return groups
}
