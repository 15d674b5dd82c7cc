package query

import (
	"sort"
	"time"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

func sortByVersionAsc(events []types.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].VersionDate.Equal(events[j].VersionDate) {
			return events[i].VersionDate.Before(events[j].VersionDate)
		}
		return events[i].ID < events[j].ID
	})
}

func sortTimesAsc(times []time.Time) {
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
}
