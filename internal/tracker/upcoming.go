package tracker

import (
	"fmt"
	"sort"
	"time"

	"forgewatch/pkg/logx"
	"forgewatch/pkg/timefmt"
)

// logUpcoming prints the "next potential notifications" digest: per user,
// in-progress items sorted by completion, with identical lines compacted
// to a single "xN" entry.
func logUpcoming(upcoming []Upcoming, now time.Time, log logx.Logger) {
	if len(upcoming) == 0 {
		log.Info("no active forge items")
		return
	}

	byUser := map[string][]Upcoming{}
	for _, u := range upcoming {
		byUser[u.UserID] = append(byUser[u.UserID], u)
	}
	users := make([]string, 0, len(byUser))
	for id := range byUser {
		users = append(users, id)
	}
	sort.Strings(users)

	nowMS := now.UnixMilli()
	for _, userID := range users {
		items := byUser[userID]
		sort.Slice(items, func(i, j int) bool { return items[i].EndMS < items[j].EndMS })

		// Compact identical display lines, preserving first-seen order.
		counts := map[string]int{}
		var order []string
		for _, it := range items {
			remaining := it.EndMS - nowMS
			if remaining < 0 {
				remaining = 0
			}
			line := fmt.Sprintf("%s on %s (ready in %s)", it.ItemName, it.ProfileName, timefmt.FormatMillis(remaining))
			if counts[line] == 0 {
				order = append(order, line)
			}
			counts[line]++
		}

		for _, line := range order {
			if n := counts[line]; n > 1 {
				log.Info("upcoming", logx.String("user", userID), logx.String("item", fmt.Sprintf("x%d %s", n, line)))
			} else {
				log.Info("upcoming", logx.String("user", userID), logx.String("item", line))
			}
		}
	}
}
