package notify

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BuildMessage renders one combined notification for a user: mention
// first, then one line per ready item with Discord relative timestamps.
// Items are ordered by profile name, then numeric slot index.
func BuildMessage(userID string, items []Item) string {
	sorted := append([]Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ProfileName != sorted[j].ProfileName {
			return sorted[i].ProfileName < sorted[j].ProfileName
		}
		return slotLess(sorted[i].SlotIndex, sorted[j].SlotIndex)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "<@%s>\n\n", userID)
	b.WriteString("Your forge items are ready:")
	for _, it := range sorted {
		fmt.Fprintf(&b,
			"\n- Your **%s** on %s was ready <t:%d:R> (started <t:%d:R>)",
			it.ItemName, it.ProfileName, it.EndMS/1000, it.StartMS/1000,
		)
	}
	return b.String()
}

// slotLess orders numeric slot keys numerically and falls back to string
// order for anything else.
func slotLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
