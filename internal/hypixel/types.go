package hypixel

// Slot is one in-progress forge slot as reported by the API. Ephemeral:
// fetched fresh every cycle and never persisted.
type Slot struct {
	Group   string // e.g. "forge_1"
	Index   string // slot key within the group
	ItemID  string
	StartMS int64
}

// Profile is the normalized view of one SkyBlock profile for one member.
type Profile struct {
	ID       string
	CuteName string

	// ForgeTimeTier is the Quick Forge perk level; forge.TierAbsent (-1)
	// when the member has not unlocked the node.
	ForgeTimeTier int

	Slots []Slot
}
