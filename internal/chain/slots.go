package chain

import "time"

// Mainnet Shelley era anchor: slot length became one second at this
// slot/time and has stayed linear since.
const (
	MainnetShelleySlot = 4492800
	MainnetShelleyUnix = 1596059091
)

// SlotConverter converts between slots and wall-clock time via a fixed
// linear offset. Slots are one second long from the anchor onward.
type SlotConverter struct {
	BaseSlot int64
	BaseTime time.Time
}

// MainnetSlotConverter returns the converter anchored at the mainnet
// Shelley boundary.
func MainnetSlotConverter() SlotConverter {
	return SlotConverter{
		BaseSlot: MainnetShelleySlot,
		BaseTime: time.Unix(MainnetShelleyUnix, 0).UTC(),
	}
}

// ToTime converts a slot to UTC wall-clock time.
func (c SlotConverter) ToTime(slot int64) time.Time {
	return c.BaseTime.Add(time.Duration(slot-c.BaseSlot) * time.Second).UTC()
}

// ToSlot converts wall-clock time to the containing slot.
func (c SlotConverter) ToSlot(t time.Time) int64 {
	return c.BaseSlot + int64(t.UTC().Sub(c.BaseTime)/time.Second)
}
