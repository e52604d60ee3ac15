package storage

// PlanWrite returns the slot indexes a payload of length bytes would occupy
// when split into slot-capacity chunks, in chunk order. Free slots are reused
// in ascending order before new slots past EndSlotCount are addressed.
// Nothing is reserved: the plan is only valid until the next mutation.
// The plan is nil when the payload would need a slot past MaxSlotIndex.
func (s *Storage) PlanWrite(length int) []uint32 {
	if length <= 0 {
		return nil
	}

	capacity := int(s.header.SlotCapacity)
	need := (length + capacity - 1) / capacity
	plan := make([]uint32, 0, need)

	s.free.ascend(func(idx uint32) bool {
		if len(plan) == need {
			return false
		}
		plan = append(plan, idx)
		return true
	})

	for next := uint64(s.endSlots); len(plan) < need; next++ {
		if next > MaxSlotIndex {
			return nil
		}
		plan = append(plan, uint32(next))
	}
	return plan
}

// Chunks splits data into the pieces WriteBlock accepts, matching PlanWrite order
func (s *Storage) Chunks(data []byte) [][]byte {
	capacity := int(s.header.SlotCapacity)
	chunks := make([][]byte, 0, (len(data)+capacity-1)/capacity)
	for len(data) > 0 {
		n := min(capacity, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}
