package dataslot

import "errors"

var (
	// ErrSlotNotAllocated 槽编号未分配
	ErrSlotNotAllocated = errors.New("data slot not allocated")

	// ErrInvalidSlot 槽编号为负
	ErrInvalidSlot = errors.New("invalid data slot")
)
