package dataslot

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-msgbus/pkg/lib/log"
)

var logger = log.Logger("core/dataslot")

// None 未分配的槽编号
const None int32 = -1

// slotEntry 分配表中的一项；id 为 None 表示空闲
type slotEntry struct {
	id       int32
	refcount int
}

// Allocator 槽编号分配器
type Allocator struct {
	name string

	mu    sync.Mutex
	slots []slotEntry
	used  int
}

// NewAllocator 创建分配器，name 仅用于日志
func NewAllocator(name string) *Allocator {
	return &Allocator{name: name}
}

// Alloc 分配或共享槽编号
//
// *slot 为负时分配新编号：优先复用最小的空闲编号，否则追加；
// *slot 非负时对已分配的编号增加引用计数。
func (a *Allocator) Alloc(slot *int32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if *slot >= 0 {
		s := *slot
		if int(s) >= len(a.slots) || a.slots[s].id != s {
			return fmt.Errorf("%w: %d", ErrSlotNotAllocated, s)
		}
		a.slots[s].refcount++
		return nil
	}

	idx := -1
	for i := range a.slots {
		if a.slots[i].id == None {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = len(a.slots)
		a.slots = append(a.slots, slotEntry{id: None})
	}

	a.slots[idx] = slotEntry{id: int32(idx), refcount: 1}
	a.used++
	*slot = int32(idx)

	logger.Debug("分配数据槽", "allocator", a.name, "slot", idx, "used", a.used)
	return nil
}

// Free 释放一次引用；引用计数归零时编号变为空闲并把 *slot 置为 None
//
// 所有槽都释放后分配表被清空。
func (a *Allocator) Free(slot *int32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := *slot
	if s < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, s)
	}
	if int(s) >= len(a.slots) || a.slots[s].id != s {
		return fmt.Errorf("%w: %d", ErrSlotNotAllocated, s)
	}

	a.slots[s].refcount--
	if a.slots[s].refcount > 0 {
		return nil
	}

	a.slots[s] = slotEntry{id: None}
	a.used--
	*slot = None

	if a.used == 0 {
		a.slots = nil
	}

	logger.Debug("释放数据槽", "allocator", a.name, "slot", s, "used", a.used)
	return nil
}

// IsAllocated 检查槽编号当前是否已分配
func (a *Allocator) IsAllocated(slot int32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isAllocatedLocked(slot)
}

func (a *Allocator) isAllocatedLocked(slot int32) bool {
	return slot >= 0 && int(slot) < len(a.slots) && a.slots[slot].id == slot
}

// RefCount 返回槽的引用计数，未分配时为 0
func (a *Allocator) RefCount(slot int32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.isAllocatedLocked(slot) {
		return 0
	}
	return a.slots[slot].refcount
}

// Used 返回已分配的槽数
func (a *Allocator) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}
