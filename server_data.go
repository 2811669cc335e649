package msgbus

import (
	"sync"

	"github.com/dep2p/go-msgbus/internal/core/dataslot"
	"github.com/dep2p/go-msgbus/internal/util/check"
)

// slotAllocator 所有服务器共享的槽编号分配器，首次使用时创建，进程内不销毁
var slotAllocator = sync.OnceValue(func() *dataslot.Allocator {
	return dataslot.NewAllocator("server")
})

// DataSlot 服务器数据槽编号，零值表示未分配
type DataSlot struct {
	// n 为编号加一
	n int32
}

func (d DataSlot) index() int32 {
	return d.n - 1
}

// Allocated 返回槽是否持有编号
func (d DataSlot) Allocated() bool {
	return d.n > 0
}

// AllocateDataSlot 分配数据槽
//
// *slot 为零值时分配新编号（优先复用已释放的最小编号）；已分配时增加引用计数，
// 多个组件可以共享同一个槽变量。
func AllocateDataSlot(slot *DataSlot) error {
	if !check.Arg(slot != nil, "AllocateDataSlot", "slot != NULL") {
		return newError(KindMisuseOfAPI, nil, "nil data slot")
	}
	idx := slot.index()
	if err := slotAllocator().Alloc(&idx); err != nil {
		return newError(KindMisuseOfAPI, err, "allocate data slot: %v", err)
	}
	slot.n = idx + 1
	return nil
}

// FreeDataSlot 释放一次引用；引用计数归零后编号可被复用，*slot 回到零值
func FreeDataSlot(slot *DataSlot) {
	if !check.Arg(slot != nil && slot.Allocated(), "FreeDataSlot", "*slot >= 0") {
		return
	}
	idx := slot.index()
	if err := slotAllocator().Free(&idx); err != nil {
		check.Failed("FreeDataSlot(): %v", err)
		return
	}
	slot.n = idx + 1
}

// SetData 在槽中保存数据
//
// free 在数据被替换或服务器销毁时调用；被替换数据的 free 在释放锁之后执行。
func (s *Server) SetData(slot DataSlot, value any, free func(any)) error {
	if !s.alive("SetData") {
		return newError(KindMisuseOfAPI, nil, "SetData() called on a finalized server")
	}
	if !check.Arg(slot.Allocated(), "SetData", "slot >= 0") {
		return newError(KindMisuseOfAPI, nil, "data slot not allocated")
	}

	s.mu.Lock()
	oldValue, oldFree, err := s.slots.Set(slotAllocator(), slot.index(), value, free)
	s.mu.Unlock()
	if err != nil {
		check.Failed("SetData(): %v", err)
		return newError(KindMisuseOfAPI, err, "set data: %v", err)
	}

	if oldFree != nil {
		oldFree(oldValue)
	}
	return nil
}

// Data 读取槽中的数据，没有设置过时 ok 为 false
func (s *Server) Data(slot DataSlot) (value any, ok bool) {
	if !s.alive("Data") {
		return nil, false
	}
	if !check.Arg(slot.Allocated(), "Data", "slot >= 0") {
		return nil, false
	}

	s.mu.Lock()
	value, ok, err := s.slots.Get(slotAllocator(), slot.index())
	s.mu.Unlock()
	if err != nil {
		check.Failed("Data(): %v", err)
		return nil, false
	}
	return value, ok
}
