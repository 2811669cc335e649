package dataslot

import "fmt"

// FreeFunc 数据被替换或对象销毁时调用
type FreeFunc func(value any)

type slotData struct {
	value any
	free  FreeFunc
	set   bool
}

// List 单个对象的槽存储
type List struct {
	slots []slotData
}

// Set 设置槽中的数据，返回被替换的旧数据和它的 free 函数
//
// 旧数据的 free 函数由调用方在释放对象锁之后执行。
func (l *List) Set(a *Allocator, slot int32, value any, free FreeFunc) (oldValue any, oldFree FreeFunc, err error) {
	if !a.IsAllocated(slot) {
		return nil, nil, fmt.Errorf("%w: %d", ErrSlotNotAllocated, slot)
	}

	if int(slot) >= len(l.slots) {
		grown := make([]slotData, slot+1)
		copy(grown, l.slots)
		l.slots = grown
	}

	old := l.slots[slot]
	l.slots[slot] = slotData{value: value, free: free, set: true}
	return old.value, old.free, nil
}

// Get 读取槽中的数据
func (l *List) Get(a *Allocator, slot int32) (any, bool, error) {
	if !a.IsAllocated(slot) {
		return nil, false, fmt.Errorf("%w: %d", ErrSlotNotAllocated, slot)
	}
	if int(slot) >= len(l.slots) || !l.slots[slot].set {
		return nil, false, nil
	}
	return l.slots[slot].value, true, nil
}

// Clear 清空所有槽并依次执行 free 函数
//
// 槽编号即使已经被释放，其 free 函数也会执行。
func (l *List) Clear() {
	slots := l.slots
	l.slots = nil
	for _, d := range slots {
		if d.free != nil {
			d.free(d.value)
		}
	}
}

// Len 返回已设置数据的槽数
func (l *List) Len() int {
	n := 0
	for _, d := range l.slots {
		if d.set {
			n++
		}
	}
	return n
}
