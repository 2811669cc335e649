package dataslot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              Allocator 测试
// ============================================================================

func TestAllocator_ShareFreeReuse(t *testing.T) {
	a := NewAllocator("test")

	first, second := None, None
	require.NoError(t, a.Alloc(&first))
	require.NoError(t, a.Alloc(&second))
	assert.Equal(t, int32(0), first)
	assert.Equal(t, int32(1), second)

	// 共享已有编号
	shared := first
	require.NoError(t, a.Alloc(&shared))
	assert.Equal(t, first, shared)
	assert.Equal(t, 2, a.RefCount(first))

	// 第一次释放后仍然有效
	require.NoError(t, a.Free(&shared))
	assert.True(t, a.IsAllocated(first))
	assert.Equal(t, 1, a.RefCount(first))

	// 第二次释放后编号可复用
	require.NoError(t, a.Free(&first))
	assert.Equal(t, None, first)
	assert.False(t, a.IsAllocated(0))

	fresh := None
	require.NoError(t, a.Alloc(&fresh))
	assert.Equal(t, int32(0), fresh)
	assert.Equal(t, 1, a.RefCount(fresh))
}

func TestAllocator_ResetWhenEmpty(t *testing.T) {
	a := NewAllocator("test")

	s1, s2 := None, None
	require.NoError(t, a.Alloc(&s1))
	require.NoError(t, a.Alloc(&s2))
	require.NoError(t, a.Free(&s2))
	require.NoError(t, a.Free(&s1))
	assert.Equal(t, 0, a.Used())

	s3 := None
	require.NoError(t, a.Alloc(&s3))
	assert.Equal(t, int32(0), s3)
}

func TestAllocator_Errors(t *testing.T) {
	a := NewAllocator("test")

	s := int32(5)
	assert.ErrorIs(t, a.Alloc(&s), ErrSlotNotAllocated)
	assert.ErrorIs(t, a.Free(&s), ErrSlotNotAllocated)

	neg := None
	assert.ErrorIs(t, a.Free(&neg), ErrInvalidSlot)
}

func TestAllocator_Concurrent(t *testing.T) {
	a := NewAllocator("test")

	const n = 64
	slots := make([]int32, n)
	var wg sync.WaitGroup
	for i := range slots {
		slots[i] = None
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, a.Alloc(&slots[i]))
		}(i)
	}
	wg.Wait()

	seen := make(map[int32]bool)
	for _, s := range slots {
		assert.False(t, seen[s], "slot %d allocated twice", s)
		seen[s] = true
	}
	assert.Equal(t, n, a.Used())
}

// ============================================================================
//                              List 测试
// ============================================================================

func TestList_SetGetReplace(t *testing.T) {
	a := NewAllocator("test")
	slot := None
	require.NoError(t, a.Alloc(&slot))

	var l List
	v, ok, err := l.Get(a, slot)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)

	var freed []any
	free := func(v any) { freed = append(freed, v) }

	oldV, oldFree, err := l.Set(a, slot, "one", free)
	require.NoError(t, err)
	assert.Nil(t, oldV)
	assert.Nil(t, oldFree)

	oldV, oldFree, err = l.Set(a, slot, "two", free)
	require.NoError(t, err)
	assert.Equal(t, "one", oldV)
	require.NotNil(t, oldFree)
	oldFree(oldV)
	assert.Equal(t, []any{"one"}, freed)

	v, ok, err = l.Get(a, slot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestList_UnallocatedSlot(t *testing.T) {
	a := NewAllocator("test")
	var l List

	_, _, err := l.Set(a, 3, "x", nil)
	assert.ErrorIs(t, err, ErrSlotNotAllocated)

	_, _, err = l.Get(a, 3)
	assert.ErrorIs(t, err, ErrSlotNotAllocated)
}

func TestList_ClearRunsFreeAfterSlotFreed(t *testing.T) {
	a := NewAllocator("test")
	s1, s2 := None, None
	require.NoError(t, a.Alloc(&s1))
	require.NoError(t, a.Alloc(&s2))

	var l List
	var freed []any
	free := func(v any) { freed = append(freed, v) }
	_, _, err := l.Set(a, s1, 1, free)
	require.NoError(t, err)
	_, _, err = l.Set(a, s2, 2, free)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())

	// 释放槽编号不影响已存的数据
	require.NoError(t, a.Free(&s1))

	l.Clear()
	assert.ElementsMatch(t, []any{1, 2}, freed)
	assert.Equal(t, 0, l.Len())
}
