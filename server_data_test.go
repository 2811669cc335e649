package msgbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataSlot_AllocShareFreeReuse(t *testing.T) {
	var a, b DataSlot
	require.NoError(t, AllocateDataSlot(&a))
	require.NoError(t, AllocateDataSlot(&b))
	assert.True(t, a.Allocated())
	assert.NotEqual(t, a, b)

	// 共享：同一个变量再次分配只增加引用计数
	shared := a
	require.NoError(t, AllocateDataSlot(&shared))
	assert.Equal(t, a, shared)
	assert.Equal(t, 2, slotAllocator().RefCount(a.index()))

	FreeDataSlot(&shared)
	assert.Equal(t, a, shared, "引用计数未归零时编号保留")
	FreeDataSlot(&a)
	assert.False(t, a.Allocated())

	// 释放的编号被复用
	var c DataSlot
	require.NoError(t, AllocateDataSlot(&c))
	assert.Equal(t, shared, c)

	FreeDataSlot(&c)
	FreeDataSlot(&b)
}

func TestDataSlot_SetAndGet(t *testing.T) {
	srv, _ := listenFake(t)

	var slot DataSlot
	require.NoError(t, AllocateDataSlot(&slot))
	defer FreeDataSlot(&slot)

	v, ok := srv.Data(slot)
	assert.False(t, ok)
	assert.Nil(t, v)

	var freed []any
	free := func(v any) { freed = append(freed, v) }

	require.NoError(t, srv.SetData(slot, 1, free))
	v, ok = srv.Data(slot)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.NoError(t, srv.SetData(slot, 2, free))
	assert.Equal(t, []any{1}, freed, "替换时执行旧数据的 free")

	srv.Disconnect()
	srv.Unref()
	assert.Equal(t, []any{1, 2}, freed, "销毁时执行剩余数据的 free")
}

func TestDataSlot_SharedAcrossServers(t *testing.T) {
	s1, _ := listenFake(t)
	s2, _ := listenFake(t)
	defer func() {
		for _, s := range []*Server{s1, s2} {
			s.Disconnect()
			s.Unref()
		}
	}()

	var slot DataSlot
	require.NoError(t, AllocateDataSlot(&slot))
	defer FreeDataSlot(&slot)

	require.NoError(t, s1.SetData(slot, "one", nil))
	require.NoError(t, s2.SetData(slot, "two", nil))

	v1, _ := s1.Data(slot)
	v2, _ := s2.Data(slot)
	assert.Equal(t, "one", v1)
	assert.Equal(t, "two", v2)
}

func TestDataSlot_Misuse(t *testing.T) {
	withFatal(t, false)
	srv, _ := listenFake(t)
	defer srv.Unref()
	defer srv.Disconnect()

	var unallocated DataSlot
	assert.ErrorIs(t, srv.SetData(unallocated, 1, nil), ErrMisuseOfAPI)
	_, ok := srv.Data(unallocated)
	assert.False(t, ok)
	assert.ErrorIs(t, AllocateDataSlot(nil), ErrMisuseOfAPI)
	assert.NotPanics(t, func() { FreeDataSlot(&unallocated) })

	withFatal(t, true)
	assert.Panics(t, func() { _ = srv.SetData(unallocated, 1, nil) })
	assert.Panics(t, func() { FreeDataSlot(&unallocated) })
}
