// Package dataslot 实现可扩展的每对象数据槽
//
// Allocator 在进程范围内分配槽编号，所有同类对象共享同一个编号空间；
// List 是每个对象自己的存储，按槽编号保存 (value, free) 对。
//
// # 槽的生命周期
//
//	var slot int32 = -1
//	alloc.Alloc(&slot)   // 新分配：复用最小的已释放编号，引用计数为 1
//	alloc.Alloc(&slot)   // slot >= 0：共享，引用计数 +1
//	alloc.Free(&slot)    // 引用计数 -1，归零后编号可被复用，slot 置为 -1
//
// 编号释放后，已经存过该槽数据的对象不受影响，其 free 函数仍会在
// 对象销毁时执行。
//
// # 并发安全
//
// Allocator 自带互斥锁，与任何对象的锁无关。List 不加锁，由拥有它的对象串行化。
package dataslot
