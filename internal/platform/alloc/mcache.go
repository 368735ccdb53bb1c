//go:build !sysalloc

package alloc

import "github.com/bytedance/gopkg/lang/mcache"

// Name identifies the allocator linked into this binary.
const Name = "mcache"

// Malloc returns a buffer of length size taken from the size-class pools.
func Malloc(size int) []byte {
	return mcache.Malloc(size)
}

// Free returns buf to its pool. buf must not be used afterwards.
func Free(buf []byte) {
	mcache.Free(buf)
}
