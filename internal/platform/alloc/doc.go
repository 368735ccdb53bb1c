// Package alloc selects, at build time, the allocator that backs response
// buffers for the lifetime of the process.
//
// The default build uses the size-class pooled allocator from
// github.com/bytedance/gopkg/lang/mcache. Building with the sysalloc tag
// switches to the Go runtime allocator:
//
//	go build -tags sysalloc ./cmd/server
//
// Both variants expose the same functions, so callers never branch on the
// selection and HTTP behavior is identical.
package alloc
