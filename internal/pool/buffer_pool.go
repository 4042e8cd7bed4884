package pool

import "sync"

// maxPooledBuffer is the largest capacity kept in the pool. A full-depth screen
// image is about 1.1 MB; bigger one-off buffers are left to the GC.
const maxPooledBuffer = 4 << 20

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64*1024)
		return &b
	},
}

// GetBuffer returns an empty buffer with at least the given capacity.
//
// Return the buffer with PutBuffer once nothing refers to its contents.
func GetBuffer(capacity int) *[]byte {
	bp, _ := bufferPool.Get().(*[]byte)
	if cap(*bp) < capacity {
		*bp = make([]byte, 0, capacity)
	}
	*bp = (*bp)[:0]

	return bp
}

// PutBuffer returns bp to the pool.
func PutBuffer(bp *[]byte) {
	if bp == nil || cap(*bp) > maxPooledBuffer {
		return
	}
	*bp = (*bp)[:0]
	bufferPool.Put(bp)
}
