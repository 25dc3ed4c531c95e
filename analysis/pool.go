package analysis

import (
	"bytes"
	"sync"
)

const (
	renderBufferSize = 16 * 1024
	renderBufferMax  = 1024 * 1024
)

var renderBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, renderBufferSize))
	},
}

func getBuffer() *bytes.Buffer {
	buf := renderBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putBuffer returns buf to the pool. Buffers grown past renderBufferMax by a
// large summary are left to the collector.
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > renderBufferMax {
		return
	}
	renderBufferPool.Put(buf)
}
