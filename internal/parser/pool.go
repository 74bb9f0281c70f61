package parser

import "sync"

// cellPool holds the byte accumulators used for cell content. A session
// borrows one accumulator for its lifetime and returns it on Release.
var cellPool = sync.Pool{
	New: func() interface{} {
		// Typical cells are short; long ones grow the slice as needed.
		b := make([]byte, 0, 64)
		return &b
	},
}

// getCell gets an empty accumulator from the pool.
func getCell() []byte {
	p := cellPool.Get().(*[]byte)
	return (*p)[:0]
}

// putCell returns an accumulator to the pool.
func putCell(cell []byte) {
	// Don't keep huge accumulators alive after an unusually large field.
	const maxCapacity = 4096
	if cap(cell) > maxCapacity {
		return
	}

	cell = cell[:0]
	cellPool.Put(&cell)
}
