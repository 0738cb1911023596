package core

const DefaultLogCapacity = 100

// LogBuffer is a fixed-capacity FIFO ring of log lines. Once full, each Add
// evicts the oldest line. It is not safe for concurrent use; the supervisor's
// event loop is its only writer and reader.
type LogBuffer struct {
	lines []string
	start int
	size  int
}

func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogBuffer{lines: make([]string, capacity)}
}

func (b *LogBuffer) Add(line string) {
	capacity := len(b.lines)
	if b.size < capacity {
		b.lines[(b.start+b.size)%capacity] = line
		b.size++
		return
	}
	b.lines[b.start] = line
	b.start = (b.start + 1) % capacity
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *LogBuffer) Lines() []string {
	out := make([]string, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.lines[(b.start+i)%len(b.lines)]
	}
	return out
}

func (b *LogBuffer) Len() int {
	return b.size
}

func (b *LogBuffer) Cap() int {
	return len(b.lines)
}
