package ch432

// Outgoing byte queue. Sized and masked like the classic serial xmit
// buffer; the channel mutex guards all access.
const (
	xmitSize    = 4096 // power of two
	wakeupChars = 256  // low-water mark for LineSink.WriteWakeup
)

type txRing struct {
	buf  [xmitSize]byte
	head int // next write position
	tail int // next read position
}

func (q *txRing) pending() int { return (q.head - q.tail) & (xmitSize - 1) }
func (q *txRing) empty() bool  { return q.head == q.tail }
func (q *txRing) free() int    { return xmitSize - 1 - q.pending() }

// write copies as much of p as fits and returns the accepted count.
func (q *txRing) write(p []byte) int {
	n := 0
	for _, b := range p {
		if q.free() == 0 {
			break
		}
		q.buf[q.head] = b
		q.head = (q.head + 1) & (xmitSize - 1)
		n++
	}
	return n
}

// popInto moves up to len(dst) queued bytes into dst, respecting
// wraparound, and returns the count moved.
func (q *txRing) popInto(dst []byte) int {
	n := 0
	for n < len(dst) && !q.empty() {
		dst[n] = q.buf[q.tail]
		q.tail = (q.tail + 1) & (xmitSize - 1)
		n++
	}
	return n
}

func (q *txRing) clear() {
	q.head = 0
	q.tail = 0
}
