package pty

// RingBuffer keeps the last size bytes written to it
type RingBuffer struct {
	data  []byte
	size  int
	write int
	full  bool
}

// NewRingBuffer creates a new ring buffer with the given size
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write stores p, overwriting the oldest bytes. It never fails.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.data[rb.write] = b
		rb.write = (rb.write + 1) % rb.size
		if rb.write == 0 {
			rb.full = true
		}
	}
	return len(p), nil
}

// Len returns the number of bytes held
func (rb *RingBuffer) Len() int {
	if rb.full {
		return rb.size
	}
	return rb.write
}

// String returns the buffer contents from oldest to newest
func (rb *RingBuffer) String() string {
	if !rb.full {
		return string(rb.data[:rb.write])
	}
	result := make([]byte, 0, rb.size)
	result = append(result, rb.data[rb.write:]...)
	result = append(result, rb.data[:rb.write]...)
	return string(result)
}
