package domain

// DefaultHistoryCapacity is the number of samples kept for the chart
const DefaultHistoryCapacity = 20

// PriceHistory is a fixed-capacity sliding window of price samples
// Insertion order is chronological order. When full, the oldest sample is evicted.
// PriceHistory is not safe for concurrent use; the owner serializes access.
type PriceHistory struct {
	buf   []PriceSample
	start int // index of the oldest sample
	size  int
}

// NewPriceHistory creates an empty history holding at most capacity samples
// A non-positive capacity falls back to DefaultHistoryCapacity
func NewPriceHistory(capacity int) *PriceHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &PriceHistory{
		buf: make([]PriceSample, capacity),
	}
}

// Push appends a sample, evicting the oldest one if the window is full
func (h *PriceHistory) Push(sample PriceSample) {
	capacity := len(h.buf)

	if h.size < capacity {
		h.buf[(h.start+h.size)%capacity] = sample
		h.size++
		return
	}

	// Full: overwrite the oldest slot and advance the window
	h.buf[h.start] = sample
	h.start = (h.start + 1) % capacity
}

// Samples returns a chronological copy of the window
func (h *PriceHistory) Samples() []PriceSample {
	out := make([]PriceSample, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Latest returns the most recent sample, if any
func (h *PriceHistory) Latest() (PriceSample, bool) {
	if h.size == 0 {
		return PriceSample{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}

// Len returns the number of samples currently held
func (h *PriceHistory) Len() int {
	return h.size
}

// Cap returns the fixed capacity of the window
func (h *PriceHistory) Cap() int {
	return len(h.buf)
}

// Reset empties the window
func (h *PriceHistory) Reset() {
	h.buf = make([]PriceSample, len(h.buf))
	h.start = 0
	h.size = 0
}
