package lane

// PixelHistory maintains a sliding window of the most recent lane pixels
// contributing to a fit. Once full, each new pixel overwrites the oldest.
type PixelHistory struct {
	pixels   []Pixel
	capacity int
	head     int // Points to next write position
	size     int // Current number of pixels stored
}

// NewPixelHistory creates a new pixel history buffer with the specified capacity.
func NewPixelHistory(capacity int) *PixelHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &PixelHistory{
		pixels:   make([]Pixel, capacity),
		capacity: capacity,
	}
}

// Add stores pixels in order, overwriting the oldest if at capacity.
func (h *PixelHistory) Add(pixels ...Pixel) {
	// Only the newest capacity pixels can survive.
	if len(pixels) > h.capacity {
		pixels = pixels[len(pixels)-h.capacity:]
	}
	for _, p := range pixels {
		h.pixels[h.head] = p
		h.head = (h.head + 1) % h.capacity
		if h.size < h.capacity {
			h.size++
		}
	}
}

// Len returns the current number of pixels in history.
func (h *PixelHistory) Len() int {
	return h.size
}

// Capacity returns the maximum number of pixels that can be stored.
func (h *PixelHistory) Capacity() int {
	return h.capacity
}

// Clear removes all pixels from history.
func (h *PixelHistory) Clear() {
	h.head = 0
	h.size = 0
}

// Pixels returns all pixels in history from oldest to newest.
func (h *PixelHistory) Pixels() []Pixel {
	return h.newest(h.size, 0)
}

// Window returns the contents the history would hold, oldest first, after
// adding extra. The history itself is not modified.
func (h *PixelHistory) Window(extra []Pixel) []Pixel {
	if len(extra) >= h.capacity {
		out := make([]Pixel, h.capacity)
		copy(out, extra[len(extra)-h.capacity:])
		return out
	}
	keep := h.capacity - len(extra)
	if keep > h.size {
		keep = h.size
	}
	out := h.newest(keep, len(extra))
	return append(out, extra...)
}

// newest copies the n most recent pixels, oldest first, into a slice with
// room for spare more elements.
func (h *PixelHistory) newest(n, spare int) []Pixel {
	out := make([]Pixel, n, n+spare)
	for i := 0; i < n; i++ {
		idx := (h.head - n + i + h.capacity) % h.capacity
		out[i] = h.pixels[idx]
	}
	return out
}
