package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// EnsureChannels returns n per-channel buffers of the given length, reusing
// existing buffers where their capacity allows.
func EnsureChannels(bufs [][]float64, channels, length int) [][]float64 {
	if channels <= 0 {
		return bufs[:0]
	}
	if cap(bufs) < channels {
		grown := make([][]float64, channels)
		copy(grown, bufs)
		bufs = grown
	}
	bufs = bufs[:channels]
	for i := range bufs {
		bufs[i] = EnsureLen(bufs[i], length)
	}
	return bufs
}
