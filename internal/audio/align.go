package audio

// Align floors a raw byte count from a short read down to a whole number
// of samples. The tail (n - aligned) bytes are discarded by the caller and
// never carried over into the next read; over many short reads this drops
// a few bytes at sample boundaries. Known limitation, kept on purpose:
// carrying a remainder across reads would make every read stateful.
func Align(n, bytesPerSample int) int {
	if bytesPerSample <= 0 || n <= 0 {
		return 0
	}
	return n / bytesPerSample * bytesPerSample
}
