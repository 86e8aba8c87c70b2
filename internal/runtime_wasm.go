//go:build wasm

package internal

// wasm hosts are single threaded, so every goroutine shares one frame stack.
func getGID() int64 {
	return 0
}
