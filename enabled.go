//go:build !release

package netinspector

// buildEnabled reports whether capture is compiled in. Release builds
// (-tags release) turn Setup into a no-op.
const buildEnabled = true
