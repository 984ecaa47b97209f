//go:build release

package netinspector

const buildEnabled = false
