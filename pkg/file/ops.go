// Package file implements the file-node write and CRC parsing state
// machines and the stat/size/read handlers that sit on top of pkg/tree.
package file

// Ops are the platform hooks a Node delegates storage access to. Per the
// write state machine's bounds policy, Ops.WriteAt is responsible for
// refusing (returning 0, nil) writes at or past the node's MaxSize and for
// clamping any write that would cross it - this package only routes bytes
// to Ops, it does not second-guess the bound itself.
type Ops interface {
	WriteAt(offset int64, p []byte) (int, error)
	ReadAt(offset int64, p []byte) (int, error)
	// CRC32 computes the IEEE 802.3 CRC over [start, start+size), tolerant
	// of a backing store shorter than start+size (finalizing early rather
	// than erroring).
	CRC32(start, size int64) (uint32, error)
}
