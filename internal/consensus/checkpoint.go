package consensus

import "github.com/rillcoin/rill/internal/rillcore"

// Checkpoints ships empty in production, matching the reference
// implementation: there is no known-good history to pin yet.
var Checkpoints []CheckpointEntry

// CheckpointEntry pins a block hash at a given height.
type CheckpointEntry struct {
	Height uint64
	Hash   rillcore.Hash
}

// CheckCheckpoint verifies that a block at height with the given hash
// matches any checkpoint pinned at that height.
func CheckCheckpoint(height uint64, hash rillcore.Hash) error {
	return CheckCheckpointWith(Checkpoints, height, hash)
}

// CheckCheckpointWith is the testable core of CheckCheckpoint, taking an
// explicit checkpoint list.
func CheckCheckpointWith(checkpoints []CheckpointEntry, height uint64, hash rillcore.Hash) error {
	for _, cp := range checkpoints {
		if cp.Height == height {
			if cp.Hash != hash {
				return &rillcore.BlockError{Kind: rillcore.CheckpointMismatch}
			}
			return nil
		}
	}
	return nil
}

// LastCheckpointHeight returns the height of the most recent checkpoint,
// or 0 if there are none.
func LastCheckpointHeight() uint64 {
	return LastCheckpointHeightWith(Checkpoints)
}

// LastCheckpointHeightWith is LastCheckpointHeight with an explicit list.
func LastCheckpointHeightWith(checkpoints []CheckpointEntry) uint64 {
	var last uint64
	for _, cp := range checkpoints {
		if cp.Height > last {
			last = cp.Height
		}
	}
	return last
}

// IsBelowCheckpoint reports whether height is at or below the last
// checkpoint height; reorgs touching such heights must be rejected.
func IsBelowCheckpoint(height uint64) bool {
	return IsBelowCheckpointWith(Checkpoints, height)
}

// IsBelowCheckpointWith is IsBelowCheckpoint with an explicit list.
func IsBelowCheckpointWith(checkpoints []CheckpointEntry, height uint64) bool {
	last := LastCheckpointHeightWith(checkpoints)
	return last > 0 && height <= last
}
