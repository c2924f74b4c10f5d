package evtx

import "fmt"

// RecordError reports a record or chunk that could not be decoded. Offset is
// relative to the chunk and zero for chunk-level failures.
type RecordError struct {
	ChunkOffset int64
	Offset      int
	RecordID    uint64
	Err         error
}

func (e *RecordError) Error() string {
	if e.RecordID != 0 {
		return fmt.Sprintf("evtx record %d at chunk %#x+%#x: %v", e.RecordID, e.ChunkOffset, e.Offset, e.Err)
	}
	return fmt.Sprintf("evtx chunk %#x+%#x: %v", e.ChunkOffset, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
