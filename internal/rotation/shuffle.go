package rotation

// ShuffleAssignment is the target value for one record in a Shuffle
// firing.
type ShuffleAssignment struct {
	RecordID string
	Target   string
}

// Shuffle implements spec §4.5.3: record i receives the live value sampled
// from record (i+k) mod len(recordIDs). liveValues must be sampled
// atomically by the caller before invoking Shuffle (spec requires the
// cyclic shift to be deterministic within one firing even under
// concurrent external updates); its order must match recordIDs.
func Shuffle(recordIDs []string, liveValues []string, k int) []ShuffleAssignment {
	n := len(recordIDs)
	out := make([]ShuffleAssignment, n)
	for i, id := range recordIDs {
		out[i] = ShuffleAssignment{
			RecordID: id,
			Target:   liveValues[mod(i+k, n)],
		}
	}
	return out
}
