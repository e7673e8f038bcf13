package rotation

// MultiPoolAssignment is the target value for one record in a MultiPool
// firing.
type MultiPoolAssignment struct {
	RecordID string
	Target   string
}

// MultiPool implements spec §4.5.2: N records receive a window of N
// consecutive pool entries starting at cursor; the window slides forward
// by one position per firing. recordIDs and pool are both caller-owned
// and must satisfy len(pool) >= len(recordIDs) -- enforced at config load.
func MultiPool(recordIDs []string, pool []string, cursor int) []MultiPoolAssignment {
	n := len(pool)
	out := make([]MultiPoolAssignment, len(recordIDs))
	for i, id := range recordIDs {
		out[i] = MultiPoolAssignment{
			RecordID: id,
			Target:   pool[mod(cursor+i, n)],
		}
	}
	return out
}

// NextMultiPoolCursor advances the window per spec §4.5.2 / P4: the cursor
// only moves if at least one record in the batch updated successfully.
func NextMultiPoolCursor(cursor int, poolLen int, anySucceeded bool) int {
	if !anySucceeded {
		return cursor
	}
	return mod(cursor+1, poolLen)
}
