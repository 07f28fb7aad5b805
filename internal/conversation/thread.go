package conversation

import "sort"

// Thread is a deduplicated, time-ordered view of one conversation's messages,
// fed from both the poll and push channels. Merging is keyed by message id and
// first-writer-wins: the two channels carry identical payloads for the same
// id, so whichever copy arrives first stands. That makes Merge commutative and
// idempotent, which is what lets arbitrary interleavings of poll and push
// deliveries converge on the same final list.
type Thread struct {
	byID    map[int64]Message
	ordered []Message
}

// NewThread creates an empty thread.
func NewThread() *Thread {
	return &Thread{byID: make(map[int64]Message)}
}

// Merge folds msgs into the thread. It returns how many messages were newly
// added and how many were dropped as duplicates of an already-present id.
func (t *Thread) Merge(msgs ...Message) (added, deduped int) {
	for _, m := range msgs {
		if _, ok := t.byID[m.ID]; ok {
			deduped++
			continue
		}
		t.byID[m.ID] = m
		t.ordered = append(t.ordered, m)
		added++
	}
	if added > 0 {
		sort.SliceStable(t.ordered, func(i, j int) bool {
			if t.ordered[i].CreatedAt.Equal(t.ordered[j].CreatedAt) {
				return t.ordered[i].ID < t.ordered[j].ID
			}
			return t.ordered[i].CreatedAt.Before(t.ordered[j].CreatedAt)
		})
	}
	return added, deduped
}

// Messages returns the merged list, ascending by created_at. The returned
// slice is a copy; callers may reorder it for display.
func (t *Thread) Messages() []Message {
	out := make([]Message, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Len returns the number of distinct messages in the thread.
func (t *Thread) Len() int {
	return len(t.ordered)
}

// Contains reports whether a message with the given id has been merged.
func (t *Thread) Contains(id int64) bool {
	_, ok := t.byID[id]
	return ok
}
