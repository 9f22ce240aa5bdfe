package alarm

import "container/heap"

// alarmHeap orders registrations by fire time, earliest first.
type alarmHeap []Registration

func (h alarmHeap) Len() int           { return len(h) }
func (h alarmHeap) Less(i, j int) bool { return h[i].At < h[j].At }
func (h alarmHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *alarmHeap) Push(x any) {
	*h = append(*h, x.(Registration))
}

func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *alarmHeap, r Registration) {
	heap.Push(h, r)
}

// heapPop removes and returns the earliest registration.
// Panics if the heap is empty.
func heapPop(h *alarmHeap) Registration {
	return heap.Pop(h).(Registration)
}

// heapRemoveByCode removes the registration with the given code, if any.
func heapRemoveByCode(h *alarmHeap, code int64) bool {
	for i, r := range *h {
		if r.Code == code {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
