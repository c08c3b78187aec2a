package bus

// job is one enqueued unit of work: a message plus, for commands and
// queries, the channel its caller is waiting on.
type job struct {
	seq      uint64
	typeName string
	msg      Message
	done     chan error        // non-nil for commands
	resultCh chan queryOutcome // non-nil for queries
}

type queryOutcome struct {
	result any
	err    error
}

// jobHeap orders jobs by (priority asc, seq asc): lower priority value runs
// first; equal priority keeps FIFO order via the monotonic seq (spec.md
// §4.1 "Priority").
type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	pi, pj := h[i].msg.Meta().Priority, h[j].msg.Meta().Priority
	if pi != pj {
		return pi < pj
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
