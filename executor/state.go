package executor

// Phase is the executor's block lifecycle state: Idle before genesis,
// InBlock between BeginBlock and Commit, Committed between blocks.
// The lifecycle methods (InitChain, BeginBlock, DeliverTx, EndBlock,
// Commit) check the phase they require and raise a fatal
// core.InvariantViolation rather
// than a plain error on an illegal transition, since an out-of-order
// lifecycle call means the host engine driving the executor is itself
// broken.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInBlock
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInBlock:
		return "in_block"
	case PhaseCommitted:
		return "committed"
	default:
		return "unknown"
	}
}
