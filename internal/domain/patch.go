package domain

// PatchKind names the single field a Patch writes.
type PatchKind int

const (
	PatchNone PatchKind = iota
	PatchCompleted
	PatchTask
	PatchDeadline
)

func (k PatchKind) String() string {
	switch k {
	case PatchCompleted:
		return "completed"
	case PatchTask:
		return "task"
	case PatchDeadline:
		return "deadline"
	default:
		return "none"
	}
}

// Patch is a partial update of exactly one Todo field. Only the value
// matching Kind is meaningful.
type Patch struct {
	Kind      PatchKind
	Completed bool
	Task      string
	Deadline  *string
}

func SetCompleted(done bool) Patch { return Patch{Kind: PatchCompleted, Completed: done} }

func SetTask(task string) Patch { return Patch{Kind: PatchTask, Task: task} }

// SetDeadline replaces the deadline; nil clears it.
func SetDeadline(deadline *string) Patch { return Patch{Kind: PatchDeadline, Deadline: deadline} }
