package store

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Action statuses.
const (
	ActionOK      = "ok"
	ActionFailed  = "failed"
	ActionPlanned = "planned" // generated by a dry run, never executed
)

// Action kinds.
const (
	KindExternal  = "external"
	KindInProcess = "in-process"
)

// Run is one driver invocation.
type Run struct {
	ID     string
	Inputs []string
	Flags  []string
	Pass   string
	Status string
	Error  string
}

// ActionRecord is one executed (or planned) action of a run.
type ActionRecord struct {
	RunID   string
	Seq     int64
	Node    string
	Kind    string
	Command []string
	Output  string
	Status  string
	Error   string
}
