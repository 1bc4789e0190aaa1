package session

// State is the lock state of the database session.
type State int

const (
	Locked State = iota
	Unlocking
	Unlocked
	// Error is entered when the oracle rejects a freshly entered credential.
	// It is left for Locked as soon as the error has been reported.
	Error
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event drives Transition.
type Event int

const (
	// EventCredentialMissing: a query found no live credential.
	EventCredentialMissing Event = iota
	// EventUnlockSucceeded: the probe accepted the entered credential.
	EventUnlockSucceeded
	// EventUnlockRejected: the probe rejected the entered credential.
	EventUnlockRejected
	// EventUnlockFailed: configuration or transient failure while unlocking.
	EventUnlockFailed
	// EventPromptCancelled: the user dismissed the credential prompt.
	EventPromptCancelled
	// EventErrorReported: the rejection was surfaced to the caller.
	EventErrorReported
	// EventExpired: the cached credential timed out.
	EventExpired
	// EventCredentialRejected: a query with the cached credential was refused.
	EventCredentialRejected
	// EventQuerySucceeded: a query with the cached credential succeeded.
	EventQuerySucceeded
	// EventLock: explicit lock, retarget or timeout change.
	EventLock
)

var eventNames = map[Event]string{
	EventCredentialMissing:  "credential-missing",
	EventUnlockSucceeded:    "unlock-succeeded",
	EventUnlockRejected:     "unlock-rejected",
	EventUnlockFailed:       "unlock-failed",
	EventPromptCancelled:    "prompt-cancelled",
	EventErrorReported:      "error-reported",
	EventExpired:            "expired",
	EventCredentialRejected: "credential-rejected",
	EventQuerySucceeded:     "query-succeeded",
	EventLock:               "lock",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "unknown"
}

type edge struct {
	from State
	ev   Event
}

var transitions = map[edge]State{
	{Locked, EventCredentialMissing}: Unlocking,
	{Locked, EventUnlockFailed}:      Locked,
	{Locked, EventLock}:              Locked,

	{Unlocking, EventUnlockSucceeded}: Unlocked,
	{Unlocking, EventUnlockRejected}:  Error,
	{Unlocking, EventUnlockFailed}:    Locked,
	{Unlocking, EventPromptCancelled}: Locked,
	{Unlocking, EventLock}:            Locked,

	{Error, EventErrorReported}:     Locked,
	{Error, EventCredentialMissing}: Unlocking,
	{Error, EventLock}:              Locked,

	{Unlocked, EventQuerySucceeded}:     Unlocked,
	{Unlocked, EventExpired}:            Locked,
	{Unlocked, EventCredentialRejected}: Locked,
	{Unlocked, EventLock}:               Locked,
}

// Transition is the pure state function of the session. It returns the next
// state and true, or from and false when ev is not valid in from.
func Transition(from State, ev Event) (State, bool) {
	next, ok := transitions[edge{from, ev}]
	if !ok {
		return from, false
	}
	return next, true
}
