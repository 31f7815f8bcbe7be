package locker

// Status tracks one mutation through its lifecycle. Each mutation
// instance is independent; there is no cross-mutation ordering.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Kind names the mutation variant.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Mutation is the observable record of one write operation. On failure
// the underlying error is preserved for display; on success Digest (and
// CreatedID for creates) identify the committed transaction.
type Mutation struct {
	Kind      Kind
	Status    Status
	Digest    string
	CreatedID string
	Err       error
}

func newMutation(kind Kind) *Mutation {
	return &Mutation{Kind: kind, Status: StatusIdle}
}

func (m *Mutation) start() { m.Status = StatusPending }

func (m *Mutation) fail(err error) error {
	m.Status = StatusFailed
	m.Err = err
	return err
}

func (m *Mutation) succeed(digest string) {
	m.Status = StatusSucceeded
	m.Digest = digest
}
