// Package ledger talks to the blockchain network of record. It offers
// exactly the two primitives the core needs: a simulated (non-committing)
// call that returns still-binary return values, and a finality wait for
// a submitted transaction digest. Decoding of return values is handled
// by the schema codec in this package.
package ledger

import (
	"context"
	"strings"

	"github.com/suilocker/suilocker/internal/txb"
)

// Client is the ledger capability consumed by the query/mutation layer.
type Client interface {
	// DevInspect executes the move call described by tx without
	// committing state and returns its binary return values.
	DevInspect(ctx context.Context, sender string, tx *txb.Transaction) (*InspectResult, error)

	// WaitForTransaction blocks until the transaction identified by
	// digest reaches finality and returns its effects.
	WaitForTransaction(ctx context.Context, digest string) (*Effects, error)
}

// MoveCall is the wire form of a transaction builder's output.
type MoveCall struct {
	Package  string `json:"package"`
	Module   string `json:"module"`
	Function string `json:"function"`
	Args     []any  `json:"arguments"`
}

// InspectResult carries the raw return values of a simulated call, one
// byte slice per returned value, in declaration order.
type InspectResult struct {
	ReturnValues [][]byte
}

// ObjectChange describes one object created by a transaction.
type ObjectChange struct {
	ObjectID   string
	ObjectType string
}

// Effects is the finality record of a committed transaction.
type Effects struct {
	Digest  string
	Status  string
	Error   string
	Created []ObjectChange
}

const statusSuccess = "success"

// Succeeded reports whether the transaction executed without error.
func (e *Effects) Succeeded() bool { return e.Status == statusSuccess }

// FindCreated returns the id of the first created object whose type ends
// with typeSuffix, e.g. "::blob::Blob".
func (e *Effects) FindCreated(typeSuffix string) (string, bool) {
	for _, c := range e.Created {
		if strings.HasSuffix(c.ObjectType, typeSuffix) {
			return c.ObjectID, true
		}
	}
	return "", false
}
