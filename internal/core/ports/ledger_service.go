package ports

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var (
	ErrAccountNotFound = fmt.Errorf("account not found on the ledger")
)

// SignerState is a signer entry of the on-chain account state.
type SignerState struct {
	Key    string
	Weight int32
}

// Balance is an asset balance of the on-chain account state.
type Balance struct {
	Asset  string
	Amount string
}

// AccountState is the snapshot of an on-chain account consumed by the
// engine: the sequence number envelopes must build on, and the signer set
// the network currently accepts signatures from. The latter can differ from
// the stored account policy if a reconfiguration already partially executed.
type AccountState struct {
	Sequence int64
	Signers  []SignerState
	Balances []Balance
}

// SignerKeys returns the public keys of the current on-chain signers.
func (s *AccountState) SignerKeys() []string {
	keys := make([]string, 0, len(s.Signers))
	for _, signer := range s.Signers {
		keys = append(keys, signer.Key)
	}
	return keys
}

// SubmitResult holds info about a successfully included transaction.
type SubmitResult struct {
	TxHash string
	Ledger int32
}

// Payment is an entry of an account's payment history.
type Payment struct {
	ID        string
	From      string
	To        string
	Asset     string
	Amount    string
	CreatedAt time.Time
}

// SubmitError is a structured rejection returned by the ledger network for
// a submitted envelope. The raw result codes are surfaced verbatim so that
// callers can diagnose the failure (eg. bad sequence or stale signature).
type SubmitError struct {
	TxCode    string
	OpCodes   []string
	ResultXDR string
}

func (e *SubmitError) Error() string {
	if len(e.OpCodes) > 0 {
		return fmt.Sprintf(
			"network rejected envelope: %s (operations: %s)",
			e.TxCode, strings.Join(e.OpCodes, ", "),
		)
	}
	return fmt.Sprintf("network rejected envelope: %s", e.TxCode)
}

// LedgerService is the abstraction for any kind of service representing the
// ledger network. It loads current account state, submits signed envelopes
// and fetches payment history. Calls are blocking I/O, callers bound them
// with the context; the engine never retries a submission on its own since
// resubmitting a possibly-broadcast envelope is unsafe without checking the
// ledger state first.
type LedgerService interface {
	// GetAccount returns the current on-chain state of the account
	// identified by the given address, or ErrAccountNotFound.
	GetAccount(ctx context.Context, address string) (*AccountState, error)
	// SubmitEnvelope broadcasts the given base64 envelope. Returns a
	// *SubmitError if the network rejects it.
	SubmitEnvelope(ctx context.Context, envelopeXDR string) (*SubmitResult, error)
	// GetPaymentHistory returns the payments involving the given address,
	// most recent first.
	GetPaymentHistory(ctx context.Context, address string) ([]Payment, error)
}
