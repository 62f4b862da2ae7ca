package stellartx

import (
	"fmt"

	"github.com/stellar/go/txnbuild"
)

var (
	ErrMissingEnvelope = fmt.Errorf("missing transaction envelope")
	ErrFeeBumpEnvelope = fmt.Errorf("fee-bump envelopes are not supported")
	ErrInvalidEnvelope = fmt.Errorf("invalid transaction envelope")
)

// ParseEnvelope decodes a base64 transaction envelope in any of the shapes
// produced by wallet integrations (v0 or v1) and returns the one canonical
// inner transaction. Fee-bump wrappers are rejected because their inner
// transaction hash differs from the envelope hash and they cannot carry
// the detached signatures this package deals with.
func ParseEnvelope(envelopeXDR string) (*txnbuild.Transaction, error) {
	if len(envelopeXDR) == 0 {
		return nil, ErrMissingEnvelope
	}

	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", ErrInvalidEnvelope, err)
	}
	if _, ok := generic.FeeBump(); ok {
		return nil, ErrFeeBumpEnvelope
	}

	tx, ok := generic.Transaction()
	if !ok {
		return nil, ErrInvalidEnvelope
	}
	return tx, nil
}

// HashHex returns the network-scoped hash of the given envelope as a hex
// string. Two envelopes encoding the same transaction always produce the
// same hash, whatever signatures they carry.
func HashHex(envelopeXDR, networkPassphrase string) (string, error) {
	tx, err := ParseEnvelope(envelopeXDR)
	if err != nil {
		return "", err
	}
	return tx.HashHex(networkPassphrase)
}
