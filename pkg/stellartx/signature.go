package stellartx

import (
	"bytes"
	"fmt"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

var (
	ErrSignatureNotFound = fmt.Errorf("no valid signature for the given key")
)

// VerifySignature returns whether the given raw signature was produced by
// the key identified by address over input. It never errors: malformed
// addresses or signature blobs simply yield false, callers decide what
// false means.
func VerifySignature(address string, input, signature []byte) bool {
	kp, err := keypair.ParseAddress(address)
	if err != nil {
		return false
	}
	return kp.Verify(input, signature) == nil
}

// SignatureHint returns the 4-byte hint derived from the given address,
// the same fragment the network attaches to decorated signatures to
// pre-filter which signer they might belong to.
func SignatureHint(address string) ([4]byte, error) {
	kp, err := keypair.ParseAddress(address)
	if err != nil {
		return [4]byte{}, err
	}
	return kp.Hint(), nil
}

// FindSignature extracts from the envelope the detached signature produced
// by the key identified by address over the envelope's network-scoped hash.
// Signatures are pre-filtered by hint before the full verification.
func FindSignature(
	tx *txnbuild.Transaction, networkPassphrase, address string,
) ([]byte, error) {
	kp, err := keypair.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	hash, err := tx.Hash(networkPassphrase)
	if err != nil {
		return nil, err
	}

	hint := kp.Hint()
	for _, sig := range tx.Signatures() {
		if !bytes.Equal(sig.Hint[:], hint[:]) {
			continue
		}
		if kp.Verify(hash[:], sig.Signature) == nil {
			return sig.Signature, nil
		}
	}
	return nil, ErrSignatureNotFound
}

// HasValidSignature returns whether the envelope carries a valid signature
// from the key identified by address.
func HasValidSignature(
	tx *txnbuild.Transaction, networkPassphrase, address string,
) bool {
	_, err := FindSignature(tx, networkPassphrase, address)
	return err == nil
}

// MatchesAnySigner reports whether the given hint belongs to one of the
// given signer addresses. Malformed addresses in the list are skipped.
func MatchesAnySigner(hint [4]byte, signers []string) bool {
	for _, signer := range signers {
		signerHint, err := SignatureHint(signer)
		if err != nil {
			continue
		}
		if bytes.Equal(hint[:], signerHint[:]) {
			return true
		}
	}
	return false
}

// DecorateSignature wraps a raw detached signature with the hint of the
// key that produced it, in the format the network expects.
func DecorateSignature(address string, signature []byte) (
	xdr.DecoratedSignature, error,
) {
	hint, err := SignatureHint(address)
	if err != nil {
		return xdr.DecoratedSignature{}, err
	}
	return xdr.DecoratedSignature{
		Hint:      xdr.SignatureHint(hint),
		Signature: xdr.Signature(signature),
	}, nil
}
