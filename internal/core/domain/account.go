package domain

import (
	"fmt"
	"sort"

	"github.com/stellar/go/keypair"
)

var (
	ErrAccountNotFound         = fmt.Errorf("account not found")
	ErrAccountMissingAdmin     = fmt.Errorf("missing account administrator")
	ErrAccountInvalidOwnerKey  = fmt.Errorf("invalid owner public key")
	ErrAccountInvalidThreshold = fmt.Errorf("threshold must be at least 1")
	ErrSignerInvalidKey        = fmt.Errorf("invalid signer public key")
	ErrSignerInvalidWeight     = fmt.Errorf("signer weight must be at least 1")
	ErrSignerAlreadyAdded      = fmt.Errorf("signer already added to account")
	ErrSignerNotFound          = fmt.Errorf("signer not found in account")
	ErrSignerIsOwner           = fmt.Errorf("the owner signer cannot be removed")
	ErrNotAdministrator        = fmt.Errorf(
		"operation permitted only to the account administrator",
	)
)

// Signer is an authorized signer entry of an account policy. The weight is
// advisory metadata mirrored on-chain by reconfiguration envelopes, it does
// not contribute to threshold evaluation (see Account.Threshold).
type Signer struct {
	PublicKey  string
	Weight     int32
	IdentityID string
}

// Account is the weighted-signature policy guarding a ledger account: the
// owner key, the set of authorized signers keyed by public key, and the
// number of distinct approvals required to authorize a spending proposal.
type Account struct {
	ID          string
	AdminID     string
	OwnerKey    string
	Signers     map[string]Signer
	Threshold   int32
	TotalWeight int32
}

// NewAccount returns a new Account owned by the given administrator
// identity. The owner key is registered as the first signer entry with
// weight 1, linked to the administrator.
func NewAccount(id, adminID, ownerKey string, threshold int32) (*Account, error) {
	if len(adminID) == 0 {
		return nil, ErrAccountMissingAdmin
	}
	if _, err := keypair.ParseAddress(ownerKey); err != nil {
		return nil, ErrAccountInvalidOwnerKey
	}
	if threshold < 1 {
		return nil, ErrAccountInvalidThreshold
	}

	return &Account{
		ID:       id,
		AdminID:  adminID,
		OwnerKey: ownerKey,
		Signers: map[string]Signer{
			ownerKey: {
				PublicKey:  ownerKey,
				Weight:     1,
				IdentityID: adminID,
			},
		},
		Threshold:   threshold,
		TotalWeight: 1,
	}, nil
}

// HasSigner returns whether the given public key belongs to the account's
// signer set.
func (a *Account) HasSigner(publicKey string) bool {
	_, ok := a.Signers[publicKey]
	return ok
}

// GetSigner safely returns the signer entry for the given public key.
func (a *Account) GetSigner(publicKey string) (Signer, bool) {
	signer, ok := a.Signers[publicKey]
	return signer, ok
}

// SignerKeys returns the public keys of all signers of the account.
func (a *Account) SignerKeys() []string {
	keys := make([]string, 0, len(a.Signers))
	for key := range a.Signers {
		keys = append(keys, key)
	}
	return keys
}

// CosignerEntries returns the non-owner signer entries in deterministic
// order by public key, the order reconfiguration envelopes stage them in.
func (a *Account) CosignerEntries() []Signer {
	keys := make([]string, 0, len(a.Signers))
	for key := range a.Signers {
		if key == a.OwnerKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	signers := make([]Signer, 0, len(keys))
	for _, key := range keys {
		signers = append(signers, a.Signers[key])
	}
	return signers
}

// OwnerWeight returns the weight of the owner signer entry, ie. the master
// weight staged by reconfiguration envelopes.
func (a *Account) OwnerWeight() int32 {
	return a.Signers[a.OwnerKey].Weight
}

// AddSigner adds a new signer entry to the account. Gated to the account
// administrator. The total weight is maintained incrementally.
func (a *Account) AddSigner(callerID string, signer Signer) error {
	if callerID != a.AdminID {
		return ErrNotAdministrator
	}
	if _, err := keypair.ParseAddress(signer.PublicKey); err != nil {
		return ErrSignerInvalidKey
	}
	if signer.Weight < 1 {
		return ErrSignerInvalidWeight
	}
	if a.HasSigner(signer.PublicKey) {
		return ErrSignerAlreadyAdded
	}

	a.Signers[signer.PublicKey] = signer
	a.TotalWeight += signer.Weight
	return nil
}

// RemoveSigner removes the signer entry with the given public key. Gated to
// the account administrator, the owner entry cannot be removed.
func (a *Account) RemoveSigner(callerID, publicKey string) error {
	if callerID != a.AdminID {
		return ErrNotAdministrator
	}
	if publicKey == a.OwnerKey {
		return ErrSignerIsOwner
	}
	signer, ok := a.Signers[publicKey]
	if !ok {
		return ErrSignerNotFound
	}

	delete(a.Signers, publicKey)
	a.TotalWeight -= signer.Weight
	return nil
}

// SetThreshold updates the number of approvals required to authorize a
// proposal. Gated to the account administrator. The threshold is not
// required to stay within the total weight, an unsatisfiable policy simply
// never executes.
func (a *Account) SetThreshold(callerID string, threshold int32) error {
	if callerID != a.AdminID {
		return ErrNotAdministrator
	}
	if threshold < 1 {
		return ErrAccountInvalidThreshold
	}

	a.Threshold = threshold
	return nil
}
