package signing_key_store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stellar/go/keypair"
)

const keyFileName = "signing.key"

// SigningKeyFileStore loads the server's signing keypair from a seed file in
// the datadir, generating and persisting a fresh one the first time the
// daemon starts.
type SigningKeyFileStore struct {
	datadir string
}

func NewSigningKeyFileStore(datadir string) *SigningKeyFileStore {
	return &SigningKeyFileStore{datadir}
}

// Load returns the persisted keypair, generating one if no seed file exists
// yet. The seed file is written with owner-only permissions.
func (s *SigningKeyFileStore) Load() (*keypair.Full, error) {
	keyFile := filepath.Join(s.datadir, keyFileName)

	seed, err := os.ReadFile(keyFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return s.generate(keyFile)
	}

	kp, err := keypair.ParseFull(strings.TrimSpace(string(seed)))
	if err != nil {
		return nil, fmt.Errorf("corrupted signing key file %s: %w", keyFile, err)
	}
	return kp, nil
}

func (s *SigningKeyFileStore) generate(keyFile string) (*keypair.Full, error) {
	kp, err := keypair.Random()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.datadir, 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyFile, []byte(kp.Seed()), 0600); err != nil {
		return nil, err
	}
	return kp, nil
}
