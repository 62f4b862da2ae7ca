package appconfig

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stellar/go/keypair"

	"github.com/lumenvault/lumenvault/internal/config"
	"github.com/lumenvault/lumenvault/internal/core/application"
	"github.com/lumenvault/lumenvault/internal/core/ports"
	horizonledger "github.com/lumenvault/lumenvault/internal/infrastructure/ledger/horizon"
	dbbadger "github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/badger"
	"github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/postgres"
	"github.com/lumenvault/lumenvault/pkg/ratelimiter"
)

const horizonRequestTimeout = 30 * time.Second

// AppConfig is the struct holding all configuration options for every
// application service (auth, account, proposal and executor).
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - NetworkPassphrase - (required) The passphrase transaction hashes are scoped to.
//   - HorizonURL - (required) The horizon API server to consume as ledger service.
//   - ServerKey - (required) The daemon's challenge-signing keypair.
//   - BaseFee - (required) The per-operation fee of built envelopes, in stroops.
//   - TxTimeout - (required) The validity window of built envelopes.
//   - ChallengeTimeout - (required) The expiry of ownership challenges.
//   - ChallengeRateLimit/ChallengeRateBurst - (required) Per-key challenge issuance bounds.
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
type AppConfig struct {
	Version string
	Commit  string
	Date    string

	NetworkPassphrase  string
	HorizonURL         string
	ServerKey          *keypair.Full
	BaseFee            int64
	TxTimeout          time.Duration
	ChallengeTimeout   time.Duration
	ChallengeRateLimit float64
	ChallengeRateBurst int

	RepoManagerType   string
	RepoManagerConfig interface{}

	rm          ports.RepoManager
	ledger      ports.LedgerService
	authSvc     *application.AuthService
	accountSvc  *application.AccountService
	proposalSvc *application.ProposalService
	executorSvc *application.ExecutorService
}

func (c *AppConfig) Validate() error {
	if len(c.NetworkPassphrase) == 0 {
		return fmt.Errorf("missing network passphrase")
	}
	if len(c.HorizonURL) == 0 {
		return fmt.Errorf("missing horizon url")
	}
	if c.ServerKey == nil {
		return fmt.Errorf("missing server signing key")
	}
	if c.BaseFee <= 0 {
		return fmt.Errorf("missing base fee")
	}
	if c.TxTimeout == 0 {
		return fmt.Errorf("missing tx timeout")
	}
	if c.ChallengeTimeout == 0 {
		return fmt.Errorf("missing challenge timeout")
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) LedgerService() ports.LedgerService {
	return c.ledgerService()
}

func (c *AppConfig) AuthService() *application.AuthService {
	return c.authService()
}

func (c *AppConfig) AccountService() *application.AccountService {
	return c.accountService()
}

func (c *AppConfig) ProposalService() *application.ProposalService {
	return c.proposalService()
}

func (c *AppConfig) ExecutorService() *application.ExecutorService {
	return c.executorService()
}

func (c *AppConfig) BuildInfo() application.BuildInfo {
	version := "dev"
	if c.Version != "" {
		version = c.Version
	}
	commit := "none"
	if c.Commit != "" {
		commit = c.Commit
	}
	date := "unknown"
	if c.Date != "" {
		date = c.Date
	}
	return application.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	case "postgres":
		dbConfig, ok := c.RepoManagerConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be postgresdb.DbConfig")
		}

		rm, err := postgresdb.NewRepoManager(dbConfig)
		if err != nil {
			return nil, err
		}

		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) ledgerService() ports.LedgerService {
	if c.ledger != nil {
		return c.ledger
	}

	c.ledger = horizonledger.NewService(c.HorizonURL, horizonRequestTimeout)
	return c.ledger
}

func (c *AppConfig) authService() *application.AuthService {
	if c.authSvc != nil {
		return c.authSvc
	}

	rm, _ := c.repoManager()
	limiter := ratelimiter.New(c.ChallengeRateLimit, c.ChallengeRateBurst)
	c.authSvc = application.NewAuthService(
		rm, c.ServerKey, c.NetworkPassphrase, c.ChallengeTimeout, limiter,
	)
	return c.authSvc
}

func (c *AppConfig) accountService() *application.AccountService {
	if c.accountSvc != nil {
		return c.accountSvc
	}

	rm, _ := c.repoManager()
	c.accountSvc = application.NewAccountService(rm, c.ledgerService())
	return c.accountSvc
}

func (c *AppConfig) proposalService() *application.ProposalService {
	if c.proposalSvc != nil {
		return c.proposalSvc
	}

	rm, _ := c.repoManager()
	c.proposalSvc = application.NewProposalService(
		rm, c.ledgerService(), c.NetworkPassphrase, c.BaseFee, c.TxTimeout,
	)
	return c.proposalSvc
}

func (c *AppConfig) executorService() *application.ExecutorService {
	if c.executorSvc != nil {
		return c.executorSvc
	}

	rm, _ := c.repoManager()
	c.executorSvc = application.NewExecutorService(
		rm, c.ledgerService(), c.NetworkPassphrase,
	)
	return c.executorSvc
}
