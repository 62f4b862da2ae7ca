package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
)

const (
	// DatadirKey is the key to customize the lumenvault datadir.
	DatadirKey = "DATADIR"
	// DatabaseTypeKey is the key to customize the type of database to use.
	DatabaseTypeKey = "DATABASE_TYPE"
	// PortKey is the key to customize the port where the daemon will be
	// listening to.
	PortKey = "PORT"
	// ProfilerPortKey is the key to customize the port where the profiler will
	// be listening to.
	ProfilerPortKey = "PROFILER_PORT"
	// NetworkKey is the key to customize the Stellar network.
	NetworkKey = "NETWORK"
	// NetworkPassphraseKey is the key to override the network passphrase.
	// Should be used only against a standalone network.
	NetworkPassphraseKey = "NETWORK_PASSPHRASE"
	// HorizonURLKey is the key to customize the horizon API server consumed by
	// the ledger service.
	HorizonURLKey = "HORIZON_URL"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// NoProfilerKey is the key to disable Prometheus profiling.
	NoProfilerKey = "NO_PROFILER"
	// StatsIntervalKey is the key to customize the interval for the profiler to
	// gather profiling stats.
	StatsIntervalKey = "STATS_INTERVAL"
	// BaseFeeKey is the key to customize the per-operation base fee of built
	// envelopes, in stroops.
	BaseFeeKey = "BASE_FEE"
	// TxTimeoutKey is the key to customize the validity window of built
	// envelopes.
	TxTimeoutKey = "TX_TIMEOUT_IN_SECONDS"
	// ChallengeTimeoutKey is the key to customize the expiry of ownership
	// challenges.
	ChallengeTimeoutKey = "CHALLENGE_TIMEOUT_IN_SECONDS"
	// ChallengeRateLimitKey is the key to customize the per-key rate of
	// challenge issuance.
	ChallengeRateLimitKey = "CHALLENGE_RATE_LIMIT"
	// ChallengeRateBurstKey is the key to customize the per-key burst of
	// challenge issuance.
	ChallengeRateBurstKey = "CHALLENGE_RATE_BURST"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// KeyStoreLocation is the folder inside the datadir containing the server
	// signing key.
	KeyStoreLocation = "keys"
	// ProfilerLocation is the folder inside the datadir containing profiler
	// stats files.
	ProfilerLocation = "stats"
	// DbUserKey is user used to connect to db
	DbUserKey = "DB_USER"
	// DbPassKey is password used to connect to db
	DbPassKey = "DB_PASS"
	// DbHostKey is host where db is installed
	DbHostKey = "DB_HOST"
	// DbPortKey is port on which db is listening
	DbPortKey = "DB_PORT"
	// DbNameKey is name of database
	DbNameKey = "DB_NAME"
	// DbMigrationPath is the path to migration files
	DbMigrationPath = "DB_MIGRATION_PATH"
)

var (
	vip *viper.Viper

	defaultDatadir          = btcutil.AppDataDir("lumenvaultd", false)
	defaultDbType           = "badger"
	defaultPort             = 18000
	defaultLogLevel         = 4
	defaultNetwork          = "testnet"
	defaultProfilerPort     = 18001
	defaultStatsInterval    = 600 // 10 minutes
	defaultBaseFee          = int(txnbuild.MinBaseFee)
	defaultTxTimeout        = 300 // 5 minutes
	defaultChallengeTimeout = 300 // 5 minutes
	defaultChallengeRate    = 1.0 // challenges per second per key
	defaultChallengeBurst   = 5

	supportedNetworks = map[string]string{
		"mainnet": network.PublicNetworkPassphrase,
		"testnet": network.TestNetworkPassphrase,
	}
	defaultHorizonURLs = map[string]string{
		"mainnet": "https://horizon.stellar.org",
		"testnet": "https://horizon-testnet.stellar.org",
	}
	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
		"postgres": {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("LUMENVAULT")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(PortKey, defaultPort)
	vip.SetDefault(NetworkKey, defaultNetwork)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(NoProfilerKey, false)
	vip.SetDefault(ProfilerPortKey, defaultProfilerPort)
	vip.SetDefault(StatsIntervalKey, defaultStatsInterval)
	vip.SetDefault(BaseFeeKey, defaultBaseFee)
	vip.SetDefault(TxTimeoutKey, defaultTxTimeout)
	vip.SetDefault(ChallengeTimeoutKey, defaultChallengeTimeout)
	vip.SetDefault(ChallengeRateLimitKey, defaultChallengeRate)
	vip.SetDefault(ChallengeRateBurstKey, defaultChallengeBurst)
	vip.SetDefault(DbUserKey, "root")
	vip.SetDefault(DbPassKey, "secret")
	vip.SetDefault(DbHostKey, "127.0.0.1")
	vip.SetDefault(DbPortKey, 5432)
	vip.SetDefault(DbNameKey, "lumenvault-db-pg")
	vip.SetDefault(DbMigrationPath, "file://internal/infrastructure/storage/db/postgres/migration")

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	net := GetString(NetworkKey)
	if len(net) == 0 {
		return fmt.Errorf("network must not be null")
	}
	if _, ok := supportedNetworks[net]; !ok {
		nets := make([]string, 0, len(supportedNetworks))
		for net := range supportedNetworks {
			nets = append(nets, net)
		}
		return fmt.Errorf("unknown network, must be one of: %v", nets)
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	if baseFee := GetInt(BaseFeeKey); baseFee < int(txnbuild.MinBaseFee) {
		return fmt.Errorf("base fee must be at least %d stroops", txnbuild.MinBaseFee)
	}

	if timeout := GetInt(TxTimeoutKey); timeout <= 0 {
		return fmt.Errorf("tx timeout must be a positive number of seconds")
	}
	if timeout := GetInt(ChallengeTimeoutKey); timeout <= 0 {
		return fmt.Errorf("challenge timeout must be a positive number of seconds")
	}

	port := GetInt(PortKey)
	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		profilerPort := GetInt(ProfilerPortKey)
		if port == profilerPort {
			return fmt.Errorf("port and profiler port must not be equal")
		}
	}

	return nil
}

func GetDatadir() string {
	return filepath.Join(GetString(DatadirKey), GetString(NetworkKey))
}

// GetNetworkPassphrase returns the passphrase transaction hashes are scoped
// to, honoring the override for standalone networks.
func GetNetworkPassphrase() string {
	if passphrase := GetString(NetworkPassphraseKey); len(passphrase) > 0 {
		return passphrase
	}
	return supportedNetworks[GetString(NetworkKey)]
}

// GetHorizonURL returns the horizon API server address, falling back to the
// well known instance of the configured network.
func GetHorizonURL() string {
	if url := GetString(HorizonURLKey); len(url) > 0 {
		return url
	}
	return defaultHorizonURLs[GetString(NetworkKey)]
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, KeyStoreLocation)); err != nil {
		return err
	}

	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}
