package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	appconfig "github.com/lumenvault/lumenvault/internal/app-config"
	"github.com/lumenvault/lumenvault/internal/config"
	"github.com/lumenvault/lumenvault/internal/core/domain"
	signing_key_store "github.com/lumenvault/lumenvault/internal/infrastructure/signing-key-store/file"
	postgresdb "github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/postgres"
	"github.com/lumenvault/lumenvault/pkg/profiler"
)

var (
	// Build info.
	version string
	commit  string
	date    string

	// Config from env vars.
	dbType            = config.GetString(config.DatabaseTypeKey)
	logLevel          = config.GetInt(config.LogLevelKey)
	datadir           = config.GetDatadir()
	profilerPort      = config.GetInt(config.ProfilerPortKey)
	networkPassphrase = config.GetNetworkPassphrase()
	horizonURL        = config.GetHorizonURL()
	noProfiler        = config.GetBool(config.NoProfilerKey)
	dbDir             = filepath.Join(datadir, config.DbLocation)
	keyDir            = filepath.Join(datadir, config.KeyStoreLocation)
	profilerDir       = filepath.Join(datadir, config.ProfilerLocation)
	statsInterval     = time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	baseFee           = config.GetInt(config.BaseFeeKey)
	txTimeout         = time.Duration(config.GetInt(config.TxTimeoutKey)) * time.Second
	challengeTimeout  = time.Duration(config.GetInt(config.ChallengeTimeoutKey)) * time.Second
	challengeRate     = config.GetFloat(config.ChallengeRateLimitKey)
	challengeBurst    = config.GetInt(config.ChallengeRateBurstKey)
)

func main() {
	log.SetLevel(log.Level(logLevel))

	if profilerEnabled := !noProfiler; profilerEnabled {
		profilerSvc, err := profiler.NewService(profiler.ServiceOpts{
			Port:          profilerPort,
			StatsInterval: statsInterval,
			Datadir:       profilerDir,
		})
		if err != nil {
			log.WithError(err).Fatal("profiler: error while starting")
		}

		profilerSvc.Start()
		defer func() {
			profilerSvc.Stop()
		}()
	}

	keyStore := signing_key_store.NewSigningKeyFileStore(keyDir)
	serverKey, err := keyStore.Load()
	if err != nil {
		log.WithError(err).Fatal("keystore: error while loading signing key")
	}

	var repoManagerConfig interface{} = dbDir
	if dbType == "postgres" {
		repoManagerConfig = postgresdb.DbConfig{
			DbUser:             config.GetString(config.DbUserKey),
			DbPassword:         config.GetString(config.DbPassKey),
			DbHost:             config.GetString(config.DbHostKey),
			DbPort:             config.GetInt(config.DbPortKey),
			DbName:             config.GetString(config.DbNameKey),
			MigrationSourceURL: config.GetString(config.DbMigrationPath),
		}
	}

	appCfg := &appconfig.AppConfig{
		Version:            version,
		Commit:             commit,
		Date:               date,
		NetworkPassphrase:  networkPassphrase,
		HorizonURL:         horizonURL,
		ServerKey:          serverKey,
		BaseFee:            int64(baseFee),
		TxTimeout:          txTimeout,
		ChallengeTimeout:   challengeTimeout,
		ChallengeRateLimit: challengeRate,
		ChallengeRateBurst: challengeBurst,
		RepoManagerType:    dbType,
		RepoManagerConfig:  repoManagerConfig,
	}
	if err := appCfg.Validate(); err != nil {
		log.WithError(err).Fatal("config: invalid application config")
	}
	defer func() {
		appCfg.RepoManager().Close()
	}()

	registerMetricHandlers(appCfg)

	// Instantiate every application service upfront so their event handlers
	// are registered before any repository activity.
	appCfg.AuthService()
	appCfg.AccountService()
	appCfg.ProposalService()
	appCfg.ExecutorService()

	buildInfo := appCfg.BuildInfo()
	log.Infof(
		"lumenvaultd %s (commit %s, built %s) started with server key %s",
		buildInfo.Version, buildInfo.Commit, buildInfo.Date,
		serverKey.Address(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutdown")
}

func registerMetricHandlers(appCfg *appconfig.AppConfig) {
	rm := appCfg.RepoManager()
	rm.RegisterHandlerForProposalEvent(
		domain.ProposalCreated, func(_ domain.ProposalEvent) {
			profiler.ProposalsCreated.Inc()
		},
	)
	rm.RegisterHandlerForProposalEvent(
		domain.ProposalThresholdReached, func(_ domain.ProposalEvent) {
			profiler.ProposalsApproved.Inc()
		},
	)
	rm.RegisterHandlerForProposalEvent(
		domain.ProposalExecutedEvent, func(_ domain.ProposalEvent) {
			profiler.ProposalsExecuted.Inc()
		},
	)
}
