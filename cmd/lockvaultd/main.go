package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"lockvault/config"
	"lockvault/core/state"
	"lockvault/native/amm"
	"lockvault/native/ledger"
	"lockvault/native/lockup"
	"lockvault/observability/logging"
	"lockvault/observability/metrics"
	"lockvault/rpc"
	"lockvault/storage"
)

const adminSeedEnv = "LOCKVAULT_ADMIN_ADDRESS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LOCKVAULT_ENV"))
	logger := logging.Setup("lockvaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.Node.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	lgr := ledger.New(manager)
	heightFn := chainClock(cfg.Chain)

	if err := seedAdminRole(manager); err != nil {
		logger.Error("Failed to seed admin role", slog.Any("error", err))
		os.Exit(1)
	}
	if err := seedMemberRoles(manager, cfg); err != nil {
		logger.Error("Failed to seed member roles", slog.Any("error", err))
		os.Exit(1)
	}

	exclusions, err := cfg.ExclusionAddresses()
	if err != nil {
		logger.Error("Failed to parse pool exclusions", slog.Any("error", err))
		os.Exit(1)
	}

	opts := []rpc.Option{
		rpc.WithRateLimit(cfg.RPC.RateLimitPerSecond, cfg.RPC.RateLimitBurst),
		rpc.WithMetrics(metrics.Lockup()),
	}
	if secret := strings.TrimSpace(os.Getenv(cfg.RPC.AdminJWTSecretEnv)); secret != "" {
		opts = append(opts, rpc.WithAdminSecret([]byte(secret)))
	} else {
		logger.Warn("Admin surface disabled; no JWT secret configured", slog.String("env", cfg.RPC.AdminJWTSecretEnv))
	}

	if cfg.SplitPool.Enabled {
		engine, err := buildSplitEngine(cfg, manager, lgr, exclusions, heightFn)
		if err != nil {
			logger.Error("Failed to build lockup engine", slog.Any("error", err))
			os.Exit(1)
		}
		vault := engine.Vault()
		opts = append(opts,
			rpc.WithSplitEngine(engine),
			rpc.WithZapperFactory(func(addr [20]byte) lockup.Zapper {
				return amm.NewStaticZapper(lgr, addr, vault, 1, 1)
			}),
		)
		logger.Info("LP-splitting pool enabled", slog.String("vault", ethcommon.Address(vault).Hex()))
	}
	if cfg.CreditPool.Enabled {
		engine, err := buildCreditEngine(cfg, manager, lgr, exclusions, heightFn)
		if err != nil {
			logger.Error("Failed to build credit engine", slog.Any("error", err))
			os.Exit(1)
		}
		opts = append(opts, rpc.WithCreditEngine(engine))
		logger.Info("Credit-burning pool enabled", slog.String("vault", ethcommon.Address(engine.Vault()).Hex()))
	}

	server := rpc.NewServer(logger, heightFn, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("HTTP server listening", slog.String("address", cfg.Node.ListenAddress))
		return server.Serve(ctx, cfg.Node.ListenAddress)
	})

	if err := group.Wait(); err != nil {
		logger.Error("Server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// chainClock derives block heights from wall-clock time against the configured
// genesis timestamp.
func chainClock(chain config.Chain) func() uint64 {
	interval := int64(chain.BlockIntervalSeconds)
	if interval <= 0 {
		interval = 12
	}
	return func() uint64 {
		elapsed := time.Now().Unix() - chain.GenesisUnix
		if elapsed <= 0 {
			return 0
		}
		return uint64(elapsed / interval)
	}
}

// seedAdminRole grants the admin role to the address named in the environment
// so a fresh deployment has a working administrative surface.
func seedAdminRole(manager *state.Manager) error {
	raw := strings.TrimSpace(os.Getenv(adminSeedEnv))
	if raw == "" {
		return nil
	}
	if !ethcommon.IsHexAddress(raw) {
		return fmt.Errorf("%s: invalid address %q", adminSeedEnv, raw)
	}
	addr := ethcommon.HexToAddress(raw)
	return manager.GrantRole(lockup.RoleLockupAdmin, addr[:])
}

// seedMemberRoles applies the [Roles] config section: the Open switches toggle
// the zero-address grant that opens a role to every caller, and named entries
// are granted individually. Without any grant the engines fail closed.
func seedMemberRoles(manager *state.Manager, cfg *config.Config) error {
	var zero [20]byte
	setOpen := func(role string, open bool) error {
		if open {
			return manager.GrantRole(role, zero[:])
		}
		return manager.RevokeRole(role, zero[:])
	}
	if err := setOpen(lockup.RoleLockupDepositor, cfg.Roles.OpenDeposits); err != nil {
		return err
	}
	if err := setOpen(lockup.RoleLockupTransfer, cfg.Roles.OpenTransfers); err != nil {
		return err
	}
	depositors, err := cfg.DepositorAddresses()
	if err != nil {
		return err
	}
	for _, addr := range depositors {
		if err := manager.GrantRole(lockup.RoleLockupDepositor, addr[:]); err != nil {
			return err
		}
	}
	transferers, err := cfg.TransferAddresses()
	if err != nil {
		return err
	}
	for _, addr := range transferers {
		if err := manager.GrantRole(lockup.RoleLockupTransfer, addr[:]); err != nil {
			return err
		}
	}
	return nil
}

func buildSplitEngine(cfg *config.Config, manager *state.Manager, lgr *ledger.Ledger, exclusions [][20]byte, heightFn func() uint64) (*lockup.Engine, error) {
	params, err := cfg.SplitParams()
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	engine := lockup.NewEngine(params)
	engine.SetState(lockup.NewStore(manager, "lockup"))
	engine.SetLedger(lgr)
	engine.SetPauses(manager)
	engine.SetPoolRegistry(lockup.NewStaticPoolRegistry(exclusions))
	engine.SetBlockHeight(heightFn())

	// Development collaborators: a fixed-rate zapper and router backed by
	// the in-process ledger. Production deployments swap these for real
	// market adapters.
	zapperAddr := lockup.VaultAddress("zapper")
	zapper := amm.NewStaticZapper(lgr, zapperAddr, engine.Vault(), 1, 1)
	if err := engine.SetZapper(zapper, zapperAddr); err != nil {
		return nil, err
	}
	if len(params.SwapPath) == 2 {
		routerAddr := lockup.VaultAddress("router")
		router := amm.NewStaticRouter(lgr, routerAddr, 1, 1)
		if err := engine.SetSwapRouter(router, routerAddr); err != nil {
			return nil, err
		}
	}

	splits, err := cfg.SeedSplits()
	if err != nil {
		return nil, err
	}
	for _, split := range splits {
		// Seeds never overwrite live splits; admins reconfigure through
		// the HTTP surface.
		if _, ok, err := engine.GetSplit(split.ID); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		if err := engine.SeedSplit(split); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

func buildCreditEngine(cfg *config.Config, manager *state.Manager, lgr *ledger.Ledger, exclusions [][20]byte, heightFn func() uint64) (*lockup.CreditEngine, error) {
	params, err := cfg.CreditParams()
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	engine := lockup.NewCreditEngine(params)
	engine.SetState(lockup.NewStore(manager, "creditpool"))
	engine.SetLedger(lgr)
	engine.SetPauses(manager)
	engine.SetPoolRegistry(lockup.NewStaticPoolRegistry(exclusions))
	engine.SetBlockHeight(heightFn())
	return engine, nil
}
