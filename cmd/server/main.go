package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"facegate/internal/audit"
	auditkafka "facegate/internal/audit/kafka"
	"facegate/internal/auth"
	"facegate/internal/auth/jwttoken"
	"facegate/internal/auth/revocation"
	"facegate/internal/auth/totp"
	"facegate/internal/face"
	"facegate/internal/identity"
	identitymemory "facegate/internal/identity/store/memory"
	identitypg "facegate/internal/identity/store/postgres"
	"facegate/internal/ledger"
	"facegate/internal/ledger/chain"
	ledgerpg "facegate/internal/ledger/postgres"
	"facegate/internal/monitor"
	"facegate/internal/platform/config"
	"facegate/internal/platform/database"
	"facegate/internal/platform/httpserver"
	"facegate/internal/platform/logger"
	platformredis "facegate/internal/platform/redis"
	"facegate/internal/schedule"
	schedulememory "facegate/internal/schedule/store/memory"
	schedulepg "facegate/internal/schedule/store/postgres"
	transport "facegate/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if path := os.Getenv("FACEGATE_CONFIG"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = database.Open(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	auditLedger, closeLedger, err := buildLedger(ctx, cfg, db)
	if err != nil {
		return err
	}
	if closeLedger != nil {
		defer closeLedger()
	}

	var publisher audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := auditkafka.New(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = kp.Close(flushCtx)
		}()
		publisher = kp
	}
	recorder := audit.New(auditLedger, publisher, log)

	var identities identity.Store
	var schedules schedule.Store
	if db != nil {
		identities = identitypg.New(db)
		schedules = schedulepg.New(db)
	} else {
		identities = identitymemory.New()
		schedules = schedulememory.New()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}

	var revoker interface {
		Revoke(ctx context.Context, jti string, expiresAt time.Time) error
		IsRevoked(ctx context.Context, jti string) (bool, error)
	}
	if redisClient != nil {
		defer redisClient.Close()
		revoker = revocation.NewRedisStore(redisClient.Client)
	} else {
		revoker = revocation.NewMemoryStore()
	}

	if cfg.ExtractorURL == "" {
		return errors.New("FACEGATE_EXTRACTOR_URL is required")
	}
	extractor := face.NewHTTPExtractor(cfg.ExtractorURL)

	issuer := jwttoken.NewIssuer([]byte(cfg.JWTSigningKey), jwttoken.DefaultTTL)
	enroller := func(issuerName, account string) (string, string, error) {
		e, err := totp.Enroll(issuerName, account)
		return e.Secret, e.ProvisioningURI, err
	}

	identityService := identity.NewService(identities, extractor, recorder, enroller, cfg.TOTPIssuer, log)
	authService := auth.NewService(identities, extractor, recorder, issuer, revoker, cfg.StrictTolerance, log)
	monitorService := monitor.NewService(identities, extractor, recorder, cfg.MonitorTolerance, log)

	router := transport.NewRouter(transport.Deps{
		Identity:   identityService,
		Auth:       authService,
		Monitor:    monitorService,
		Schedule:   schedules,
		Audit:      recorder,
		Validator:  issuer,
		Revocation: revoker,
		Health: func() error {
			if db != nil {
				if err := db.Ping(); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(context.Background())
			}
			return nil
		},
		Logger: log,
	})

	server := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "ledger_backend", cfg.LedgerBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildLedger selects the audit backend: the local hash chain (in memory
// or on a sqlite file) or the relational ordered log.
func buildLedger(ctx context.Context, cfg config.Config, db *sql.DB) (ledger.Ledger, func() error, error) {
	switch cfg.LedgerBackend {
	case "postgres":
		if db == nil {
			return nil, nil, errors.New("ledger_backend postgres requires FACEGATE_POSTGRES_DSN")
		}
		return ledgerpg.New(db), nil, nil
	case "chain", "":
		var store chain.Store
		var closer func() error
		if cfg.ChainPath != "" {
			s, err := chain.OpenSQLite(cfg.ChainPath)
			if err != nil {
				return nil, nil, err
			}
			store, closer = s, s.Close
		} else {
			store = chain.NewMemoryStore()
		}
		c, err := chain.New(ctx, store)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, nil, err
		}
		return c, closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}
