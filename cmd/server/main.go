// Command server starts the VidTube API HTTP service.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KevanshGopani/youtube-backend/internal/api"
	"github.com/KevanshGopani/youtube-backend/internal/auth"
	"github.com/KevanshGopani/youtube-backend/internal/observability/logging"
	"github.com/KevanshGopani/youtube-backend/internal/observability/metrics"
	"github.com/KevanshGopani/youtube-backend/internal/server"
	"github.com/KevanshGopani/youtube-backend/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	accessSecret := flag.String("access-token-secret", "", "HMAC secret for access tokens")
	refreshSecret := flag.String("refresh-token-secret", "", "HMAC secret for refresh tokens")
	accessTTL := flag.Duration("access-token-ttl", 0, "access token lifetime")
	refreshTTL := flag.Duration("refresh-token-ttl", 0, "refresh token lifetime")
	tokenIssuer := flag.String("token-issuer", "", "issuer claim stamped on tokens")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed to call the API")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("VIDTUBE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("VIDTUBE_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("VIDTUBE_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("VIDTUBE_ADDR"))

	codec, err := buildCodec(codecSettings{
		AccessSecret:  firstNonEmpty(*accessSecret, os.Getenv("VIDTUBE_ACCESS_TOKEN_SECRET")),
		RefreshSecret: firstNonEmpty(*refreshSecret, os.Getenv("VIDTUBE_REFRESH_TOKEN_SECRET")),
		AccessTTL:     resolveDuration(*accessTTL, "VIDTUBE_ACCESS_TOKEN_TTL", 0),
		RefreshTTL:    resolveDuration(*refreshTTL, "VIDTUBE_REFRESH_TOKEN_TTL", 0),
		Issuer:        firstNonEmpty(*tokenIssuer, os.Getenv("VIDTUBE_TOKEN_ISSUER"), "vidtube"),
		Mode:          serverMode,
	}, logger)
	if err != nil {
		logger.Error("failed to configure token codec", "error", err)
		os.Exit(1)
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("VIDTUBE_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" && driver != "postgres" {
		logger.Error("production mode requires the postgres datastore driver", "driver", driver)
		os.Exit(1)
	}

	var store storage.Repository
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("VIDTUBE_DATA"))
		store, err = storage.NewJSONRepository(dataFile)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.Option
		maxConns := resolveInt(*postgresMaxConns, "VIDTUBE_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "VIDTUBE_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "VIDTUBE_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "VIDTUBE_POSTGRES_MAX_CONN_IDLE", 0)
		healthInterval := resolveDuration(*postgresHealthInterval, "VIDTUBE_POSTGRES_HEALTH_INTERVAL", 0)
		if maxLifetime > 0 || maxIdle > 0 || healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval))
		}
		if acquireTimeout := resolveDuration(*postgresAcquireTimeout, "VIDTUBE_POSTGRES_ACQUIRE_TIMEOUT", 0); acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("VIDTUBE_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		var pgStore *storage.PostgresRepository
		pgStore, err = storage.NewPostgresRepository(postgresDefaultDSN, pgOptions...)
		if err == nil {
			schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err = pgStore.EnsureSchema(schemaCtx)
			cancel()
		}
		store = pgStore
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	userStore, ok := store.(auth.UserStore)
	if !ok {
		logger.Error("datastore does not support session management")
		os.Exit(1)
	}
	sessions, err := auth.NewSessionManager(codec, userStore)
	if err != nil {
		logger.Error("failed to configure session manager", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, sessions)
	handler.Metrics = recorder
	if serverMode == "production" {
		handler.SessionCookiePolicy = api.SessionCookiePolicy{SecureMode: api.SessionCookieSecureAlways}
	}

	rateCfg := server.RateLimitConfig{
		GlobalRPS:     resolveFloat(*globalRPS, "VIDTUBE_RATE_GLOBAL_RPS"),
		GlobalBurst:   resolveInt(*globalBurst, "VIDTUBE_RATE_GLOBAL_BURST"),
		LoginLimit:    resolveInt(*loginLimit, "VIDTUBE_RATE_LOGIN_LIMIT"),
		LoginWindow:   resolveDuration(*loginWindow, "VIDTUBE_RATE_LOGIN_WINDOW", time.Minute),
		RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("VIDTUBE_RATE_REDIS_ADDR")),
		RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("VIDTUBE_RATE_REDIS_PASSWORD")),
		RedisTimeout:  resolveDuration(*redisTimeout, "VIDTUBE_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("VIDTUBE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("VIDTUBE_TLS_KEY")),
		},
		RateLimit:   rateCfg,
		CORS:        server.CORSConfig{AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("VIDTUBE_CORS_ORIGINS")))},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("VidTube API listening", "addr", listenAddr, "mode", serverMode, "storage", driver)
		logger.Info("metrics endpoint available", "path", "/metrics")
		return srv.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type codecSettings struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Mode          string
}

// buildCodec validates the token secrets. Development mode generates
// ephemeral secrets when none are configured; production refuses to start
// without explicit ones so sessions survive restarts.
func buildCodec(settings codecSettings, logger *slog.Logger) (*auth.Codec, error) {
	access := settings.AccessSecret
	refresh := settings.RefreshSecret
	if access == "" || refresh == "" {
		if settings.Mode == "production" {
			return nil, fmt.Errorf("VIDTUBE_ACCESS_TOKEN_SECRET and VIDTUBE_REFRESH_TOKEN_SECRET are required in production")
		}
		if access == "" {
			access = randomSecret()
		}
		if refresh == "" {
			refresh = randomSecret()
		}
		logger.Warn("token secrets not configured, generated ephemeral ones; sessions will not survive restarts")
	}
	return auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte(access),
		RefreshSecret: []byte(refresh),
		AccessTTL:     settings.AccessTTL,
		RefreshTTL:    settings.RefreshTTL,
		Issuer:        settings.Issuer,
	})
}

func randomSecret() string {
	var buffer [32]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buffer[:])
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		if mode == "production" {
			return ":80"
		}
		return ":8080"
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("VIDTUBE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}
