package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/areyabhishek/todo1/internal/cache"
	"github.com/areyabhishek/todo1/internal/config"
	"github.com/areyabhishek/todo1/internal/middleware"
	"github.com/areyabhishek/todo1/internal/notify"
	"github.com/areyabhishek/todo1/internal/repo"
	"github.com/areyabhishek/todo1/internal/service"
	"github.com/areyabhishek/todo1/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	cfg      config.Config
	log      zerolog.Logger
	closeDB  func() error
	redis    *redis.Client
	notifier *notify.Dispatcher
	router   *gin.Engine
}

func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	todoRepo, closeDB, err := newRepo(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	a.closeDB = closeDB

	if err := todoRepo.Init(ctx); err != nil {
		_ = a.closeDB()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("storage ready")

	var todoCache *cache.TodoCache
	if cfg.Redis.Enabled() {
		rdb, err := newRedis(ctx, cfg.Redis)
		if err != nil {
			_ = a.closeDB()
			return nil, err
		}
		a.redis = rdb
		todoCache = cache.NewTodoCache(rdb, cfg.Redis.DefaultTTL.Duration())
		log.Info().Str("addr", cfg.Redis.Addr).Msg("list cache enabled")
	}

	timeout := cfg.Mail.Timeout.Duration()
	a.notifier = notify.NewDispatcher(
		notify.NewMailer(cfg.Mail.Server, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, timeout),
		cfg.Mail.Sender(),
		cfg.Mail.Recipient,
		timeout,
		log,
	)
	if !a.notifier.Configured() {
		log.Info().Msg("email notifications disabled: sender or recipient not set")
	}

	svc := service.NewTodoService(todoRepo, todoCache, a.notifier, log)
	router, err := newRouter(cfg, log, svc)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.router = router
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close drains pending notifications, then releases Redis and the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.notifier != nil {
		if err := a.notifier.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newRepo(ctx context.Context, cfg config.DBConfig) (repo.TodoRepo, func() error, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := newPostgres(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewPGTodoRepo(pool, cfg.PGDSN), func() error { pool.Close(); return nil }, nil
	case config.DriverSQLite:
		db, err := repo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewSQLiteTodoRepo(db, cfg.SQLitePath), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func newPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	return opts
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(redisOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(cfg config.Config, log zerolog.Logger, svc *service.TodoService) (*gin.Engine, error) {
	if cfg.App.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	Setup(r, cfg, log, svc)
	return r, nil
}
