// Package app wires configuration into the storage, services and HTTP
// modules shared by the api, admin and taskctl binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"task-manager-api/internal/core/auth"
	"task-manager-api/internal/core/cache"
	"task-manager-api/internal/core/config"
	"task-manager-api/internal/core/database"
	"task-manager-api/internal/feature/task"
	"task-manager-api/internal/feature/user"
	"task-manager-api/internal/repo"
	"task-manager-api/internal/service"
	"task-manager-api/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache
	JWT   *auth.JWTer

	Users *service.UserService
	Tasks *service.TaskService
}

// New opens storage and builds the services. Tables are migrated when
// db.autoMigrate is set.
func New(cfg *config.Config, l *zap.Logger) (*App, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if c != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := c.Ping(ctx); err != nil {
			// the directory still works from storage
			l.Warn("redis unreachable, continuing", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	taskRepo := repo.NewTaskRepo(db)
	userRepo := repo.NewUserRepo(db)
	policy := service.NewPolicy(taskRepo, userRepo)

	return &App{
		Cfg:   cfg,
		Log:   l,
		DB:    db,
		Cache: c,
		JWT:   jwter,
		Users: service.NewUserService(userRepo, jwter, c, time.Duration(cfg.Redis.DirectoryTTLSec)*time.Second, l.Named("users")),
		Tasks: service.NewTaskService(taskRepo, policy, l.Named("tasks")),
	}, nil
}

// Registry returns the feature modules for both HTTP servers.
func (a *App) Registry() *router.Registry {
	return router.NewRegistry(
		user.NewModule(a.Users, a.Cfg.Limits.LoginRPS, a.Cfg.Limits.LoginBurst),
		task.NewModule(a.Tasks),
	)
}

func (a *App) RouterDeps() router.Deps {
	return router.Deps{Log: a.Log, JWT: a.JWT, Limits: a.Cfg.Limits, Health: a.Health}
}

// Health pings the database and, when configured, Redis.
func (a *App) Health(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := a.Cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.Log.Warn("close redis", zap.Error(err))
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
