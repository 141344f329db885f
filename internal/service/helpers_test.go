package service

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"task-manager-api/internal/core/auth"
	"task-manager-api/internal/core/database"
	"task-manager-api/internal/domain"
	"task-manager-api/internal/repo"
)

type fixture struct {
	db     *gorm.DB
	tasks  *repo.TaskRepo
	users  *repo.UserRepo
	policy *Policy
	svc    *TaskService
	jwt    *auth.JWTer
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	tasks := repo.NewTaskRepo(db)
	users := repo.NewUserRepo(db)
	policy := NewPolicy(tasks, users)
	return &fixture{
		db:     db,
		tasks:  tasks,
		users:  users,
		policy: policy,
		svc:    NewTaskService(tasks, policy, nil),
		jwt:    &auth.JWTer{Secret: []byte("test"), Issuer: "test", TTL: time.Hour},
	}
}

// user inserts a user row with a fixed id and returns its identity.
func (f *fixture) user(t *testing.T, id int64, role domain.Role) domain.Identity {
	t.Helper()
	u := domain.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id), PasswordHash: "x", Role: role}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create user %d: %v", id, err)
	}
	return domain.Identity{UserID: id, Role: role}
}

func (f *fixture) countRows(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func expectKind(t *testing.T, err error, want domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func strPtr(s string) *string { return &s }
