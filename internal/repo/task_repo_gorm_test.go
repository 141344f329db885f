package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"task-manager-api/internal/core/database"
	"task-manager-api/internal/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "silent"})
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

func seedUser(t *testing.T, db *gorm.DB, id int64) {
	t.Helper()
	u := domain.User{ID: id, Email: fmt.Sprintf("u%d@example.com", id), PasswordHash: "x", Role: domain.RoleUser}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestCreateAssignedIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1)

	task := &domain.Task{Title: "Gym", Status: domain.StatusTodo}
	if err := r.CreateAssigned(ctx, task, 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected generated id")
	}
	if ok, _ := r.AssignmentExists(ctx, 1, task.ID); !ok {
		t.Error("expected assignment to be created with the task")
	}

	orphan := &domain.Task{Title: "Nobody", Status: domain.StatusTodo}
	if err := r.CreateAssigned(ctx, orphan, 404); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	var n int64
	db.Model(&domain.Task{}).Count(&n)
	if n != 1 {
		t.Errorf("expected failed create to leave 1 task, got %d", n)
	}
}

// hookOnce runs fn inside the statement's transaction, right before the
// first registered operation whose destination is a *T. It stands in for a
// concurrent writer that commits between a repository's checks and its write.
func hookOnce[T any](t *testing.T, register func(string, func(*gorm.DB)) error, fn func(tx *gorm.DB) error) {
	t.Helper()
	fired := false
	err := register("test:"+t.Name(), func(tx *gorm.DB) {
		if fired {
			return
		}
		if _, ok := tx.Statement.Dest.(*T); !ok {
			return
		}
		fired = true
		if err := fn(tx.Session(&gorm.Session{NewDB: true})); err != nil {
			t.Errorf("interleaved statement: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

func seedTask(t *testing.T, db *gorm.DB) *domain.Task {
	t.Helper()
	task := &domain.Task{Title: "Gym", Status: domain.StatusTodo}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func TestAssignmentForeignKeys(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1)

	err := db.Create(&domain.Assignment{UserID: 1, TaskID: 77}).Error
	if !isForeignKey(err) {
		t.Fatalf("expected foreign key violation for a missing task, got %v", err)
	}
	task := seedTask(t, db)
	err = db.Create(&domain.Assignment{UserID: 404, TaskID: task.ID}).Error
	if !isForeignKey(err) {
		t.Fatalf("expected foreign key violation for a missing user, got %v", err)
	}

	if err := db.Create(&domain.Assignment{UserID: 1, TaskID: task.ID}).Error; err != nil {
		t.Fatalf("assign: %v", err)
	}
	err = db.Where("id = ?", task.ID).Delete(&domain.Task{}).Error
	if !isForeignKey(err) {
		t.Fatalf("expected a task with assignments to refuse a plain delete, got %v", err)
	}
}

func TestDeleteCascadeRollsBackWhenTaskVanishes(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1)
	task := &domain.Task{Title: "Gym", Status: domain.StatusTodo}
	if err := r.CreateAssigned(ctx, task, 1); err != nil {
		t.Fatalf("create: %v", err)
	}

	// the task row goes away after the assignments were deleted
	hookOnce[domain.Task](t, db.Callback().Delete().Before("gorm:delete").Register, func(tx *gorm.DB) error {
		return tx.Exec("DELETE FROM tasks WHERE id = ?", task.ID).Error
	})
	if err := r.DeleteCascade(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if n, _ := r.CountAssignments(ctx, task.ID); n != 1 {
		t.Errorf("expected the assignment delete to be rolled back, got %d rows", n)
	}
}

func TestDeleteCascadeRefusesLateAssignment(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1)
	seedUser(t, db, 2)
	task := &domain.Task{Title: "Gym", Status: domain.StatusTodo}
	if err := r.CreateAssigned(ctx, task, 1); err != nil {
		t.Fatalf("create: %v", err)
	}

	hookOnce[domain.Task](t, db.Callback().Delete().Before("gorm:delete").Register, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO user_tasks (user_id, task_id, created_at) VALUES (?, ?, ?)", 2, task.ID, time.Now()).Error
	})
	if err := r.DeleteCascade(ctx, task.ID); !errors.Is(err, domain.ErrTaskInUse) {
		t.Fatalf("expected ErrTaskInUse, got %v", err)
	}
	if ok, _ := r.TaskExists(ctx, task.ID); !ok {
		t.Error("expected the task to survive")
	}
	if ok, _ := r.AssignmentExists(ctx, 1, task.ID); !ok {
		t.Error("expected the original assignment to be restored")
	}
}

func TestAssignLosesRaceWithDelete(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1)
	task := seedTask(t, db)

	// the task is deleted after requireTask passed, just before the insert
	hookOnce[domain.Assignment](t, db.Callback().Create().Before("gorm:create").Register, func(tx *gorm.DB) error {
		return tx.Exec("DELETE FROM tasks WHERE id = ?", task.ID).Error
	})
	if _, err := r.Assign(ctx, 1, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if n, _ := r.CountAssignments(ctx, task.ID); n != 0 {
		t.Errorf("expected no assignment to be stored, got %d", n)
	}
}

func TestAssignLosesRaceWithDuplicate(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1)
	task := seedTask(t, db)

	// the same pair lands after the count check, just before the insert
	hookOnce[domain.Assignment](t, db.Callback().Create().Before("gorm:create").Register, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO user_tasks (user_id, task_id, created_at) VALUES (?, ?, ?)", 1, task.ID, time.Now()).Error
	})
	if _, err := r.Assign(ctx, 1, task.ID); !errors.Is(err, domain.ErrDuplicateAssign) {
		t.Fatalf("expected ErrDuplicateAssign, got %v", err)
	}
}

func TestUpdateMissingTask(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	title := "x"
	if _, err := r.Update(context.Background(), 5, domain.TaskPatch{Title: &title}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAssignmentPairIsUnique(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1)
	task := &domain.Task{Title: "Gym", Status: domain.StatusTodo}
	if err := r.CreateAssigned(ctx, task, 1); err != nil {
		t.Fatalf("create: %v", err)
	}

	// bypass the pre-check; the primary key must still refuse the pair
	err := db.Create(&domain.Assignment{UserID: 1, TaskID: task.ID}).Error
	if !isDupKey(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	if _, err := r.Assign(ctx, 1, task.ID); !errors.Is(err, domain.ErrDuplicateAssign) {
		t.Errorf("expected ErrDuplicateAssign, got %v", err)
	}
}

func TestListAllOrdering(t *testing.T) {
	db := setupTestDB(t)
	r := NewTaskRepo(db)
	ctx := context.Background()
	seedUser(t, db, 1)

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, tk := range []*domain.Task{
		{Title: "none-1", Status: domain.StatusTodo},
		{Title: "jan", Status: domain.StatusTodo, Deadline: &jan},
		{Title: "none-2", Status: domain.StatusTodo},
		{Title: "mar", Status: domain.StatusTodo, Deadline: &mar},
	} {
		if err := r.CreateAssigned(ctx, tk, 1); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := r.ListAll(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"mar", "jan", "none-1", "none-2"}
	for i, w := range want {
		if all[i].Title != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, all[i].Title)
		}
		if all[i].Assignees != nil {
			t.Errorf("assignees must not be loaded")
		}
	}
}

func TestIsDupKey(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey), true},
		{&pgconn.PgError{Code: "23505"}, true},
		{&pgconn.PgError{Code: "23503"}, false},
		{&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{&mysql.MySQLError{Number: 1452}, false},
		{errors.New("UNIQUE constraint failed: user_tasks.user_id, user_tasks.task_id"), true},
		{errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		if got := isDupKey(tc.err); got != tc.want {
			t.Errorf("isDupKey(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsForeignKey(t *testing.T) {
	if !isForeignKey(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected pg foreign key violation")
	}
	if !isForeignKey(&mysql.MySQLError{Number: 1452}) {
		t.Error("expected mysql foreign key violation")
	}
	if !isForeignKey(&mysql.MySQLError{Number: 1451}) {
		t.Error("expected mysql parent row violation")
	}
	if !isForeignKey(gorm.ErrForeignKeyViolated) {
		t.Error("expected translated foreign key violation")
	}
	if !isForeignKey(errors.New("FOREIGN KEY constraint failed")) {
		t.Error("expected sqlite foreign key message")
	}
	if isForeignKey(&pgconn.PgError{Code: "23505"}) {
		t.Error("unique violation is not a foreign key violation")
	}
}

func TestUserRepo(t *testing.T) {
	db := setupTestDB(t)
	r := NewUserRepo(db)
	ctx := context.Background()

	u := &domain.User{Email: "a@example.com", PasswordHash: "x", Role: domain.RoleUser}
	if err := r.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Create(ctx, &domain.User{Email: "a@example.com", PasswordHash: "y", Role: domain.RoleUser}); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}

	got, err := r.FindByEmail(ctx, "a@example.com")
	if err != nil || got == nil || got.ID != u.ID {
		t.Errorf("find by email: %+v %v", got, err)
	}
	missing, err := r.FindByID(ctx, 404)
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing user, got %+v %v", missing, err)
	}
	if ok, _ := r.Exists(ctx, u.ID); !ok {
		t.Error("expected user to exist")
	}
}
