package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"task-manager-api/internal/domain"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

var _ domain.TaskRepository = (*TaskRepo)(nil)

func (r *TaskRepo) CreateAssigned(ctx context.Context, t *domain.Task, assignee int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, assignee); err != nil {
			return err
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		a := domain.Assignment{UserID: assignee, TaskID: t.ID}
		if err := tx.Create(&a).Error; err != nil {
			if isForeignKey(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("insert assignment: %w", err)
		}
		return nil
	})
}

func (r *TaskRepo) Update(ctx context.Context, id int64, p domain.TaskPatch) (*domain.Task, error) {
	var out domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTaskNotFound
			}
			return err
		}
		res := tx.Model(&domain.Task{}).Where("id = ?", id).Updates(p.Columns())
		if res.Error != nil {
			return fmt.Errorf("update task: %w", res.Error)
		}
		// re-read so the caller sees what the row holds now
		out = domain.Task{}
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTaskNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TaskRepo) DeleteCascade(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&domain.Assignment{}).Error; err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&domain.Task{})
		if res.Error != nil {
			if isForeignKey(res.Error) {
				// user_tasks restricts the delete: a concurrent Assign committed in between
				return domain.ErrTaskInUse
			}
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// rolls back the assignment delete as well
			return domain.ErrTaskNotFound
		}
		return nil
	})
}

func (r *TaskRepo) Assign(ctx context.Context, userID, taskID int64) (*domain.Assignment, error) {
	a := domain.Assignment{UserID: userID, TaskID: taskID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireTask(tx, taskID); err != nil {
			return err
		}
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&domain.Assignment{}).Where("user_id = ? AND task_id = ?", userID, taskID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicateAssign
		}
		if err := tx.Create(&a).Error; err != nil {
			switch {
			case isDupKey(err):
				return domain.ErrDuplicateAssign
			case isForeignKey(err):
				// the task (users are never deleted) vanished after requireTask
				return domain.ErrTaskNotFound
			}
			return fmt.Errorf("insert assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *TaskRepo) TaskExists(ctx context.Context, id int64) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id))
}

func (r *TaskRepo) AssignmentExists(ctx context.Context, userID, taskID int64) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&domain.Assignment{}).Where("user_id = ? AND task_id = ?", userID, taskID))
}

func (r *TaskRepo) CountAssignments(ctx context.Context, taskID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Assignment{}).Where("task_id = ?", taskID).Count(&n).Error
	return n, err
}

// byDeadline orders latest deadline first, tasks without a deadline last and
// ties by id. Postgres sorts NULL first on DESC, hence the explicit IS NULL key.
func byDeadline(q *gorm.DB) *gorm.DB {
	return q.Order("tasks.deadline IS NULL").Order("tasks.deadline DESC").Order("tasks.id ASC")
}

func (r *TaskRepo) ListForUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Select("tasks.*").
		Joins("JOIN user_tasks ON user_tasks.task_id = tasks.id AND user_tasks.user_id = ?", userID).
		Scopes(byDeadline).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepo) ListAll(ctx context.Context, withAssignees bool) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := r.db.WithContext(ctx).Scopes(byDeadline).Find(&tasks).Error; err != nil {
		return nil, err
	}
	if !withAssignees || len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]int64, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	type assigneeRow struct {
		TaskID int64
		ID     int64
		Email  string
	}
	var rows []assigneeRow
	err := r.db.WithContext(ctx).Table("user_tasks").
		Select("user_tasks.task_id, users.id, users.email").
		Joins("JOIN users ON users.id = user_tasks.user_id").
		Where("user_tasks.task_id IN ?", ids).
		Order("users.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byTask := make(map[int64][]domain.UserRef, len(tasks))
	for _, row := range rows {
		byTask[row.TaskID] = append(byTask[row.TaskID], domain.UserRef{ID: row.ID, Email: row.Email})
	}
	for i := range tasks {
		tasks[i].Assignees = byTask[tasks[i].ID]
		if tasks[i].Assignees == nil {
			tasks[i].Assignees = []domain.UserRef{}
		}
	}
	return tasks, nil
}

func requireTask(tx *gorm.DB, id int64) error {
	ok, err := exists(tx.Model(&domain.Task{}).Where("id = ?", id))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTaskNotFound
	}
	return nil
}

func requireUser(tx *gorm.DB, id int64) error {
	ok, err := exists(tx.Model(&domain.User{}).Where("id = ?", id))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

func exists(q *gorm.DB) (bool, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
