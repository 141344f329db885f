package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"task-manager-api/internal/domain"
)

type CreateTaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Deadline    *string `json:"deadline"`
	// UserID is the assignee; zero assigns the task to the caller.
	UserID int64 `json:"userId"`
}

type UpdateTaskInput struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Status      Optional[string] `json:"status"`
	Deadline    Optional[string] `json:"deadline"`
}

type TaskService struct {
	tasks  domain.TaskRepository
	policy *Policy
	log    *zap.Logger
}

func NewTaskService(tasks domain.TaskRepository, policy *Policy, l *zap.Logger) *TaskService {
	if l == nil {
		l = zap.NewNop()
	}
	return &TaskService{tasks: tasks, policy: policy, log: l}
}

// List returns the caller's assigned tasks, or every task with its assignees
// for admins.
func (s *TaskService) List(ctx context.Context, id domain.Identity) ([]domain.Task, error) {
	if _, err := s.policy.Authorize(ctx, id, ActionRead, Target{}); err != nil {
		return nil, s.internal("authorize list failed", err, zap.Int64("user_id", id.UserID))
	}
	var (
		tasks []domain.Task
		err   error
	)
	if id.IsAdmin() {
		tasks, err = s.tasks.ListAll(ctx, true)
	} else {
		tasks, err = s.tasks.ListForUser(ctx, id.UserID)
	}
	if err != nil {
		return nil, s.internal("list tasks failed", err, zap.Int64("user_id", id.UserID))
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, id domain.Identity, in CreateTaskInput) (*domain.Task, error) {
	if in.UserID < 0 {
		return nil, domain.InvalidInput("valid user id to assign is required")
	}
	d, err := s.policy.Authorize(ctx, id, ActionCreate, Target{UserID: in.UserID})
	if err != nil {
		return nil, s.internal("authorize create failed", err, zap.Int64("user_id", id.UserID))
	}
	switch d {
	case DenyForbidden:
		s.denied(ActionCreate, id, 0)
		return nil, domain.Forbidden("only admins can create tasks for other users")
	case DenyNotFound:
		return nil, domain.NotFound("user to assign task to not found")
	}

	t, err := newTask(in)
	if err != nil {
		return nil, err
	}
	assignee := in.UserID
	if assignee == 0 {
		assignee = id.UserID
	}
	if err := s.tasks.CreateAssigned(ctx, t, assignee); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NotFound("user to assign task to not found")
		}
		return nil, s.internal("create task failed", err, zap.Int64("user_id", assignee))
	}
	s.log.Info("task created", zap.Int64("task_id", t.ID), zap.Int64("assignee", assignee), zap.Int64("by", id.UserID))
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, id domain.Identity, taskID int64, in UpdateTaskInput) (*domain.Task, error) {
	if taskID <= 0 {
		return nil, domain.InvalidInput("valid task id is required")
	}
	if err := s.authorizeTask(ctx, id, ActionUpdate, taskID); err != nil {
		return nil, err
	}
	patch, err := buildPatch(in)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.Update(ctx, taskID, patch)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, domain.NotFound("task not found")
		}
		return nil, s.internal("update task failed", err, zap.Int64("task_id", taskID))
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id domain.Identity, taskID int64) error {
	if taskID <= 0 {
		return domain.InvalidInput("valid task id is required")
	}
	if err := s.authorizeTask(ctx, id, ActionDelete, taskID); err != nil {
		return err
	}
	if err := s.tasks.DeleteCascade(ctx, taskID); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return domain.NotFound("task not found or already deleted")
		}
		if errors.Is(err, domain.ErrTaskInUse) {
			return domain.Conflict("task was assigned while being deleted, try again")
		}
		return s.internal("delete task failed", err, zap.Int64("task_id", taskID))
	}
	s.log.Info("task deleted", zap.Int64("task_id", taskID), zap.Int64("by", id.UserID))
	return nil
}

func (s *TaskService) Assign(ctx context.Context, id domain.Identity, taskID, userID int64) (*domain.Assignment, error) {
	d, err := s.policy.Authorize(ctx, id, ActionAssign, Target{TaskID: taskID, UserID: userID})
	if err != nil {
		return nil, s.internal("authorize assign failed", err, zap.Int64("task_id", taskID))
	}
	if d != Permit {
		s.denied(ActionAssign, id, taskID)
		return nil, domain.Forbidden("only admins can assign tasks")
	}
	if taskID <= 0 || userID <= 0 {
		return nil, domain.InvalidInput("valid task id and user id are required")
	}
	a, err := s.tasks.Assign(ctx, userID, taskID)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, domain.ErrTaskNotFound):
		return nil, domain.NotFound("task not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.NotFound("user to assign to not found")
	case errors.Is(err, domain.ErrDuplicateAssign):
		return nil, domain.Conflict("task already assigned to this user")
	}
	return nil, s.internal("assign task failed", err, zap.Int64("task_id", taskID), zap.Int64("user_id", userID))
}

func (s *TaskService) authorizeTask(ctx context.Context, id domain.Identity, act Action, taskID int64) error {
	d, err := s.policy.Authorize(ctx, id, act, Target{TaskID: taskID})
	if err != nil {
		return s.internal("authorize task failed", err, zap.Int64("task_id", taskID))
	}
	switch d {
	case DenyNotFound:
		return domain.NotFound("task not found")
	case DenyForbidden:
		s.denied(act, id, taskID)
		return domain.Forbidden("you do not have permission to " + string(act) + " this task")
	}
	return nil
}

func (s *TaskService) denied(act Action, id domain.Identity, taskID int64) {
	s.log.Debug("authorization denied",
		zap.String("action", string(act)),
		zap.Int64("user_id", id.UserID),
		zap.String("role", string(id.Role)),
		zap.Int64("task_id", taskID),
	)
}

func (s *TaskService) internal(msg string, err error, fields ...zap.Field) error {
	s.log.Error(msg, append(fields, zap.Error(err))...)
	return domain.Internal(msg, err)
}

func newTask(in CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.InvalidInput("task title is required")
	}
	status := domain.StatusTodo
	if in.Status != "" {
		status = domain.TaskStatus(in.Status)
		if !status.Valid() {
			return nil, domain.InvalidInput("status must be one of TODO, ONGOING, COMPLETED")
		}
	}
	t := &domain.Task{Title: title, Description: in.Description, Status: status}
	if in.Deadline != nil && *in.Deadline != "" {
		d, err := ParseDeadline(*in.Deadline)
		if err != nil {
			return nil, err
		}
		t.Deadline = &d
	}
	return t, nil
}

// buildPatch keeps only the keys present in the request. A null description
// clears it; a null or empty deadline is ignored and does not count as a key.
func buildPatch(in UpdateTaskInput) (domain.TaskPatch, error) {
	var p domain.TaskPatch
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if in.Title.Null || title == "" {
			return p, domain.InvalidInput("task title must not be empty")
		}
		p.Title = &title
	}
	if in.Description.Set {
		if in.Description.Null {
			p.ClearDescription = true
		} else {
			desc := in.Description.Value
			p.Description = &desc
		}
	}
	if in.Status.Set {
		status := domain.TaskStatus(in.Status.Value)
		if in.Status.Null || !status.Valid() {
			return p, domain.InvalidInput("status must be one of TODO, ONGOING, COMPLETED")
		}
		p.Status = &status
	}
	if in.Deadline.Set && !in.Deadline.Null && in.Deadline.Value != "" {
		d, err := ParseDeadline(in.Deadline.Value)
		if err != nil {
			return p, err
		}
		p.Deadline = &d
	}
	if p.Empty() {
		return p, domain.InvalidInput("no update data provided")
	}
	return p, nil
}

var deadlineLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// ParseDeadline accepts RFC 3339 timestamps and plain dates; results are UTC.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.InvalidInput("invalid date format for deadline")
}
