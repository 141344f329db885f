package service

import (
	"context"

	"task-manager-api/internal/domain"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
)

type Decision int

const (
	Permit Decision = iota
	DenyNotFound
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case DenyNotFound:
		return "deny_not_found"
	default:
		return "deny_forbidden"
	}
}

// Target names what an action touches. UserID is the assignee for Create
// (zero means the caller) and for Assign.
type Target struct {
	TaskID int64
	UserID int64
}

type taskLookup interface {
	TaskExists(ctx context.Context, id int64) (bool, error)
	AssignmentExists(ctx context.Context, userID, taskID int64) (bool, error)
}

type userLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Policy decides whether an identity may perform an action. It only reads;
// the decision holds until the mutation runs, which re-checks rows itself.
type Policy struct {
	tasks taskLookup
	users userLookup
}

func NewPolicy(tasks taskLookup, users userLookup) *Policy {
	return &Policy{tasks: tasks, users: users}
}

// Authorize returns a non-nil error only when a lookup fails.
func (p *Policy) Authorize(ctx context.Context, id domain.Identity, act Action, t Target) (Decision, error) {
	d, err := p.decide(ctx, id, act, t)
	if err == nil {
		authzDecisions.WithLabelValues(string(act), d.String()).Inc()
	}
	return d, err
}

func (p *Policy) decide(ctx context.Context, id domain.Identity, act Action, t Target) (Decision, error) {
	switch act {
	case ActionAssign:
		// role first, so non-admins learn nothing about the task or user
		if !id.IsAdmin() {
			return DenyForbidden, nil
		}
		return Permit, nil

	case ActionCreate:
		if t.UserID == 0 || t.UserID == id.UserID {
			return Permit, nil
		}
		if !id.IsAdmin() {
			return DenyForbidden, nil
		}
		ok, err := p.users.Exists(ctx, t.UserID)
		if err != nil {
			return DenyForbidden, err
		}
		if !ok {
			return DenyNotFound, nil
		}
		return Permit, nil

	case ActionUpdate, ActionDelete:
		if id.IsAdmin() {
			return Permit, nil
		}
		owns, err := p.tasks.AssignmentExists(ctx, id.UserID, t.TaskID)
		if err != nil {
			return DenyForbidden, err
		}
		if owns {
			return Permit, nil
		}
		found, err := p.tasks.TaskExists(ctx, t.TaskID)
		if err != nil {
			return DenyForbidden, err
		}
		if !found {
			return DenyNotFound, nil
		}
		return DenyForbidden, nil

	case ActionRead:
		// listing is scoped by role instead of denied
		return Permit, nil
	}
	return DenyForbidden, nil
}
