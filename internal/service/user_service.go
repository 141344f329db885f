package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"task-manager-api/internal/core/cache"
	"task-manager-api/internal/domain"
	"task-manager-api/pkg/utils"
)

const directoryKey = "users:directory"

type tokenIssuer interface {
	Issue(uid int64, email string, role domain.Role) (string, error)
}

type RegisterInput struct {
	Email           string `json:"email"           binding:"required"`
	Password        string `json:"password"        binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type DirectoryEntry struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

type UserService struct {
	users  domain.UserRepository
	tokens tokenIssuer
	cache  *cache.Cache
	ttl    time.Duration
	log    *zap.Logger
}

// NewUserService accepts a nil cache; the directory is then read from storage each time.
func NewUserService(users domain.UserRepository, tokens tokenIssuer, c *cache.Cache, directoryTTL time.Duration, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{users: users, tokens: tokens, cache: c, ttl: directoryTTL, log: l}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.InvalidInput("a valid email is required")
	}
	if in.Password != in.ConfirmPassword {
		return nil, domain.InvalidInput("passwords do not match")
	}
	u, err := s.CreateUser(ctx, email, in.Password, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// CreateUser stores a user with the given role. Register and the ops CLI use it.
func (s *UserService) CreateUser(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.InvalidInput("a valid email is required")
	}
	if len(password) < utils.MinPasswordLen {
		return nil, domain.InvalidInput("password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, domain.InvalidInput("password cannot be hashed")
	}
	u := &domain.User{Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.Conflict("a user with that email already exists")
		}
		s.log.Error("create user failed", zap.Error(err))
		return nil, domain.Internal("create user failed", err)
	}
	if err := s.cache.Invalidate(ctx, directoryKey); err != nil {
		s.log.Warn("directory cache invalidation failed", zap.Error(err))
	}
	s.log.Info("user created", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		s.log.Error("find user failed", zap.Error(err))
		return nil, domain.Internal("login failed", err)
	}
	// same answer for unknown email and wrong password
	if u == nil || !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, domain.Unauthenticated("invalid email or password")
	}
	return s.session(u)
}

// IssueToken signs a credential for an existing user id.
func (s *UserService) IssueToken(ctx context.Context, userID int64) (string, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", domain.Internal("find user failed", err)
	}
	if u == nil {
		return "", domain.NotFound("user not found")
	}
	sess, err := s.session(u)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

func (s *UserService) Me(ctx context.Context, id domain.Identity) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id.UserID)
	if err != nil {
		s.log.Error("find user failed", zap.Error(err), zap.Int64("user_id", id.UserID))
		return nil, domain.Internal("find user failed", err)
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

// Directory lists every user for the assignment UI. Admin only.
func (s *UserService) Directory(ctx context.Context, id domain.Identity) ([]DirectoryEntry, error) {
	if !id.IsAdmin() {
		return nil, domain.Forbidden("admin access required")
	}
	out, err := cache.GetOrLoadJSON(s.cache, ctx, directoryKey, s.ttl, func(ctx context.Context) ([]DirectoryEntry, error) {
		users, err := s.users.List(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]DirectoryEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, DirectoryEntry{ID: u.ID, Email: u.Email, Role: u.Role})
		}
		return entries, nil
	})
	if err != nil {
		s.log.Error("list users failed", zap.Error(err))
		return nil, domain.Internal("list users failed", err)
	}
	return out, nil
}

func (s *UserService) session(u *domain.User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil || tok == "" {
		s.log.Error("issue token failed", zap.Error(err), zap.Int64("user_id", u.ID))
		return nil, domain.Internal("issue token failed", err)
	}
	return &Session{Token: tok, User: u}, nil
}
