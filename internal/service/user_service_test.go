package service

import (
	"context"
	"testing"
	"time"

	"task-manager-api/internal/domain"
)

func newUserService(f *fixture) *UserService {
	return NewUserService(f.users, f.jwt, nil, time.Minute, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	f := setup(t)
	s := newUserService(f)
	ctx := context.Background()

	sess, err := s.Register(ctx, RegisterInput{Email: " Ana@Example.com ", Password: "secret1", ConfirmPassword: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.User.Email != "ana@example.com" || sess.User.Role != domain.RoleUser {
		t.Errorf("unexpected user %+v", sess.User)
	}
	id, err := f.jwt.Resolve(sess.Token)
	if err != nil {
		t.Fatalf("resolve issued token: %v", err)
	}
	if id.UserID != sess.User.ID || id.Role != domain.RoleUser {
		t.Errorf("token does not match user: %+v", id)
	}

	login, err := s.Login(ctx, LoginInput{Email: "ANA@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != sess.User.ID {
		t.Errorf("expected same user, got %d", login.User.ID)
	}

	_, err = s.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong!!"})
	expectKind(t, err, domain.KindUnauthenticated)
	_, err = s.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	expectKind(t, err, domain.KindUnauthenticated)
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	s := newUserService(f)
	ctx := context.Background()

	if _, err := s.Register(ctx, RegisterInput{Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := s.Register(ctx, RegisterInput{Email: "A@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	expectKind(t, err, domain.KindConflict)

	cases := map[string]RegisterInput{
		"mismatch":    {Email: "b@example.com", Password: "secret1", ConfirmPassword: "secret2"},
		"short":       {Email: "b@example.com", Password: "abc", ConfirmPassword: "abc"},
		"no at sign":  {Email: "example.com", Password: "secret1", ConfirmPassword: "secret1"},
		"empty email": {Email: "  ", Password: "secret1", ConfirmPassword: "secret1"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Register(ctx, in)
			expectKind(t, err, domain.KindInvalidInput)
		})
	}
}

func TestDirectoryIsAdminOnly(t *testing.T) {
	f := setup(t)
	s := newUserService(f)
	ctx := context.Background()
	user := f.user(t, 1, domain.RoleUser)
	admin := f.user(t, 2, domain.RoleAdmin)

	_, err := s.Directory(ctx, user)
	expectKind(t, err, domain.KindForbidden)

	entries, err := s.Directory(ctx, admin)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != 1 || entries[1].Email != "user2@example.com" {
		t.Errorf("unexpected directory %+v", entries)
	}
}

func TestMeAndIssueToken(t *testing.T) {
	f := setup(t)
	s := newUserService(f)
	ctx := context.Background()
	me := f.user(t, 5, domain.RoleAdmin)

	u, err := s.Me(ctx, me)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if u.ID != 5 {
		t.Errorf("unexpected user %+v", u)
	}
	_, err = s.Me(ctx, domain.Identity{UserID: 404, Role: domain.RoleUser})
	expectKind(t, err, domain.KindNotFound)

	tok, err := s.IssueToken(ctx, 5)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := f.jwt.Resolve(tok)
	if err != nil || id.UserID != 5 || !id.IsAdmin() {
		t.Errorf("unexpected identity %+v (%v)", id, err)
	}
	_, err = s.IssueToken(ctx, 404)
	expectKind(t, err, domain.KindNotFound)
}
