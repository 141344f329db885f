package user

import (
	"time"

	"task-manager-api/internal/domain"
	"task-manager-api/internal/service"
)

// View is the public shape of a user; the password hash never leaves the server.
type View struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type SessionView struct {
	Token string `json:"token"`
	User  View   `json:"user"`
}

func toView(u *domain.User) View {
	return View{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

func toSessionView(s *service.Session) SessionView {
	return SessionView{Token: s.Token, User: toView(s.User)}
}
