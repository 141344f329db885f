package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"task-manager-api/internal/domain"
	"task-manager-api/internal/service"
	httpez "task-manager-api/internal/transport/http/ez"
	mdw "task-manager-api/internal/transport/http/middleware"
)

type Module struct {
	svc        *service.UserService
	loginRPS   rate.Limit
	loginBurst int
}

// NewModule rate limits register and login per client ip when loginRPS > 0.
func NewModule(svc *service.UserService, loginRPS float64, loginBurst int) *Module {
	return &Module{svc: svc, loginRPS: rate.Limit(loginRPS), loginBurst: loginBurst}
}

func (m *Module) Priority() int { return 10 }

func (m *Module) MountPublic(g *gin.RouterGroup) {
	auth := g.Group("/auth")
	if m.loginRPS > 0 {
		auth.Use(mdw.RateLimitPerIP(m.loginRPS, m.loginBurst))
	}
	e := httpez.New(auth)

	httpez.RegisterAction(e, httpez.Action[service.RegisterInput, SessionView]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ domain.Identity, in *service.RegisterInput) (SessionView, error) {
			s, err := m.svc.Register(c, *in)
			if err != nil {
				return SessionView{}, err
			}
			return toSessionView(s), nil
		},
	})

	httpez.RegisterAction(e, httpez.Action[service.LoginInput, SessionView]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ domain.Identity, in *service.LoginInput) (SessionView, error) {
			s, err := m.svc.Login(c, *in)
			if err != nil {
				return SessionView{}, err
			}
			return toSessionView(s), nil
		},
	})
}

func (m *Module) MountAPI(g *gin.RouterGroup) {
	httpez.RegisterAction(httpez.New(g), httpez.Action[struct{}, View]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, id domain.Identity, _ *struct{}) (View, error) {
			u, err := m.svc.Me(c, id)
			if err != nil {
				return View{}, err
			}
			return toView(u), nil
		},
	})
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	httpez.RegisterAction(httpez.New(g), httpez.Action[struct{}, []service.DirectoryEntry]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []domain.Role{domain.RoleAdmin},
		Handler: func(c *gin.Context, id domain.Identity, _ *struct{}) ([]service.DirectoryEntry, error) {
			return m.svc.Directory(c, id)
		},
	})
}
