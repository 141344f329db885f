package task

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"task-manager-api/internal/domain"
	"task-manager-api/internal/service"
	httpez "task-manager-api/internal/transport/http/ez"
)

// Module mounts task routes on both servers. Authorization is left to
// TaskService; the admin group has already checked the role.
type Module struct {
	svc *service.TaskService
}

func NewModule(svc *service.TaskService) *Module { return &Module{svc: svc} }

func (m *Module) Priority() int { return 20 }

type assignIn struct {
	UserID int64 `json:"userId" binding:"required"`
}

type deleteOut struct {
	ID int64 `json:"id"`
}

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := httpez.New(g)
	m.mountCommon(e)

	httpez.RegisterAction(e, httpez.Action[service.CreateTaskInput, *domain.Task]{
		Method: http.MethodPost,
		Path:   "/tasks",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, id domain.Identity, in *service.CreateTaskInput) (*domain.Task, error) {
			return m.svc.Create(c, id, *in)
		},
	})
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	e := httpez.New(g)
	m.mountCommon(e)

	httpez.RegisterAction(e, httpez.Action[service.CreateTaskInput, *domain.Task]{
		Method: http.MethodPost,
		Path:   "/tasks",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  []domain.Role{domain.RoleAdmin},
		Handler: func(c *gin.Context, id domain.Identity, in *service.CreateTaskInput) (*domain.Task, error) {
			if in.UserID <= 0 {
				return nil, domain.InvalidInput("userId is required")
			}
			return m.svc.Create(c, id, *in)
		},
	})
}

// mountCommon registers the routes whose shape is the same for both servers.
func (m *Module) mountCommon(e httpez.EZ) {
	httpez.RegisterAction(e, httpez.Action[struct{}, []domain.Task]{
		Method: http.MethodGet,
		Path:   "/tasks",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, id domain.Identity, _ *struct{}) ([]domain.Task, error) {
			return m.svc.List(c, id)
		},
	})

	httpez.RegisterAction(e, httpez.Action[service.UpdateTaskInput, *domain.Task]{
		Method: http.MethodPut,
		Path:   "/tasks/:id",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, id domain.Identity, in *service.UpdateTaskInput) (*domain.Task, error) {
			taskID, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.svc.Update(c, id, taskID, *in)
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, deleteOut]{
		Method: http.MethodDelete,
		Path:   "/tasks/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, id domain.Identity, _ *struct{}) (deleteOut, error) {
			taskID, err := httpez.ParamID(c, "id")
			if err != nil {
				return deleteOut{}, err
			}
			if err := m.svc.Delete(c, id, taskID); err != nil {
				return deleteOut{}, err
			}
			return deleteOut{ID: taskID}, nil
		},
	})

	httpez.RegisterAction(e, httpez.Action[assignIn, *domain.Assignment]{
		Method: http.MethodPost,
		Path:   "/tasks/:id/assignees",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, id domain.Identity, in *assignIn) (*domain.Assignment, error) {
			taskID, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.svc.Assign(c, id, taskID, in.UserID)
		},
	})
}
