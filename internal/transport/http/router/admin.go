package router

import (
	"github.com/gin-gonic/gin"

	"task-manager-api/internal/domain"
	mdw "task-manager-api/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin/v1; every route requires the ADMIN role.
func NewAdminEngine(d Deps, reg *Registry) *gin.Engine {
	r := newEngine("admin", d)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWT, domain.RoleAdmin))
	reg.MountAdmin(admin)

	return r
}
