package router

import (
	"github.com/gin-gonic/gin"

	mdw "task-manager-api/internal/transport/http/middleware"
)

// NewAPIEngine serves /api/v1 for every authenticated role.
func NewAPIEngine(d Deps, reg *Registry) *gin.Engine {
	r := newEngine("api", d)

	api := r.Group("/api/v1")
	reg.MountPublic(api)

	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWT, ""))
	reg.MountAPI(authed)

	return r
}
