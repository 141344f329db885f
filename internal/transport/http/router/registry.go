package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// A feature module implements any subset of these. Public routes are
// mounted without auth, API routes behind any valid token, admin routes
// behind an ADMIN token.
type PublicModule interface{ MountPublic(*gin.RouterGroup) }
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// Lower mounts first; modules without Priority count as 100.
type prioritizer interface{ Priority() int }

type Registry struct {
	mods []any
}

func NewRegistry(mods ...any) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

func (r *Registry) Register(mod any) {
	r.mods = append(r.mods, mod)
	sort.SliceStable(r.mods, func(i, j int) bool {
		return priorityOf(r.mods[i]) < priorityOf(r.mods[j])
	})
}

func (r *Registry) MountPublic(g *gin.RouterGroup) {
	for _, m := range r.mods {
		if pm, ok := m.(PublicModule); ok {
			pm.MountPublic(g)
		}
	}
}

func (r *Registry) MountAPI(g *gin.RouterGroup) {
	for _, m := range r.mods {
		if am, ok := m.(APIModule); ok {
			am.MountAPI(g)
		}
	}
}

func (r *Registry) MountAdmin(g *gin.RouterGroup) {
	for _, m := range r.mods {
		if am, ok := m.(AdminModule); ok {
			am.MountAdmin(g)
		}
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
