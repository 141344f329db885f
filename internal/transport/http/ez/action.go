package ez

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"task-manager-api/internal/domain"
	mdw "task-manager-api/internal/transport/http/middleware"
	resp "task-manager-api/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // handler reads c.Param itself
)

// Action is one endpoint: I is the bound input, O the envelope data.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Auth    bool          // requires an Identity set by AuthJWT
	Roles   []domain.Role // optional role allow-list, checked after Auth
	Handler func(c *gin.Context, id domain.Identity, in *I) (O, error)
}

// RegisterAction mounts a on the group. Handler errors go through
// resp.FromError, so a *domain.Error picks the envelope code.
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var id domain.Identity
		if a.Auth {
			got, ok := mdw.Identity(c)
			if !ok {
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if len(a.Roles) > 0 && !hasRole(got.Role, a.Roles) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
			id = got
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
			// an empty body binds to the zero input
			if errors.Is(bindErr, io.EOF) {
				bindErr = nil
			}
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, bindError(bindErr))
			return
		}

		out, err := a.Handler(c, id, &in)
		if err != nil {
			if domain.KindOf(err) == domain.KindInternal {
				_ = c.Error(err)
			}
			c.JSON(http.StatusOK, resp.FromError(err))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

func bindError(err error) resp.Resp {
	var de *domain.Error
	if errors.As(err, &de) {
		return resp.FromError(err)
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return resp.Error(resp.CodeBadRequest, "request body too large")
	}
	return resp.Error(resp.CodeBadRequest, "invalid request body: "+err.Error())
}

func hasRole(r domain.Role, allowed []domain.Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// ParamID reads a positive integer path parameter.
func ParamID(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, domain.InvalidInput("invalid " + name)
	}
	return v, nil
}
