package ez

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"task-manager-api/internal/domain"
	mdw "task-manager-api/internal/transport/http/middleware"
	resp "task-manager-api/internal/transport/http/response"
)

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

func newEngine(id *domain.Identity) (*gin.Engine, EZ) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if id != nil {
		r.Use(func(c *gin.Context) { c.Set(mdw.KeyIdentity, *id); c.Next() })
	}
	return r, New(r.Group(""))
}

func do(t *testing.T, r http.Handler, method, path, body string) resp.Resp {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status = %d, want 200", w.Code)
	}
	var out resp.Resp
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestRegisterAction_BindAndRespond(t *testing.T) {
	r, e := newEngine(&domain.Identity{UserID: 7, Role: domain.RoleUser})
	RegisterAction(e, Action[echoIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/echo",
		Binder: BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, id domain.Identity, in *echoIn) (gin.H, error) {
			return gin.H{"name": in.Name, "uid": id.UserID}, nil
		},
	})

	got := do(t, r, http.MethodPost, "/echo", `{"name":"a"}`)
	if got.Code != resp.CodeOK {
		t.Fatalf("code = %d, msg = %s", got.Code, got.Msg)
	}
	data := got.Data.(map[string]any)
	if data["name"] != "a" || data["uid"].(float64) != 7 {
		t.Fatalf("data = %v", data)
	}

	if got := do(t, r, http.MethodPost, "/echo", `{}`); got.Code != resp.CodeBadRequest {
		t.Fatalf("missing field: code = %d", got.Code)
	}
	if got := do(t, r, http.MethodPost, "/echo", `{"name":`); got.Code != resp.CodeBadRequest {
		t.Fatalf("broken json: code = %d", got.Code)
	}
}

func TestRegisterAction_AuthAndRoles(t *testing.T) {
	handler := func(c *gin.Context, id domain.Identity, _ *struct{}) (string, error) { return "ok", nil }

	r, e := newEngine(nil)
	RegisterAction(e, Action[struct{}, string]{Method: http.MethodGet, Path: "/x", Binder: BindNone, Auth: true, Handler: handler})
	if got := do(t, r, http.MethodGet, "/x", ""); got.Code != resp.CodeUnauthorized {
		t.Fatalf("no identity: code = %d", got.Code)
	}

	r, e = newEngine(&domain.Identity{UserID: 1, Role: domain.RoleUser})
	RegisterAction(e, Action[struct{}, string]{
		Method: http.MethodGet, Path: "/x", Binder: BindNone, Auth: true,
		Roles: []domain.Role{domain.RoleAdmin}, Handler: handler,
	})
	if got := do(t, r, http.MethodGet, "/x", ""); got.Code != resp.CodeForbidden {
		t.Fatalf("wrong role: code = %d", got.Code)
	}
}

func TestRegisterAction_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.NotFound("task not found"), resp.CodeNotFound, "task not found"},
		{domain.Conflict("dup"), resp.CodeConflict, "dup"},
		{domain.InvalidInput("bad"), resp.CodeBadRequest, "bad"},
		{domain.Forbidden("no"), resp.CodeForbidden, "no"},
		{domain.Internal("db exploded", nil), resp.CodeServerError, "internal error"},
	}
	for _, tc := range cases {
		r, e := newEngine(nil)
		err := tc.err
		RegisterAction(e, Action[struct{}, string]{
			Method: http.MethodDelete, Path: "/x", Binder: BindNone,
			Handler: func(*gin.Context, domain.Identity, *struct{}) (string, error) { return "", err },
		})
		got := do(t, r, http.MethodDelete, "/x", "")
		if got.Code != tc.code || got.Msg != tc.msg {
			t.Errorf("%v: got (%d, %q), want (%d, %q)", tc.err, got.Code, got.Msg, tc.code, tc.msg)
		}
	}
}

func TestRegisterAction_EmptyBodyIsZeroInput(t *testing.T) {
	type patch struct {
		Title *string `json:"title"`
	}
	r, e := newEngine(nil)
	RegisterAction(e, Action[patch, bool]{
		Method: http.MethodPut, Path: "/p", Binder: BindJSON,
		Handler: func(_ *gin.Context, _ domain.Identity, in *patch) (bool, error) { return in.Title == nil, nil },
	})
	got := do(t, r, http.MethodPut, "/p", "")
	if got.Code != resp.CodeOK || got.Data != true {
		t.Fatalf("got %+v", got)
	}
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		raw string
		ok  bool
	}{{"12", true}, {"0", false}, {"-3", false}, {"abc", false}} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Params = gin.Params{{Key: "id", Value: tc.raw}}
		_, err := ParamID(c, "id")
		if (err == nil) != tc.ok {
			t.Errorf("ParamID(%q) err = %v", tc.raw, err)
		}
		if err != nil && domain.KindOf(err) != domain.KindInvalidInput {
			t.Errorf("ParamID(%q) kind = %s", tc.raw, domain.KindOf(err))
		}
	}
}
