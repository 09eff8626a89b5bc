package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/ctxutil"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/services"
)

// stubAuthService only implements ParseAccessToken meaningfully; the
// middleware never touches the rest.
type stubAuthService struct {
	parse func(token string) (*ctxutil.RequestData, error)
}

func (s *stubAuthService) Register(dbc dbctx.Context, input services.RegisterInput) (*types.User, *services.TokenPair, error) {
	return nil, nil, fmt.Errorf("not implemented")
}

func (s *stubAuthService) Login(dbc dbctx.Context, email, password string) (*types.User, *services.TokenPair, error) {
	return nil, nil, fmt.Errorf("not implemented")
}

func (s *stubAuthService) Refresh(dbc dbctx.Context, refreshToken string) (*types.User, *services.TokenPair, error) {
	return nil, nil, fmt.Errorf("not implemented")
}

func (s *stubAuthService) Logout(dbc dbctx.Context, refreshToken string) error {
	return fmt.Errorf("not implemented")
}

func (s *stubAuthService) Me(dbc dbctx.Context) (*types.User, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubAuthService) ParseAccessToken(tokenString string) (*ctxutil.RequestData, error) {
	return s.parse(tokenString)
}

func (s *stubAuthService) AccessTTL() time.Duration  { return 15 * time.Minute }
func (s *stubAuthService) RefreshTTL() time.Duration { return 30 * 24 * time.Hour }

func authTestRouter(tb testing.TB, parse func(token string) (*ctxutil.RequestData, error)) *gin.Engine {
	tb.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	am := NewAuthMiddleware(log, &stubAuthService{parse: parse})

	r := gin.New()
	auth := r.Group("/", am.RequireAuth())
	auth.GET("/whoami", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": rd.UserID, "role": rd.Role})
	})
	professor := auth.Group("/", am.RequireRole(string(types.RoleProfessor), string(types.RoleAdmin)))
	professor.GET("/authoring", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	r := authTestRouter(t, func(token string) (*ctxutil.RequestData, error) {
		t.Fatalf("parse called without a token")
		return nil, nil
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	r := authTestRouter(t, func(token string) (*ctxutil.RequestData, error) {
		return nil, fmt.Errorf("signature invalid")
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "garbage"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthAcceptsCookieHeaderAndQuery(t *testing.T) {
	uid := uuid.New()
	var seen []string
	r := authTestRouter(t, func(token string) (*ctxutil.RequestData, error) {
		seen = append(seen, token)
		return &ctxutil.RequestData{UserID: uid, Username: "stu", Role: string(types.RoleStudent)}, nil
	})

	// Cookie.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "cookie-token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie auth status = %d", w.Code)
	}

	// Bearer header.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer auth status = %d", w.Code)
	}

	// Query param, the EventSource path.
	req = httptest.NewRequest(http.MethodGet, "/whoami?token=query-token", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("query auth status = %d", w.Code)
	}

	want := []string{"cookie-token", "header-token", "query-token"}
	if len(seen) != len(want) {
		t.Fatalf("parse calls = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("parse calls = %v, want %v", seen, want)
		}
	}

	// Cookie wins over header and query when several are present.
	req = httptest.NewRequest(http.MethodGet, "/whoami?token=query-token", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("mixed auth status = %d", w.Code)
	}
	if seen[len(seen)-1] != "cookie-token" {
		t.Fatalf("mixed auth used %q, want cookie", seen[len(seen)-1])
	}
}

func TestRequireRoleGatesByRole(t *testing.T) {
	role := string(types.RoleStudent)
	r := authTestRouter(t, func(token string) (*ctxutil.RequestData, error) {
		return &ctxutil.RequestData{UserID: uuid.New(), Username: "u", Role: role}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/authoring", nil)
	req.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("student status = %d, want 403", w.Code)
	}

	role = string(types.RoleProfessor)
	req = httptest.NewRequest(http.MethodGet, "/authoring", nil)
	req.Header.Set("Authorization", "Bearer t")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("professor status = %d, want 200", w.Code)
	}

	role = string(types.RoleAdmin)
	req = httptest.NewRequest(http.MethodGet, "/authoring", nil)
	req.Header.Set("Authorization", "Bearer t")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", w.Code)
	}
}
