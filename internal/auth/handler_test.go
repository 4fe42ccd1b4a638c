package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutoria-app/tutoria/internal/auth"
	"github.com/tutoria-app/tutoria/internal/shared"
	_ "github.com/tutoria-app/tutoria/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrInvalidCredentials
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	return auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager), sessionManager
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 7, Email: "user@test.local", Name: "User", PasswordHash: string(hashed), IsActive: true}
}

func doLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) { handler.MountRoutes(r) })
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	handler, sm := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sm, `{"email":"user@test.local","password":"correctpass"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.UserID() != 7 {
		t.Fatalf("expected session user 7, got %d", sess.UserID())
	}
	if !strings.Contains(res.Body.String(), "csrf_token") {
		t.Fatalf("expected csrf token in body: %s", res.Body.String())
	}
	if _, ok := repo.sessions[sess.ID]; !ok {
		t.Fatalf("expected session row registered")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	handler, sm := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sm, `{"email":"user@test.local","password":"wrongpass"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.UserID() != 0 {
		t.Fatalf("expected anonymous session, got user %d", sess.UserID())
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correctpass")
	user.IsActive = false
	handler, sm := newAuthHandler(t, &stubRepo{user: user})

	res, _ := doLogin(t, handler, sm, `{"email":"user@test.local","password":"correctpass"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginMalformedBody(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	res, _ := doLogin(t, handler, sm, `{"email":"not-an-email"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
