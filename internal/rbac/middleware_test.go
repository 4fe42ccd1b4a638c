package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tutoria-app/tutoria/internal/shared"
)

func newGate(store Store) Middleware {
	return Middleware{Service: NewService(store, nil, nil, nil)}
}

func requestAs(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/bundles", nil)
	if userID == 0 {
		return req
	}
	sess := &shared.Session{}
	sess.SetUserID(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func serveGated(gate Middleware, req *http.Request, perms ...string) *httptest.ResponseRecorder {
	handler := gate.RequireAll(perms...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestGateRejectsAnonymous(t *testing.T) {
	gate := newGate(delegationFixture())
	rr := serveGated(gate, requestAs(0), shared.PermBundlesView)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestGateAllowsPermissionHolder(t *testing.T) {
	gate := newGate(delegationFixture())
	rr := serveGated(gate, requestAs(10), shared.PermBundlesView)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestGateDeniesMissingPermission(t *testing.T) {
	gate := newGate(delegationFixture())
	rr := serveGated(gate, requestAs(10), shared.PermRolesEdit)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestGateAdministratorBypass(t *testing.T) {
	gate := newGate(delegationFixture())
	rr := serveGated(gate, requestAs(99), "anything.at.all")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestGateEmptyRequirementPasses(t *testing.T) {
	gate := newGate(delegationFixture())
	rr := serveGated(gate, requestAs(0))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
