package handlers

import (
	"net/http"
	"testing"
)

func TestSessionHandler_GetSession(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t)
	h := NewSessionHandler(provider)

	rec := serve(http.HandlerFunc(h.GetSession), newTestRequest(http.MethodGet, "/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var anon SessionView
	decodeData(t, rec, &anon)
	if anon.State != "unauthenticated" || anon.Identity != nil {
		t.Errorf("unexpected anonymous state %+v", anon.Snapshot)
	}
	if _, ok := anon.Forms["sign_in"]; !ok {
		t.Error("expected sign_in form when signed out")
	}
	if _, ok := anon.Forms["sign_up"]; !ok {
		t.Error("expected sign_up form when signed out")
	}

	rec = serve(http.HandlerFunc(h.GetSession), newAuthedRequest(http.MethodGet, "/session", nil))
	var authed SessionView
	decodeData(t, rec, &authed)
	if authed.State != "authenticated" || authed.Identity == nil || authed.Identity.UID != testUID {
		t.Errorf("unexpected authenticated state %+v", authed.Snapshot)
	}
	if len(authed.Forms) != 0 {
		t.Error("expected no forms when signed in")
	}

	if n := provider.Subscribers(); n != 0 {
		t.Errorf("expected gate to unsubscribe, %d subscribers left", n)
	}
}
