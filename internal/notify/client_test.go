package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gymaccess/internal/access"
)

func TestSendCard(t *testing.T) {
	var got access.Snapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(DispatchResult{ID: "d-1", Status: "queued"})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	res, err := c.SendCard(context.Background(), access.Snapshot{Token: "tok", FullName: "Mario Rossi"})
	if err != nil {
		t.Fatalf("send card: %v", err)
	}
	if res.ID != "d-1" || res.Status != "queued" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got.Token != "tok" || got.FullName != "Mario Rossi" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSendReminderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	_, err := c.SendReminder(context.Background(), Reminder{Kind: ReminderSubscription, Snapshot: access.Snapshot{Token: "tok"}})
	if err == nil || !strings.Contains(err.Error(), "mailbox full") {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestSkipMode(t *testing.T) {
	c := New("http://127.0.0.1:0", true)
	res, err := c.SendCard(context.Background(), access.Snapshot{Token: "tok"})
	if err != nil || res.Status != "skipped" {
		t.Fatalf("expected skipped dispatch, got %+v %v", res, err)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health in skip mode: %v", err)
	}
}

func TestSendCardRequiresToken(t *testing.T) {
	c := New("http://127.0.0.1:0", false)
	if _, err := c.SendCard(context.Background(), access.Snapshot{}); err == nil {
		t.Fatal("expected error without token")
	}
}
