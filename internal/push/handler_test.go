package push

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler() *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleSend(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "valid", body: `{"to":"s1","title":"Hola","body":"x","data":{"order_id":"o1"}}`, want: http.StatusOK},
		{name: "missing to", body: `{"title":"Hola"}`, want: http.StatusBadRequest},
		{name: "blank title", body: `{"to":"s1","title":"  "}`, want: http.StatusBadRequest},
		{name: "malformed", body: `{`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler()
			rec := httptest.NewRecorder()
			h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body)))

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHandleList(t *testing.T) {
	h := newTestHandler()
	for _, to := range []string{"a", "b", "a"} {
		rec := httptest.NewRecorder()
		body := fmt.Sprintf(`{"to":%q,"title":"t"}`, to)
		h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body)))
	}

	rec := httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/sent?to=a", nil))

	var got []Notification
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications for a, got %d", len(got))
	}
}

func TestOutboxIsBounded(t *testing.T) {
	h := newTestHandler()
	h.size = 3

	for i := range 5 {
		h.record(Notification{To: fmt.Sprintf("u%d", i)})
	}

	if len(h.outbox) != 3 {
		t.Fatalf("expected outbox of 3, got %d", len(h.outbox))
	}
	if h.outbox[0].To != "u2" || h.outbox[2].To != "u4" {
		t.Errorf("expected oldest entries dropped, got %+v", h.outbox)
	}
}
