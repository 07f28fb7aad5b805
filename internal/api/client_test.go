package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/styleslot/styleslot-go/internal/appointment"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestLoginAdoptsHeaderToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "sam@example.com" {
			t.Fatalf("unexpected login body: %v", body)
		}
		w.Header().Set("Authorization", "Bearer session-token-1")
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": 10, "email": "sam@example.com", "role": "customer"},
		})
	})
	client, _ := newTestClient(t, mux)

	creds, err := client.Login(context.Background(), "sam@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if creds.Token != "session-token-1" {
		t.Fatalf("token = %q", creds.Token)
	}
	if creds.User.ID != 10 || creds.User.Role != "customer" {
		t.Fatalf("user = %+v", creds.User)
	}
	if client.Token() != "session-token-1" {
		t.Fatal("token not installed on client")
	}
}

func TestLoginWithoutTokenHeaderFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"user": map[string]any{"id": 10}})
	})
	client, _ := newTestClient(t, mux)

	if _, err := client.Login(context.Background(), "a@b.c", "x"); err == nil {
		t.Fatal("expected error when no Authorization header returned")
	}
}

func TestLoginRejectedIsPermissionDenied(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Login(context.Background(), "a@b.c", "wrong")
	if !errors.Is(err, appointment.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *Error, got %T", err)
	}
	if apiErr.Reason != "Invalid email or password" {
		t.Fatalf("reason must be carried verbatim, got %q", apiErr.Reason)
	}
}

func TestRequestsCarryBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /appointments/my_appointments", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("authorization = %q", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Fatal("missing request id")
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"appointments": []any{}, "meta": map[string]int{"current_page": 1, "total_pages": 1}})
	})
	client, _ := newTestClient(t, mux)
	client.SetToken("tok")

	if _, err := client.MyAppointments(context.Background(), StatusFilters{}); err != nil {
		t.Fatalf("my appointments: %v", err)
	}
}

func TestBrowseFiltersInQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /appointments", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("location") != "Austin" || q.Get("date") != "2026-09-12" || q.Get("page") != "2" {
			t.Fatalf("unexpected query: %v", q)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"appointments": []map[string]any{{"id": 1, "status": "pending"}},
			"meta":         map[string]int{"current_page": 2, "total_pages": 3},
		})
	})
	client, _ := newTestClient(t, mux)

	page, err := client.Appointments(context.Background(), BrowseFilters{Location: "Austin", Date: "2026-09-12", Page: 2})
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(page.Appointments) != 1 || page.Appointments[0].Status != appointment.StatusPending {
		t.Fatalf("page = %+v", page)
	}
	if !page.Meta.More() {
		t.Fatal("page 2 of 3 should report more")
	}
}

func TestBookReturnsUpdatedSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /appointments/5/book", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["selected_service"] != "Fade" {
			t.Fatalf("body = %v", body)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"appointment": map[string]any{
				"id": 5, "status": "pending",
				"customer": map[string]any{"id": 10, "name": "Sam"},
			},
		})
	})
	client, _ := newTestClient(t, mux)

	a, err := client.Book(context.Background(), 5, "Fade")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if a.Customer == nil || a.Customer.ID != 10 {
		t.Fatalf("snapshot = %+v", a)
	}
}

func TestBookConflictIsIneligible(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /appointments/5/book", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]string{"error": "Appointment already booked"})
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Book(context.Background(), 5, "")
	if !errors.Is(err, appointment.ErrIneligibleBooking) {
		t.Fatalf("want ErrIneligibleBooking, got %v", err)
	}
}

func TestAcceptConflictIsInvalidTransition(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /stylist/appointments/5/accept", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnprocessableEntity, map[string]string{"error": "Cannot accept a cancelled appointment"})
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Accept(context.Background(), 5)
	if !errors.Is(err, appointment.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestCancelRoutes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /appointments/5/cancel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"appointment": map[string]any{"id": 5, "status": "cancelled"}})
	})
	mux.HandleFunc("DELETE /stylist/appointments/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"appointment": map[string]any{"id": 5, "status": "cancelled"}})
	})
	client, _ := newTestClient(t, mux)

	if a, err := client.Cancel(context.Background(), 5); err != nil || a.Status != appointment.StatusCancelled {
		t.Fatalf("customer cancel: %+v %v", a, err)
	}
	if a, err := client.StylistCancel(context.Background(), 5); err != nil || a.Status != appointment.StatusCancelled {
		t.Fatalf("stylist cancel: %+v %v", a, err)
	}
}

func TestConversationFetchAndSend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"conversation": map[string]any{
				"id":         7,
				"other_user": map[string]any{"id": 20, "name": "Dee"},
				"messages": []map[string]any{
					{"id": 1, "content": "hi", "created_at": "2026-02-01T10:00:00Z", "sent_by_me": false},
				},
			},
		})
	})
	mux.HandleFunc("POST /conversations/7/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["message"]["content"] != "hello" {
			t.Fatalf("body = %v", body)
		}
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"message": map[string]any{"id": 2, "content": "hello", "created_at": "2026-02-01T10:01:00Z", "sent_by_me": true},
		})
	})
	client, _ := newTestClient(t, mux)

	conv, err := client.Conversation(context.Background(), 7)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if conv.ID != 7 || len(conv.Messages) != 1 || conv.OtherUser.Name != "Dee" {
		t.Fatalf("conversation = %+v", conv)
	}

	sent, err := client.SendMessage(context.Background(), 7, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.ID != 2 || !sent.SentByMe {
		t.Fatalf("sent = %+v", sent)
	}

	if _, err := client.SendMessage(context.Background(), 7, "   "); err == nil {
		t.Fatal("blank content must be rejected locally")
	}
}

func TestSubmitReviewValidatesRating(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	if _, err := client.SubmitReview(context.Background(), 5, 0, "meh"); err == nil {
		t.Fatal("rating 0 must be rejected")
	}
	if _, err := client.SubmitReview(context.Background(), 5, 6, "wow"); err == nil {
		t.Fatal("rating 6 must be rejected")
	}
	if _, err := client.SubmitReview(context.Background(), 5, 4, "  "); err == nil {
		t.Fatal("blank content must be rejected")
	}
}

func TestLogoutClearsTokenEvenOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})
	client, _ := newTestClient(t, mux)
	client.SetToken("tok")

	if err := client.Logout(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if client.Token() != "" {
		t.Fatal("local token must be dropped regardless")
	}
}

func TestNetworkFailureIsErrNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	url := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Appointment(context.Background(), 1)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
}

func TestSetTokenStripsScheme(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	client.SetToken("Bearer abc")
	if client.Token() != "abc" {
		t.Fatalf("token = %q", client.Token())
	}
}
