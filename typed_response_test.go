package jsonapikit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
)

// TestUser represents a plain REST payload, not a JSON:API document.
type TestUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TestAPIResponse represents a plain REST envelope.
type TestAPIResponse struct {
	Success bool     `json:"success"`
	Data    TestUser `json:"data"`
	Message string   `json:"message"`
}

func TestFetchPlainJSON(t *testing.T) {
	expectedUser := TestUser{
		ID:    123,
		Name:  "John Doe",
		Email: "john@example.com",
	}

	client, _ := newMockAPI(t, func(r chi.Router) {
		r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(expectedUser); err != nil {
				t.Errorf("Failed to encode response: %v", err)
			}
		})
	})

	user, err := Fetch[TestUser](context.Background(), client, "users/123", nil)
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}

	if user != expectedUser {
		t.Errorf("Expected %+v, got %+v", expectedUser, user)
	}
}

func TestFetchPlainSlice(t *testing.T) {
	client, _ := newMockAPI(t, func(r chi.Router) {
		r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("role"); got != "admin" {
				t.Errorf("Expected role=admin, got %q", got)
			}
			writeJSON(w, http.StatusOK, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`)
		})
	})

	users, err := Fetch[[]TestUser](context.Background(), client, "users", FilterParams(FilterStylePlain, Filter("role", "admin")))
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	if len(users) != 2 || users[1].Name != "b" {
		t.Errorf("Unexpected users %+v", users)
	}
}

func TestSpecialPostJSON(t *testing.T) {
	client, _ := newMockAPI(t, func(r chi.Router) {
		r.Post("/users", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			var user TestUser
			if err := json.Unmarshal(body, &user); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
			user.ID = 456
			resp := TestAPIResponse{Success: true, Data: user, Message: "created"}
			w.WriteHeader(http.StatusCreated)
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				t.Errorf("Failed to encode response: %v", err)
			}
		})
	})

	body, err := JSONBody(TestUser{Name: "Jane Doe", Email: "jane@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := Special[TestAPIResponse](context.Background(), client, MethodPost, "users", nil, body)
	if err != nil {
		t.Fatalf("Special() returned error: %v", err)
	}
	if !resp.Success || resp.Data.ID != 456 || resp.Data.Name != "Jane Doe" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	client, _ := newMockAPI(t, func(r chi.Router) {
		r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"invalid": json}`))
		})
	})

	_, err := Fetch[TestUser](context.Background(), client, "users/1", nil)
	if errorType(err) != ErrorTypeDecodeFailure {
		t.Errorf(expectedErrorTypeMsg, ErrorTypeDecodeFailure, err)
	}
}

func TestPlainErrorDecoder(t *testing.T) {
	client, delegate := newMockAPI(t, func(r chi.Router) {
		r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"code":40401,"error":"not_found","message":"user does not exist"}`)
		})
	})
	delegate.ErrorDecoder = DecodePlainError

	_, err := Fetch[TestUser](context.Background(), client, "users/9", nil)
	if errorType(err) != ErrorTypeServerDomain {
		t.Fatalf(expectedErrorTypeMsg, ErrorTypeServerDomain, err)
	}

	errs := DomainErrors(err)
	if len(errs) != 1 {
		t.Fatalf("Expected one domain error, got %d", len(errs))
	}
	if errs[0].Code != "40401" || errs[0].Title != "not_found" || errs[0].Detail != "user does not exist" {
		t.Errorf("Unexpected domain error %+v", errs[0])
	}
}

func TestDecodePlainError(t *testing.T) {
	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"status":"400","message":"bad"}`, false},
		{`{"error":"oops"}`, false},
		{`{"code":1}`, true},
		{`not json`, true},
	}

	for _, test := range tests {
		_, err := DecodePlainError([]byte(test.body))
		if (err != nil) != test.wantErr {
			t.Errorf("DecodePlainError(%s) error = %v, wantErr %v", test.body, err, test.wantErr)
		}
	}
}

func TestDecodeJSONAPIErrors(t *testing.T) {
	errs, err := DecodeJSONAPIErrors([]byte(`{"errors":[{"status":"409","title":"Conflict"}]}`))
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if len(errs) != 1 || errs[0].StatusValue() != 409 {
		t.Errorf("Unexpected errors %+v", errs)
	}

	if _, err := DecodeJSONAPIErrors([]byte(`{"errors":[]}`)); err == nil {
		t.Error("An empty error list should not decode")
	}
}

func TestPaginationPreset(t *testing.T) {
	tests := []struct {
		name     string
		expected PaginationParams
		ok       bool
	}{
		{"", PaginationOffsetLimit, true},
		{"cursor", PaginationCursorLimit, true},
		{"index_size", PaginationIndexSize, true},
		{"page", PaginationPageSize, true},
		{"bogus", PaginationParams{}, false},
	}

	for _, test := range tests {
		got, ok := PaginationPreset(test.name)
		if ok != test.ok || got != test.expected {
			t.Errorf("PaginationPreset(%q) = %+v, %v", test.name, got, ok)
		}
	}
}
