package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMiddleware(t *testing.T) {
	var got Identity
	var ok bool
	h := Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "user_42")
	req.Header.Set(HeaderUserName, "Nimal")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: "user_42", DisplayName: "Nimal"}, got)

	ok = true
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "bad-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequire(t *testing.T) {
	h := Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please sign in")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIdentityName(t *testing.T) {
	assert.Equal(t, "Nimal", Identity{DisplayName: "Nimal", Email: "x@y.lk"}.Name())
	assert.Equal(t, "kamal", Identity{Email: "kamal@example.lk"}.Name())
	assert.Equal(t, "User", Identity{}.Name())
}

func TestSessionNotifiesSubscribers(t *testing.T) {
	s := NewSession(Identity{})
	_, ok := s.Current()
	assert.False(t, ok)

	type event struct {
		id       string
		signedIn bool
	}
	var events []event
	unsubscribe := s.Subscribe(func(id Identity, signedIn bool) {
		events = append(events, event{id.UserID, signedIn})
	})

	require.NoError(t, s.SignIn(Identity{UserID: "u1"}))
	s.SignOut()
	s.SignOut()
	assert.Error(t, s.SignIn(Identity{UserID: "has-dash"}))
	unsubscribe()
	require.NoError(t, s.SignIn(Identity{UserID: "u2"}))

	assert.Equal(t, []event{{"u1", true}, {"", false}}, events)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "u2", cur.UserID)
}

func TestFriendlyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&Error{Code: CodeWrongPassword}, "Incorrect password. Please try again."},
		{fmt.Errorf("sign in: %w", &Error{Code: CodeTooManyRequests}), "Too many attempts. Please wait and try again later."},
		{&Error{Code: "auth/other", Message: "Provider: Quota exceeded (auth/other)."}, "Quota exceeded"},
		{&Error{Code: "auth/other"}, "An unknown error occurred. Please try again."},
		{errors.New("boom"), "Something went wrong. Please try again."},
		{nil, "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FriendlyError(tt.err))
	}
}
