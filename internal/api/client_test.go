// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catachess/catchat-tui/internal/apitest"
	"github.com/catachess/catchat-tui/internal/auth"
	"github.com/catachess/catchat-tui/internal/model"
)

func newTestClient(t *testing.T, srv *apitest.Server, token string) (*Client, *auth.TieredStore) {
	t.Helper()
	store := auth.NewMemoryStore()
	if token != "" {
		require.NoError(t, store.Save(token, true))
	}
	return New(store).WithBaseURL(srv.URL).WithRateLimit(0, 0), store
}

// =============================================================================
// CONTRACT TESTS
// =============================================================================

func TestClient_AttachesBearer(t *testing.T) {
	srv := apitest.New(t)
	alice := srv.AddUser("alice", "pw", "user")
	client, _ := newTestClient(t, srv, srv.TokenFor(alice.ID))

	_, err := client.Profile(context.Background())
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].Authorization, "Bearer "))
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("alice", "pw", "user")
	client, _ := newTestClient(t, srv, "")

	_, err := client.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Empty(t, srv.Requests()[0].Authorization)
	assert.Equal(t, "application/json", srv.Requests()[0].ContentType)
}

func TestClient_UnauthorizedClearsStore(t *testing.T) {
	srv := apitest.New(t)
	alice := srv.AddUser("alice", "pw", "user")
	client, store := newTestClient(t, srv, srv.TokenFor(alice.ID))
	require.NoError(t, store.SetUserID(alice.ID))

	var hookCalls atomic.Int32
	client.OnUnauthorized(func() { hookCalls.Add(1) })

	srv.RevokeAll()
	_, err := client.ListConversations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, int32(1), hookCalls.Load())

	_, ok := store.Get()
	assert.False(t, ok, "token should be cleared")
	_, ok = store.UserID()
	assert.False(t, ok, "user id should be cleared")

	// No further request carries the old credential
	srv.ResetRequests()
	_, _ = client.ListGroups(context.Background())
	for _, r := range srv.Requests() {
		assert.Empty(t, r.Authorization)
	}
}

func TestClient_UnauthorizedIgnoresBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token expired"}`))
	}))
	defer server.Close()

	client := New(auth.NewMemoryStore()).WithBaseURL(server.URL)
	_, err := client.Profile(context.Background())
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", err.Error())
}

func TestClient_ErrorKindsAndMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"detail string", 404, `{"detail":"User not found"}`, KindNotFound, "User not found"},
		{"conflict", 409, `{"detail":"already a member"}`, KindConflict, "already a member"},
		{"validation list", 422, `{"detail":[{"msg":"field required"}]}`, KindGeneric, "field required"},
		{"message field", 500, `{"message":"boom"}`, KindGeneric, "boom"},
		{"no body", 503, ``, KindGeneric, "HTTP 503"},
		{"html body", 502, `<html>bad gateway</html>`, KindGeneric, "HTTP 502"},
		{"empty detail", 400, `{"detail":""}`, KindGeneric, "HTTP 400"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			store := auth.NewMemoryStore()
			store.Save("tok", true)
			client := New(store).WithBaseURL(server.URL)

			_, err := client.Profile(context.Background())
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Message)

			_, ok := store.Get()
			assert.True(t, ok, "non-401 errors must not clear the store")
		})
	}
}

func TestClient_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(auth.NewMemoryStore()).WithBaseURL(server.URL)
	assert.NoError(t, client.DeleteGroup(context.Background(), "g1"))
}

func TestClient_NetworkFailureIsGeneric(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(auth.NewMemoryStore()).WithBaseURL(url).WithTimeout(time.Second)
	_, err := client.Profile(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindGeneric, KindOf(err))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestClient_RawBodyOmitsJSONContentType(t *testing.T) {
	var gotType string
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(auth.NewMemoryStore()).WithBaseURL(server.URL)
	err := client.do(context.Background(), http.MethodPost, "/upload", RawBody{Reader: strings.NewReader("raw")}, nil)
	require.NoError(t, err)
	assert.Empty(t, gotType)
	assert.Equal(t, "raw", gotBody)
}

func TestClient_ResponseSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`"`))
		w.Write([]byte(strings.Repeat("a", MaxResponseSize)))
		w.Write([]byte(`"`))
	}))
	defer server.Close()

	client := New(auth.NewMemoryStore()).WithBaseURL(server.URL)
	_, err := client.Profile(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := apitest.New(t)
	client, _ := newTestClient(t, srv, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Profile(ctx)
	require.Error(t, err)
	assert.Equal(t, KindGeneric, KindOf(err))
}

// =============================================================================
// ENDPOINT TESTS
// =============================================================================

func TestLogin(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("alice", "secret", "user")
	client, store := newTestClient(t, srv, "")

	resp, err := client.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, ok := store.Get()
	assert.False(t, ok, "Login must not store the token itself")

	_, err = client.Login(context.Background(), "alice", "wrong")
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Invalid credentials", LoginMessage(err))
	assert.Equal(t, "HTTP 502", LoginMessage(&Error{Status: 502, Message: "HTTP 502"}))
	assert.Empty(t, LoginMessage(nil))
}

func TestConversationFlow(t *testing.T) {
	srv := apitest.New(t)
	alice := srv.AddUser("alice", "pw", "user")
	bob := srv.AddUser("bob", "pw", "user")
	client, _ := newTestClient(t, srv, srv.TokenFor(alice.ID))
	ctx := context.Background()

	found, err := client.UserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)

	_, err = client.UserByUsername(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))

	first, err := client.GetOrCreateConversation(ctx, bob.ID)
	require.NoError(t, err)
	second, err := client.GetOrCreateConversation(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "get-or-create must be idempotent")

	for _, text := range []string{"one", "two", "three"} {
		_, err := client.SendMessage(ctx, first.ID, text)
		require.NoError(t, err)
	}

	msgs, err := client.ListMessages(ctx, first.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "three", msgs[0].Content, "newest first")
	assert.Equal(t, "limit=2", srv.Requests()[len(srv.Requests())-1].Query)

	convs, err := client.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.NotNil(t, convs[0].LastMessageAt)
}

func TestGroupFlow(t *testing.T) {
	srv := apitest.New(t)
	alice := srv.AddUser("alice", "pw", "user")
	bob := srv.AddUser("bob", "pw", "user")
	carol := srv.AddUser("carol", "pw", "user")
	client, _ := newTestClient(t, srv, srv.TokenFor(alice.ID))
	ctx := context.Background()

	g, err := client.CreateGroup(ctx, "Team", []model.NewMember{{UserID: bob.ID, Username: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, g.RoleOf(alice.ID))

	g, err = client.RenameGroup(ctx, g.ID, "Squad")
	require.NoError(t, err)
	assert.Equal(t, "Squad", g.Name)

	g, err = client.AddMember(ctx, g.ID, model.NewMember{UserID: carol.ID, Username: "carol"})
	require.NoError(t, err)
	assert.Len(t, g.Members, 3)

	_, err = client.AddMember(ctx, g.ID, model.NewMember{UserID: carol.ID, Username: "carol"})
	assert.True(t, errors.Is(err, ErrConflict))

	require.NoError(t, client.ChangeRole(ctx, g.ID, bob.ID, model.RoleAdmin))
	require.NoError(t, client.RemoveMember(ctx, g.ID, carol.ID))

	_, err = client.SendGroupMessage(ctx, g.ID, "hi team")
	require.NoError(t, err)
	msgs, err := client.ListGroupMessages(ctx, g.ID, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].SenderName)

	fetched, err := client.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, fetched.RoleOf(bob.ID))

	groups, err := client.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	require.NoError(t, client.DeleteGroup(ctx, g.ID))
	_, err = client.GetGroup(ctx, g.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBroadcasts(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.AddUser("root", "pw", "admin")
	plain := srv.AddUser("alice", "pw", "user")
	ctx := context.Background()

	adminClient, _ := newTestClient(t, srv, srv.TokenFor(admin.ID))
	_, err := adminClient.PostBroadcast(ctx, "maintenance tonight")
	require.NoError(t, err)

	userClient, _ := newTestClient(t, srv, srv.TokenFor(plain.ID))
	_, err = userClient.PostBroadcast(ctx, "hello all")
	require.Error(t, err)
	assert.Equal(t, "Only admins can post broadcasts", err.Error())

	list, err := userClient.ListBroadcasts(ctx, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "maintenance tonight", list[0].Content)
}

// =============================================================================
// CLAIMS TESTS
// =============================================================================

func TestTokenClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	claims, err := TokenClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Minute)))

	_, err = TokenClaims("not-a-jwt")
	assert.Error(t, err)
}
