// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest provides an in-memory fake of the catchat REST backend
// for tests. It speaks the same routes and payloads as the real service,
// issues HS256 bearer tokens, and records every request it sees.
//
//	srv := apitest.New(t)
//	alice := srv.AddUser("alice", "pw", "user")
//	client := api.New(store).WithBaseURL(srv.URL)
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/catachess/catchat-tui/internal/model"
)

// Request is one recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
}

type user struct {
	id         string
	username   string
	identifier string
	role       string
	hash       []byte
}

type conversation struct {
	id            string
	a, b          string
	createdAt     time.Time
	lastMessageAt *time.Time
}

type fault struct {
	status int
	detail string
}

// Server is the fake backend. Its exported fields may be set before the
// first request.
type Server struct {
	*httptest.Server

	// IncludeUsernames makes conversation payloads carry other_username.
	// Off by default because the real create endpoint omits it.
	IncludeUsernames bool

	mu            sync.Mutex
	secret        []byte
	tokenGen      int
	clock         time.Time
	users         map[string]*user
	conversations map[string]*conversation
	messages      map[string][]model.Message
	groups        map[string]*model.Group
	groupMessages map[string][]model.GroupMessage
	broadcasts    []model.Broadcast
	requests      []Request
	faults        map[string][]fault
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		secret:        []byte("apitest-" + uuid.NewString()),
		clock:         time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		users:         make(map[string]*user),
		conversations: make(map[string]*conversation),
		messages:      make(map[string][]model.Message),
		groups:        make(map[string]*model.Group),
		groupMessages: make(map[string][]model.GroupMessage),
		faults:        make(map[string][]fault),
	}
	s.Server = httptest.NewServer(s.routes())
	if t != nil {
		t.Cleanup(s.Close)
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Post("/auth/login/json", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/user/profile", s.handleProfile)
		r.Get("/user/by-username/{username}", s.handleUserByUsername)

		r.Route("/api/catchat", func(r chi.Router) {
			r.Get("/conversations", s.handleListConversations)
			r.Post("/conversations", s.handleCreateConversation)
			r.Get("/conversations/{id}/messages", s.handleListMessages)
			r.Post("/conversations/{id}/messages", s.handleSendMessage)

			r.Get("/groups", s.handleListGroups)
			r.Post("/groups", s.handleCreateGroup)
			r.Get("/groups/{id}", s.handleGetGroup)
			r.Patch("/groups/{id}", s.handleRenameGroup)
			r.Delete("/groups/{id}", s.handleDeleteGroup)
			r.Post("/groups/{id}/members", s.handleAddMember)
			r.Patch("/groups/{id}/members/{userID}", s.handleChangeRole)
			r.Delete("/groups/{id}/members/{userID}", s.handleRemoveMember)
			r.Get("/groups/{id}/messages", s.handleListGroupMessages)
			r.Post("/groups/{id}/messages", s.handleSendGroupMessage)

			r.Get("/broadcasts", s.handleListBroadcasts)
			r.Post("/broadcasts", s.handlePostBroadcast)
		})
	})
	return r
}

// =============================================================================
// TEST CONTROLS
// =============================================================================

// AddUser registers an account and returns its lookup record. role is the
// account role ("user" or "admin").
func (s *Server) AddUser(username, password, role string) model.UserLookup {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &user{
		id:         uuid.NewString(),
		username:   username,
		identifier: username + "@example.com",
		role:       role,
		hash:       hash,
	}
	s.mu.Lock()
	s.users[u.id] = u
	s.mu.Unlock()
	return model.UserLookup{ID: u.id, Username: username}
}

// TokenFor issues a valid bearer token for userID without a login request.
func (s *Server) TokenFor(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID)
}

// RevokeAll invalidates every token issued so far.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	s.tokenGen++
	s.mu.Unlock()
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many requests matched method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// ResetRequests forgets recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// FailNext makes the next request matching method and path fail with status
// and a {"detail": detail} body. An empty detail sends an empty body.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], fault{status: status, detail: detail})
	s.mu.Unlock()
}

// InjectMessage stores a message as if senderID had sent it from another
// client.
func (s *Server) InjectMessage(conversationID, senderID, content string) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMessageLocked(conversationID, senderID, content)
}

// InjectGroupMessage stores a group message as if sent from another client.
func (s *Server) InjectGroupMessage(groupID, senderID, content string) model.GroupMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendGroupMessageLocked(groupID, senderID, content)
}

// InjectBroadcast stores a broadcast from senderID.
func (s *Server) InjectBroadcast(senderID, content string) model.Broadcast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendBroadcastLocked(senderID, content)
}

// Group returns the server's copy of a group.
func (s *Server) Group(id string) (model.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return model.Group{}, false
	}
	return copyGroup(g), true
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type ctxKey struct{}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		key := r.Method + " " + r.URL.Path
		var f *fault
		if queue := s.faults[key]; len(queue) > 0 {
			f = &queue[0]
			s.faults[key] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			if f.detail == "" {
				w.WriteHeader(f.status)
				return
			}
			writeError(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		sub, _ := claims.GetSubject()
		gen, _ := claims["gen"].(float64)

		s.mu.Lock()
		u, known := s.users[sub]
		current := int(gen) == s.tokenGen
		s.mu.Unlock()
		if !known || !current {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithUser(r, u)))
	})
}

// =============================================================================
// AUTH & USERS
// =============================================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	var found *user
	for _, u := range s.users {
		if u.identifier == req.Identifier || u.username == req.Identifier {
			found = u
			break
		}
	}
	s.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Incorrect identifier or password")
		return
	}

	s.mu.Lock()
	token := s.issueLocked(found.id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, model.LoginResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)
	name := u.username
	writeJSON(w, http.StatusOK, model.CurrentUser{
		ID:         u.id,
		Username:   &name,
		Identifier: u.identifier,
		Role:       u.role,
	})
}

func (s *Server) handleUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	s.mu.Lock()
	u := s.userByNameLocked(username)
	s.mu.Unlock()
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, model.UserLookup{ID: u.id, Username: u.username})
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	s.mu.Lock()
	out := []model.Conversation{}
	for _, c := range s.conversations {
		if c.a == me.id || c.b == me.id {
			out = append(out, s.viewLocked(c, me.id))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.UserID]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if req.UserID == me.id {
		writeError(w, http.StatusBadRequest, "Cannot start a conversation with yourself")
		return
	}

	for _, c := range s.conversations {
		if (c.a == me.id && c.b == req.UserID) || (c.b == me.id && c.a == req.UserID) {
			view := s.viewLocked(c, me.id)
			view.OtherUsername = ""
			writeJSON(w, http.StatusOK, view)
			return
		}
	}

	c := &conversation{id: uuid.NewString(), a: me.id, b: req.UserID, createdAt: s.tickLocked()}
	s.conversations[c.id] = c
	view := s.viewLocked(c, me.id)
	view.OtherUsername = ""
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	id := chi.URLParam(r, "id")
	limit := parseLimit(r)

	s.mu.Lock()
	c, ok := s.conversations[id]
	if !ok || (c.a != me.id && c.b != me.id) {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	out := newestFirst(s.messages[id], limit)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	id := chi.URLParam(r, "id")
	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	c, found := s.conversations[id]
	if !found || (c.a != me.id && c.b != me.id) {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	msg := s.appendMessageLocked(id, me.id, content)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, msg)
}

// =============================================================================
// GROUPS
// =============================================================================

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	s.mu.Lock()
	out := []model.Group{}
	for _, g := range s.groups {
		if _, ok := g.Member(me.id); ok {
			out = append(out, copyGroup(g))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	var req struct {
		Name    string            `json:"name"`
		Members []model.NewMember `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if len(req.Members) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "At least one member is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tickLocked()
	g := &model.Group{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		CreatedBy: me.id,
		CreatedAt: now,
		Members:   []model.GroupMember{{UserID: me.id, Username: me.username, Role: model.RoleOwner, JoinedAt: now}},
	}
	names := []string{me.username}
	for _, m := range req.Members {
		u, ok := s.users[m.UserID]
		if !ok {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		if _, dup := g.Member(u.id); dup {
			continue
		}
		g.Members = append(g.Members, model.GroupMember{UserID: u.id, Username: u.username, Role: model.RoleMember, JoinedAt: now})
		names = append(names, u.username)
	}
	if g.Name == "" {
		g.Name = strings.Join(names, ", ")
	}
	s.groups[g.ID] = g
	writeJSON(w, http.StatusCreated, copyGroup(g))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	g, _, ok := s.groupForLocked(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	out := copyGroup(g)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, role, ok := s.groupForLocked(w, r)
	if !ok {
		return
	}
	if !model.CanRename(role) {
		writeError(w, http.StatusForbidden, "Only admins can rename the group")
		return
	}
	g.Name = strings.TrimSpace(req.Name)
	writeJSON(w, http.StatusOK, copyGroup(g))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, role, ok := s.groupForLocked(w, r)
	if !ok {
		return
	}
	if !model.CanDissolve(role) {
		writeError(w, http.StatusForbidden, "Only the owner can dissolve the group")
		return
	}
	delete(s.groups, g.ID)
	delete(s.groupMessages, g.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req model.NewMember
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, role, ok := s.groupForLocked(w, r)
	if !ok {
		return
	}
	if !model.CanAddMember(role) {
		writeError(w, http.StatusForbidden, "Only admins can add members")
		return
	}
	u, exists := s.users[req.UserID]
	if !exists {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if _, dup := g.Member(u.id); dup {
		writeError(w, http.StatusConflict, "User is already a member")
		return
	}
	g.Members = append(g.Members, model.GroupMember{UserID: u.id, Username: u.username, Role: model.RoleMember, JoinedAt: s.tickLocked()})
	writeJSON(w, http.StatusOK, copyGroup(g))
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Role != model.RoleAdmin && req.Role != model.RoleMember) {
		writeError(w, http.StatusUnprocessableEntity, "role must be admin or member")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, role, ok := s.groupForLocked(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "userID")
	target, member := g.Member(targetID)
	if !member {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if !model.CanChangeRole(role, target.Role, targetID == userFrom(r).id) {
		writeError(w, http.StatusForbidden, "Only the owner can change roles")
		return
	}
	*g = g.WithRole(targetID, req.Role)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, role, ok := s.groupForLocked(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "userID")
	target, member := g.Member(targetID)
	if !member {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	self := targetID == userFrom(r).id
	allowed := (self && model.CanLeave(role)) || model.CanRemove(role, target.Role, self)
	if !allowed {
		writeError(w, http.StatusForbidden, "Not allowed")
		return
	}
	*g = g.WithoutMember(targetID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGroupMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	s.mu.Lock()
	g, _, ok := s.groupForLocked(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	out := newestFirst(s.groupMessages[g.ID], limit)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSendGroupMessage(w http.ResponseWriter, r *http.Request) {
	content, ok := decodeContent(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	g, _, found := s.groupForLocked(w, r)
	if !found {
		s.mu.Unlock()
		return
	}
	msg := s.appendGroupMessageLocked(g.ID, userFrom(r).id, content)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, msg)
}

// =============================================================================
// BROADCASTS
// =============================================================================

func (s *Server) handleListBroadcasts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	s.mu.Lock()
	out := newestFirst(s.broadcasts, limit)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostBroadcast(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	if me.role != "admin" {
		writeError(w, http.StatusForbidden, "Only admins can post broadcasts")
		return
	}
	content, ok := decodeContent(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	b := s.appendBroadcastLocked(me.id, content)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, b)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) issueLocked(userID string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"gen": s.tokenGen,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

// tickLocked advances the fake clock one second so server timestamps are
// strictly increasing.
func (s *Server) tickLocked() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Server) userByNameLocked(username string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.username, username) {
			return u
		}
	}
	return nil
}

func (s *Server) viewLocked(c *conversation, viewer string) model.Conversation {
	other := c.b
	if c.b == viewer {
		other = c.a
	}
	out := model.Conversation{
		ID:            c.id,
		OtherUserID:   other,
		LastMessageAt: c.lastMessageAt,
		CreatedAt:     c.createdAt,
	}
	if s.IncludeUsernames {
		if u, ok := s.users[other]; ok {
			out.OtherUsername = u.username
		}
	}
	return out
}

func (s *Server) groupForLocked(w http.ResponseWriter, r *http.Request) (*model.Group, model.Role, bool) {
	g, ok := s.groups[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Group not found")
		return nil, "", false
	}
	role := g.RoleOf(userFrom(r).id)
	if role == "" {
		writeError(w, http.StatusNotFound, "Group not found")
		return nil, "", false
	}
	return g, role, true
}

func (s *Server) appendMessageLocked(conversationID, senderID, content string) model.Message {
	now := s.tickLocked()
	msg := model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
	}
	if u, ok := s.users[senderID]; ok {
		name := u.username
		msg.SenderName = &name
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	if c, ok := s.conversations[conversationID]; ok {
		c.lastMessageAt = &now
	}
	return msg
}

func (s *Server) appendGroupMessageLocked(groupID, senderID, content string) model.GroupMessage {
	now := s.tickLocked()
	msg := model.GroupMessage{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
	}
	if u, ok := s.users[senderID]; ok {
		msg.SenderName = u.username
	}
	s.groupMessages[groupID] = append(s.groupMessages[groupID], msg)
	if g, ok := s.groups[groupID]; ok {
		g.LastMessageAt = &now
	}
	return msg
}

func (s *Server) appendBroadcastLocked(senderID, content string) model.Broadcast {
	b := model.Broadcast{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
		CreatedAt: s.tickLocked(),
	}
	if u, ok := s.users[senderID]; ok {
		name := u.username
		b.SenderName = &name
	}
	s.broadcasts = append(s.broadcasts, b)
	return b
}

func copyGroup(g *model.Group) model.Group {
	out := *g
	out.Members = append([]model.GroupMember(nil), g.Members...)
	return out
}

// newestFirst returns up to limit items from the end of a chronological
// slice, reversed.
func newestFirst[T any](items []T, limit int) []T {
	n := len(items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 50
	}
	return limit
}

func decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusUnprocessableEntity, "content required")
		return "", false
	}
	return strings.TrimSpace(req.Content), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
