// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/catachess/catchat-tui/internal/model"
)

// =============================================================================
// AUTH & USERS
// =============================================================================

// Login exchanges an identifier and password for a bearer credential. It
// does not store the credential; the caller decides which tier.
func (c *Client) Login(ctx context.Context, identifier, password string) (*model.LoginResponse, error) {
	var out model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login/json",
		model.LoginRequest{Identifier: identifier, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the signed-in user.
func (c *Client) Profile(ctx context.Context) (*model.CurrentUser, error) {
	var out model.CurrentUser
	if err := c.do(ctx, http.MethodGet, "/user/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserByUsername resolves a username to a user id.
func (c *Client) UserByUsername(ctx context.Context, username string) (*model.UserLookup, error) {
	var out model.UserLookup
	if err := c.do(ctx, http.MethodGet, "/user/by-username/"+url.PathEscape(username), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations returns the user's direct conversations.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var out []model.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/catchat/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrCreateConversation returns the conversation with userID, creating it
// if needed. Safe to call repeatedly.
func (c *Client) GetOrCreateConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	var out model.Conversation
	body := map[string]string{"user_id": userID}
	if err := c.do(ctx, http.MethodPost, "/api/catchat/conversations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages returns up to limit of the newest messages, newest first.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var out []model.Message
	path := "/api/catchat/conversations/" + url.PathEscape(conversationID) + "/messages" + limitQuery(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts content to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*model.Message, error) {
	var out model.Message
	path := "/api/catchat/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, contentBody(content), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// GROUPS
// =============================================================================

// ListGroups returns the groups the user belongs to.
func (c *Client) ListGroups(ctx context.Context) ([]model.Group, error) {
	var out []model.Group
	if err := c.do(ctx, http.MethodGet, "/api/catchat/groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGroup creates a group with the given initial members. The creator
// becomes owner server-side.
func (c *Client) CreateGroup(ctx context.Context, name string, members []model.NewMember) (*model.Group, error) {
	if members == nil {
		members = []model.NewMember{}
	}
	body := struct {
		Name    string            `json:"name"`
		Members []model.NewMember `json:"members"`
	}{name, members}

	var out model.Group
	if err := c.do(ctx, http.MethodPost, "/api/catchat/groups", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGroup fetches one group with its roster.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*model.Group, error) {
	var out model.Group
	if err := c.do(ctx, http.MethodGet, groupPath(groupID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameGroup renames a group and returns the updated group.
func (c *Client) RenameGroup(ctx context.Context, groupID, name string) (*model.Group, error) {
	var out model.Group
	if err := c.do(ctx, http.MethodPatch, groupPath(groupID), map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGroup dissolves a group.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, http.MethodDelete, groupPath(groupID), nil, nil)
}

// AddMember adds a user to a group and returns the updated group.
func (c *Client) AddMember(ctx context.Context, groupID string, member model.NewMember) (*model.Group, error) {
	var out model.Group
	if err := c.do(ctx, http.MethodPost, groupPath(groupID)+"/members", member, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeRole moves a member between admin and member.
func (c *Client) ChangeRole(ctx context.Context, groupID, userID string, role model.Role) error {
	path := groupPath(groupID) + "/members/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodPatch, path, map[string]string{"role": string(role)}, nil)
}

// RemoveMember removes userID from a group. Passing the caller's own id
// leaves the group.
func (c *Client) RemoveMember(ctx context.Context, groupID, userID string) error {
	path := groupPath(groupID) + "/members/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListGroupMessages returns up to limit of the newest group messages,
// newest first.
func (c *Client) ListGroupMessages(ctx context.Context, groupID string, limit int) ([]model.GroupMessage, error) {
	var out []model.GroupMessage
	if err := c.do(ctx, http.MethodGet, groupPath(groupID)+"/messages"+limitQuery(limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendGroupMessage posts content to a group.
func (c *Client) SendGroupMessage(ctx context.Context, groupID, content string) (*model.GroupMessage, error) {
	var out model.GroupMessage
	if err := c.do(ctx, http.MethodPost, groupPath(groupID)+"/messages", contentBody(content), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// BROADCASTS
// =============================================================================

// ListBroadcasts returns up to limit of the newest broadcasts, newest first.
func (c *Client) ListBroadcasts(ctx context.Context, limit int) ([]model.Broadcast, error) {
	var out []model.Broadcast
	if err := c.do(ctx, http.MethodGet, "/api/catchat/broadcasts"+limitQuery(limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostBroadcast posts an announcement. The server rejects non-admins.
func (c *Client) PostBroadcast(ctx context.Context, content string) (*model.Broadcast, error) {
	var out model.Broadcast
	if err := c.do(ctx, http.MethodPost, "/api/catchat/broadcasts", contentBody(content), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func groupPath(groupID string) string {
	return "/api/catchat/groups/" + url.PathEscape(groupID)
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return "?limit=" + strconv.Itoa(limit)
}

func contentBody(content string) map[string]string {
	return map[string]string{"content": content}
}
