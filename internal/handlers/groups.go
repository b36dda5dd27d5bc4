package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
	"soundscore/internal/services"
)

// CreateGroupRequest is the payload for creating a group
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=60"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Privacy     string `json:"privacy"`
}

// UpdateGroupRequest is the payload for editing a group
type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Privacy     *string `json:"privacy"`
}

// InviteRequest invites a user into a group
type InviteRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// UpdateRoleRequest changes a member's role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// GroupHandler handles groups, membership, invites and message history
type GroupHandler struct {
	groups        repositories.GroupRepository
	storage       *services.StorageService
	notifications *services.NotificationService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groups repositories.GroupRepository, storage *services.StorageService, notifications *services.NotificationService) *GroupHandler {
	return &GroupHandler{groups: groups, storage: storage, notifications: notifications}
}

// Create handles POST /api/v1/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Privacy == "" {
		req.Privacy = models.GroupPublic
	}
	if req.Privacy != models.GroupPublic && req.Privacy != models.GroupPrivate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Privacy must be public or private"})
		return
	}
	user := auth.CurrentUser(c)

	group := &models.Group{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Privacy:     req.Privacy,
		CreatedBy:   user.ID,
	}
	if err := h.groups.Create(c.Request.Context(), group); err != nil {
		slog.Error("Failed to create group", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	group.MyRole = models.RoleAdmin
	group.MemberCount = 1
	c.JSON(http.StatusCreated, group)
}

// List handles GET /api/v1/groups?category=
func (h *GroupHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	groups, err := h.groups.List(c.Request.Context(), c.Query("category"), viewerID(c), limit, offset)
	if err != nil {
		slog.Error("Failed to list groups", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// ListMine handles GET /api/v1/groups/mine
func (h *GroupHandler) ListMine(c *gin.Context) {
	groups, err := h.groups.ListForUser(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		slog.Error("Failed to list user groups", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Get handles GET /api/v1/groups/:id
func (h *GroupHandler) Get(c *gin.Context) {
	group, member, ok := h.loadGroup(c, false)
	if !ok {
		return
	}
	if member != nil {
		group.MyRole = member.Role
	}

	// Private groups hide details from non-members
	if group.IsPrivate() && member == nil {
		c.JSON(http.StatusOK, gin.H{"group": gin.H{
			"id": group.ID, "name": group.Name, "privacy": group.Privacy,
			"member_count": group.MemberCount,
		}})
		return
	}

	members, err := h.groups.ListMembers(c.Request.Context(), group.ID)
	if err != nil {
		slog.Error("Failed to list members", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "members": members})
}

// Update handles PATCH /api/v1/groups/:id, admin only
func (h *GroupHandler) Update(c *gin.Context) {
	group, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	if member.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can edit the group"})
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Name != nil {
		group.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if req.Category != nil {
		group.Category = *req.Category
	}
	if req.Privacy != nil {
		if *req.Privacy != models.GroupPublic && *req.Privacy != models.GroupPrivate {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Privacy must be public or private"})
			return
		}
		group.Privacy = *req.Privacy
	}

	if err := h.groups.Update(c.Request.Context(), group); err != nil {
		slog.Error("Failed to update group", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// Delete handles DELETE /api/v1/groups/:id, admin only
func (h *GroupHandler) Delete(c *gin.Context) {
	group, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	if member.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can delete the group"})
		return
	}

	if err := h.groups.Delete(c.Request.Context(), group.ID); err != nil {
		slog.Error("Failed to delete group", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// Join handles POST /api/v1/groups/:id/join, public groups only
func (h *GroupHandler) Join(c *gin.Context) {
	group, member, ok := h.loadGroup(c, false)
	if !ok {
		return
	}
	if member != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already a member"})
		return
	}
	if group.IsPrivate() {
		c.JSON(http.StatusForbidden, gin.H{"error": "This group is invite only"})
		return
	}

	if err := h.groups.AddMember(c.Request.Context(), group.ID, auth.CurrentUser(c).ID, models.RoleMember); err != nil {
		slog.Error("Failed to join group", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined"})
}

// Leave handles POST /api/v1/groups/:id/leave
func (h *GroupHandler) Leave(c *gin.Context) {
	group, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	// The last admin cannot abandon the group
	if member.Role == models.RoleAdmin {
		members, err := h.groups.ListMembers(c.Request.Context(), group.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave group"})
			return
		}
		admins := 0
		for _, m := range members {
			if m.Role == models.RoleAdmin {
				admins++
			}
		}
		if admins == 1 {
			c.JSON(http.StatusConflict, gin.H{"error": "Promote another admin before leaving"})
			return
		}
	}

	if _, err := h.groups.RemoveMember(c.Request.Context(), group.ID, member.UserID); err != nil {
		slog.Error("Failed to leave group", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left the group"})
}

// RemoveMember handles DELETE /api/v1/groups/:id/members/:userID
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	group, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	if !member.CanModerate() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Moderator role required"})
		return
	}
	targetID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	target, err := h.groups.FindMember(c.Request.Context(), group.ID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not a member"})
		return
	}
	// Moderators cannot remove admins or each other
	if target.Role != models.RoleMember && member.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
		return
	}

	if _, err := h.groups.RemoveMember(c.Request.Context(), group.ID, targetID); err != nil {
		slog.Error("Failed to remove member", "group_id", group.ID, "user_id", targetID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// UpdateRole handles PATCH /api/v1/groups/:id/members/:userID, admin only
func (h *GroupHandler) UpdateRole(c *gin.Context) {
	group, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	if member.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can change roles"})
		return
	}
	targetID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleModerator, models.RoleMember:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	updated, err := h.groups.UpdateRole(c.Request.Context(), group.ID, targetID, req.Role)
	if err != nil {
		slog.Error("Failed to update role", "group_id", group.ID, "user_id", targetID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not a member"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

// Invite handles POST /api/v1/groups/:id/invites
func (h *GroupHandler) Invite(c *gin.Context) {
	group, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	existing, err := h.groups.FindMember(c.Request.Context(), group.ID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already a member"})
		return
	}
	pending, err := h.groups.FindPendingInvite(c.Request.Context(), group.ID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite"})
		return
	}
	if pending != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Invite already pending"})
		return
	}

	invite := &models.GroupInvite{
		GroupID:   group.ID,
		InviterID: member.UserID,
		InviteeID: req.UserID,
		Status:    models.InvitePending,
	}
	if err := h.groups.CreateInvite(c.Request.Context(), invite); err != nil {
		slog.Error("Failed to create invite", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite"})
		return
	}

	if err := h.notifications.Notify(c.Request.Context(), &models.Notification{
		RecipientID:   req.UserID,
		ActorID:       member.UserID,
		Type:          models.NotificationGroupInvite,
		GroupInviteID: &invite.ID,
	}); err != nil {
		slog.Warn("Failed to create invite notification", "error", err)
	}
	c.JSON(http.StatusCreated, invite)
}

// ListInvites handles GET /api/v1/groups/invites, the caller's pending invites
func (h *GroupHandler) ListInvites(c *gin.Context) {
	invites, err := h.groups.ListInvitesForUser(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		slog.Error("Failed to list invites", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invites"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// RespondInvite handles POST /api/v1/groups/invites/:id/accept and /decline
func (h *GroupHandler) RespondInvite(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		inviteID, ok := pathID(c, "id")
		if !ok {
			return
		}
		user := auth.CurrentUser(c)

		invite, err := h.groups.FindInvite(c.Request.Context(), inviteID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to respond to invite"})
			return
		}
		if invite == nil || invite.InviteeID != user.ID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
			return
		}
		if invite.Status != models.InvitePending {
			c.JSON(http.StatusConflict, gin.H{"error": "Invite already answered"})
			return
		}

		status := models.InviteDeclined
		if accept {
			status = models.InviteAccepted
		}
		if err := h.groups.UpdateInviteStatus(c.Request.Context(), inviteID, status); err != nil {
			slog.Error("Failed to update invite", "invite_id", inviteID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to respond to invite"})
			return
		}

		if accept {
			if err := h.groups.AddMember(c.Request.Context(), invite.GroupID, user.ID, models.RoleMember); err != nil {
				slog.Error("Failed to add invited member", "group_id", invite.GroupID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join group"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

// ListMessages handles GET /api/v1/groups/:id/messages, members only
func (h *GroupHandler) ListMessages(c *gin.Context) {
	group, _, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	limit, _ := pagination(c)

	messages, err := h.groups.ListMessages(c.Request.Context(), group.ID, beforeCursor(c), limit)
	if err != nil {
		slog.Error("Failed to list group messages", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// UploadCover handles POST /api/v1/groups/:id/cover, admin only
func (h *GroupHandler) UploadCover(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}
	group, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}
	if member.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can change the cover"})
		return
	}

	url, ok := receiveUpload(c, h.storage, services.BucketGroupCovers, member.UserID)
	if !ok {
		return
	}

	group.CoverImageURL = url
	if err := h.groups.Update(c.Request.Context(), group); err != nil {
		slog.Error("Failed to save cover", "group_id", group.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save cover"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// UploadMessageImage handles POST /api/v1/groups/:id/messages/image. The
// returned URL goes into a chat message over the socket.
func (h *GroupHandler) UploadMessageImage(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}
	_, member, ok := h.loadGroup(c, true)
	if !ok {
		return
	}

	url, ok := receiveUpload(c, h.storage, services.BucketGroupMessageImages, member.UserID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// loadGroup loads the group from the path and the caller's membership.
// With requireMember set, non-members get a 403 and ok is false.
func (h *GroupHandler) loadGroup(c *gin.Context, requireMember bool) (*models.Group, *models.GroupMember, bool) {
	groupID, ok := pathID(c, "id")
	if !ok {
		return nil, nil, false
	}

	group, err := h.groups.FindByID(c.Request.Context(), groupID)
	if err != nil {
		slog.Error("Failed to load group", "group_id", groupID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load group"})
		return nil, nil, false
	}
	if group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return nil, nil, false
	}

	var member *models.GroupMember
	if user := auth.CurrentUser(c); user != nil {
		member, err = h.groups.FindMember(c.Request.Context(), groupID, user.ID)
		if err != nil {
			slog.Error("Failed to load membership", "group_id", groupID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load group"})
			return nil, nil, false
		}
	}
	if requireMember && member == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this group"})
		return nil, nil, false
	}
	return group, member, true
}
