package models

import (
	"time"
)

// Group privacy settings
const (
	GroupPublic  = "public"
	GroupPrivate = "private"
)

// Member roles within a group
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// Invite statuses
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteDeclined = "declined"
)

// Group represents a discussion group
type Group struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Privacy       string    `json:"privacy"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`

	MemberCount int    `json:"member_count"`
	MyRole      string `json:"my_role,omitempty"`
}

// IsPrivate reports whether joining requires an invite
func (g *Group) IsPrivate() bool {
	return g.Privacy == GroupPrivate
}

// GroupMember is a user's membership in a group
type GroupMember struct {
	GroupID  int64     `json:"group_id"`
	UserID   int64     `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	Username          string `json:"username,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// CanModerate reports whether the member can remove messages and members
func (m *GroupMember) CanModerate() bool {
	return m.Role == RoleAdmin || m.Role == RoleModerator
}

// GroupInvite is a pending invitation into a private group
type GroupInvite struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	InviterID int64     `json:"inviter_id"`
	InviteeID int64     `json:"invitee_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	GroupName       string `json:"group_name,omitempty"`
	InviterUsername string `json:"inviter_username,omitempty"`
}

// GroupMessage is a chat message posted to a group
type GroupMessage struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Username          string `json:"username,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}
