package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"soundscore/internal/models"
	"soundscore/internal/services"
	"soundscore/internal/testutil"
)

type groupHandlerFixture struct {
	groups        *testutil.MockGroupRepository
	notifications *testutil.MockNotificationRepository
	handler       *GroupHandler
}

func newGroupHandlerFixture() *groupHandlerFixture {
	f := &groupHandlerFixture{
		groups:        new(testutil.MockGroupRepository),
		notifications: new(testutil.MockNotificationRepository),
	}
	f.handler = NewGroupHandler(f.groups, nil, services.NewNotificationService(f.notifications))
	return f
}

func (f *groupHandlerFixture) router(user *models.User) *gin.Engine {
	router := gin.New()
	authed := router.Group("", asUser(user))
	authed.POST("/groups", f.handler.Create)
	authed.GET("/groups/:id", f.handler.Get)
	authed.POST("/groups/:id/leave", f.handler.Leave)
	authed.DELETE("/groups/:id/members/:userID", f.handler.RemoveMember)
	authed.POST("/groups/:id/invites", f.handler.Invite)
	authed.POST("/groups/invites/:id/accept", f.handler.RespondInvite(true))
	authed.POST("/groups/invites/:id/decline", f.handler.RespondInvite(false))
	return router
}

func member(groupID, userID int64, role string) *models.GroupMember {
	return &models.GroupMember{GroupID: groupID, UserID: userID, Role: role}
}

func TestCreateGroup(t *testing.T) {
	creator := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()

	t.Run("creator starts out as the only admin", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(creator))

		f.groups.On("Create", mock.Anything, mock.MatchedBy(func(g *models.Group) bool {
			return g.Name == "Shoegaze Heads" && g.Privacy == models.GroupPublic && g.CreatedBy == creator.ID
		})).Return(nil)

		recorder := h.PostJSON("/groups", map[string]any{"name": "  Shoegaze Heads  "})

		var group models.Group
		h.AssertJSONResponse(recorder, http.StatusCreated, &group)
		assert.Equal(t, models.RoleAdmin, group.MyRole)
		assert.Equal(t, 1, group.MemberCount)
	})

	t.Run("unknown privacy value is rejected", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(creator))

		recorder := h.PostJSON("/groups", map[string]any{"name": "Vinyl Club", "privacy": "secret"})

		h.AssertErrorResponse(recorder, http.StatusBadRequest, "Privacy must be public or private")
		f.groups.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetPrivateGroup(t *testing.T) {
	viewer := testutil.NewUserBuilder().WithID(9).WithUsername("outsider").Build()
	group := &models.Group{ID: 3, Name: "Tape Traders", Privacy: models.GroupPrivate, MemberCount: 4}

	t.Run("non-members see only the outline", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(viewer))

		f.groups.On("FindByID", mock.Anything, group.ID).Return(group, nil)
		f.groups.On("FindMember", mock.Anything, group.ID, viewer.ID).Return(nil, nil)

		recorder := h.GetJSON("/groups/3")

		var body struct {
			Group map[string]any `json:"group"`
		}
		h.AssertJSONResponse(recorder, http.StatusOK, &body)
		assert.Equal(t, "Tape Traders", body.Group["name"])
		assert.EqualValues(t, 4, body.Group["member_count"])
		assert.NotContains(t, body.Group, "created_by")
		f.groups.AssertNotCalled(t, "ListMembers", mock.Anything, mock.Anything)
	})

	t.Run("members get the full view", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(viewer))

		f.groups.On("FindByID", mock.Anything, group.ID).Return(group, nil)
		f.groups.On("FindMember", mock.Anything, group.ID, viewer.ID).
			Return(member(group.ID, viewer.ID, models.RoleMember), nil)
		f.groups.On("ListMembers", mock.Anything, group.ID).
			Return([]*models.GroupMember{member(group.ID, viewer.ID, models.RoleMember)}, nil)

		recorder := h.GetJSON("/groups/3")

		var body struct {
			Group   models.Group          `json:"group"`
			Members []*models.GroupMember `json:"members"`
		}
		h.AssertJSONResponse(recorder, http.StatusOK, &body)
		assert.Equal(t, models.RoleMember, body.Group.MyRole)
		assert.Len(t, body.Members, 1)
	})
}

func TestLeaveGroup(t *testing.T) {
	admin := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()
	group := &models.Group{ID: 5, Name: "Crate Diggers", Privacy: models.GroupPublic}

	t.Run("the last admin cannot leave", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(admin))

		f.groups.On("FindByID", mock.Anything, group.ID).Return(group, nil)
		f.groups.On("FindMember", mock.Anything, group.ID, admin.ID).
			Return(member(group.ID, admin.ID, models.RoleAdmin), nil)
		f.groups.On("ListMembers", mock.Anything, group.ID).Return([]*models.GroupMember{
			member(group.ID, admin.ID, models.RoleAdmin),
			member(group.ID, 2, models.RoleMember),
		}, nil)

		recorder := h.PostJSON("/groups/5/leave", nil)

		h.AssertErrorResponse(recorder, http.StatusConflict, "Promote another admin before leaving")
		f.groups.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("an admin with a peer can leave", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(admin))

		f.groups.On("FindByID", mock.Anything, group.ID).Return(group, nil)
		f.groups.On("FindMember", mock.Anything, group.ID, admin.ID).
			Return(member(group.ID, admin.ID, models.RoleAdmin), nil)
		f.groups.On("ListMembers", mock.Anything, group.ID).Return([]*models.GroupMember{
			member(group.ID, admin.ID, models.RoleAdmin),
			member(group.ID, 2, models.RoleAdmin),
		}, nil)
		f.groups.On("RemoveMember", mock.Anything, group.ID, admin.ID).Return(true, nil)

		recorder := h.PostJSON("/groups/5/leave", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		f.groups.AssertExpectations(t)
	})

	t.Run("non-members are turned away", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(admin))

		f.groups.On("FindByID", mock.Anything, group.ID).Return(group, nil)
		f.groups.On("FindMember", mock.Anything, group.ID, admin.ID).Return(nil, nil)

		recorder := h.PostJSON("/groups/5/leave", nil)

		h.AssertErrorResponse(recorder, http.StatusForbidden, "Not a member of this group")
	})
}

func TestRemoveMember(t *testing.T) {
	moderator := testutil.NewUserBuilder().WithID(3).WithUsername("mod").Build()
	group := &models.Group{ID: 7, Name: "Jazz Corner", Privacy: models.GroupPublic}

	setup := func(f *groupHandlerFixture, callerRole string) {
		f.groups.On("FindByID", mock.Anything, group.ID).Return(group, nil)
		f.groups.On("FindMember", mock.Anything, group.ID, moderator.ID).
			Return(member(group.ID, moderator.ID, callerRole), nil)
	}

	t.Run("moderators can remove plain members", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(moderator))

		setup(f, models.RoleModerator)
		f.groups.On("FindMember", mock.Anything, group.ID, int64(8)).
			Return(member(group.ID, 8, models.RoleMember), nil)
		f.groups.On("RemoveMember", mock.Anything, group.ID, int64(8)).Return(true, nil)

		recorder := h.Delete("/groups/7/members/8")

		assert.Equal(t, http.StatusOK, recorder.Code)
		f.groups.AssertExpectations(t)
	})

	t.Run("moderators cannot remove other moderators", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(moderator))

		setup(f, models.RoleModerator)
		f.groups.On("FindMember", mock.Anything, group.ID, int64(8)).
			Return(member(group.ID, 8, models.RoleModerator), nil)

		recorder := h.Delete("/groups/7/members/8")

		h.AssertErrorResponse(recorder, http.StatusForbidden, "Admin role required")
		f.groups.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("plain members cannot moderate", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(moderator))

		setup(f, models.RoleMember)

		recorder := h.Delete("/groups/7/members/8")

		h.AssertErrorResponse(recorder, http.StatusForbidden, "Moderator role required")
	})

	t.Run("removing a non-member is a 404", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(moderator))

		setup(f, models.RoleAdmin)
		f.groups.On("FindMember", mock.Anything, group.ID, int64(8)).Return(nil, nil)

		recorder := h.Delete("/groups/7/members/8")

		h.AssertErrorResponse(recorder, http.StatusNotFound, "Not a member")
	})
}

func TestInvite(t *testing.T) {
	inviter := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()
	group := &models.Group{ID: 4, Name: "Ambient Room", Privacy: models.GroupPrivate}

	setup := func(f *groupHandlerFixture) {
		f.groups.On("FindByID", mock.Anything, group.ID).Return(group, nil)
		f.groups.On("FindMember", mock.Anything, group.ID, inviter.ID).
			Return(member(group.ID, inviter.ID, models.RoleMember), nil)
	}

	t.Run("invite notifies the invitee", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(inviter))

		setup(f)
		f.groups.On("FindMember", mock.Anything, group.ID, int64(6)).Return(nil, nil)
		f.groups.On("FindPendingInvite", mock.Anything, group.ID, int64(6)).Return(nil, nil)
		f.groups.On("CreateInvite", mock.Anything, mock.MatchedBy(func(i *models.GroupInvite) bool {
			return i.InviteeID == 6 && i.InviterID == inviter.ID && i.Status == models.InvitePending
		})).Return(nil)
		f.notifications.On("Create", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
			return n.Type == models.NotificationGroupInvite && n.RecipientID == 6 && n.ActorID == inviter.ID
		})).Return(nil)

		recorder := h.PostJSON("/groups/4/invites", map[string]any{"user_id": 6})

		assert.Equal(t, http.StatusCreated, recorder.Code)
		f.groups.AssertExpectations(t)
		f.notifications.AssertExpectations(t)
	})

	t.Run("inviting an existing member conflicts", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(inviter))

		setup(f)
		f.groups.On("FindMember", mock.Anything, group.ID, int64(6)).
			Return(member(group.ID, 6, models.RoleMember), nil)

		recorder := h.PostJSON("/groups/4/invites", map[string]any{"user_id": 6})

		h.AssertErrorResponse(recorder, http.StatusConflict, "Already a member")
	})

	t.Run("a pending invite is not duplicated", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(inviter))

		setup(f)
		f.groups.On("FindMember", mock.Anything, group.ID, int64(6)).Return(nil, nil)
		f.groups.On("FindPendingInvite", mock.Anything, group.ID, int64(6)).
			Return(&models.GroupInvite{ID: 11, GroupID: group.ID, InviteeID: 6, Status: models.InvitePending}, nil)

		recorder := h.PostJSON("/groups/4/invites", map[string]any{"user_id": 6})

		h.AssertErrorResponse(recorder, http.StatusConflict, "Invite already pending")
		f.groups.AssertNotCalled(t, "CreateInvite", mock.Anything, mock.Anything)
	})
}

func TestRespondInvite(t *testing.T) {
	invitee := testutil.NewUserBuilder().WithID(6).WithUsername("frank").Build()
	invite := &models.GroupInvite{ID: 11, GroupID: 4, InviterID: 1, InviteeID: 6, Status: models.InvitePending}

	t.Run("accepting joins the group as a member", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(invitee))

		f.groups.On("FindInvite", mock.Anything, invite.ID).Return(invite, nil)
		f.groups.On("UpdateInviteStatus", mock.Anything, invite.ID, models.InviteAccepted).Return(nil)
		f.groups.On("AddMember", mock.Anything, invite.GroupID, invitee.ID, models.RoleMember).Return(nil)

		recorder := h.PostJSON("/groups/invites/11/accept", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		f.groups.AssertExpectations(t)
	})

	t.Run("declining never adds a member", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(invitee))

		f.groups.On("FindInvite", mock.Anything, invite.ID).Return(invite, nil)
		f.groups.On("UpdateInviteStatus", mock.Anything, invite.ID, models.InviteDeclined).Return(nil)

		recorder := h.PostJSON("/groups/invites/11/decline", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		f.groups.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("only the invitee can answer", func(t *testing.T) {
		stranger := testutil.NewUserBuilder().WithID(2).WithUsername("eve").Build()
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(stranger))

		f.groups.On("FindInvite", mock.Anything, invite.ID).Return(invite, nil)

		recorder := h.PostJSON("/groups/invites/11/accept", nil)

		h.AssertErrorResponse(recorder, http.StatusNotFound, "Invite not found")
	})

	t.Run("answered invites stay answered", func(t *testing.T) {
		f := newGroupHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(invitee))

		answered := &models.GroupInvite{ID: 12, GroupID: 4, InviteeID: 6, Status: models.InviteAccepted}
		f.groups.On("FindInvite", mock.Anything, answered.ID).Return(answered, nil)

		recorder := h.PostJSON("/groups/invites/12/accept", nil)

		h.AssertErrorResponse(recorder, http.StatusConflict, "Invite already answered")
		f.groups.AssertNotCalled(t, "UpdateInviteStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}
