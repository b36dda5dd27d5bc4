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

type userHandlerFixture struct {
	users         *testutil.MockUserRepository
	notifications *testutil.MockNotificationRepository
	handler       *UserHandler
}

func newUserHandlerFixture() *userHandlerFixture {
	f := &userHandlerFixture{
		users:         new(testutil.MockUserRepository),
		notifications: new(testutil.MockNotificationRepository),
	}
	f.handler = NewUserHandler(f.users, nil, services.NewNotificationService(f.notifications))
	return f
}

func TestFollow(t *testing.T) {
	follower := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()
	target := testutil.NewUserBuilder().WithID(2).WithUsername("bob").Build()

	newRouter := func(f *userHandlerFixture) *gin.Engine {
		router := gin.New()
		router.POST("/users/:id/follow", asUser(follower), f.handler.Follow)
		return router
	}

	t.Run("follow notifies the target", func(t *testing.T) {
		f := newUserHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(newRouter(f))

		f.users.On("FindByID", mock.Anything, target.ID).Return(target, nil)
		f.users.On("Follow", mock.Anything, follower.ID, target.ID).Return(nil)
		f.notifications.On("Create", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
			return n.Type == models.NotificationFollow && n.RecipientID == target.ID && n.ActorID == follower.ID
		})).Return(nil)

		recorder := h.PostJSON("/users/2/follow", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		f.users.AssertExpectations(t)
		f.notifications.AssertExpectations(t)
	})

	t.Run("self-follow is rejected", func(t *testing.T) {
		f := newUserHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(newRouter(f))

		recorder := h.PostJSON("/users/1/follow", nil)

		h.AssertErrorResponse(recorder, http.StatusBadRequest, "Cannot follow yourself")
		f.users.AssertNotCalled(t, "Follow", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown target is a 404", func(t *testing.T) {
		f := newUserHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(newRouter(f))

		f.users.On("FindByID", mock.Anything, int64(99)).Return(nil, nil)

		recorder := h.PostJSON("/users/99/follow", nil)

		h.AssertErrorResponse(recorder, http.StatusNotFound, "User not found")
	})
}

func TestSearchUsers(t *testing.T) {
	f := newUserHandlerFixture()
	h := testutil.NewHTTPTestHelper(t)
	router := gin.New()
	router.GET("/users/search", f.handler.Search)
	h.SetRouter(router)

	t.Run("requires a query", func(t *testing.T) {
		recorder := h.GetJSON("/users/search")
		h.AssertErrorResponse(recorder, http.StatusBadRequest, "q is required")
	})

	t.Run("returns public profiles only", func(t *testing.T) {
		found := testutil.NewUserBuilder().WithID(5).WithUsername("daisy").WithEmail("daisy@example.com").Build()
		f.users.On("Search", mock.Anything, "dai", defaultPageSize).Return([]*models.User{found}, nil)

		recorder := h.GetJSON("/users/search?q=dai")

		var body struct {
			Users []map[string]any `json:"users"`
		}
		h.AssertJSONResponse(recorder, http.StatusOK, &body)
		if assert.Len(t, body.Users, 1) {
			assert.Equal(t, "daisy", body.Users[0]["username"])
			assert.NotContains(t, body.Users[0], "email")
		}
	})
}

func TestUploadWithoutStorageConfigured(t *testing.T) {
	f := newUserHandlerFixture()
	h := testutil.NewHTTPTestHelper(t)
	user := testutil.NewUserBuilder().Build()
	router := gin.New()
	router.POST("/users/me/profile-picture", asUser(user), f.handler.UploadProfilePicture)
	h.SetRouter(router)

	recorder := h.PostJSON("/users/me/profile-picture", nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
