package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"soundscore/internal/models"
	"soundscore/internal/testutil"
)

type dmHandlerFixture struct {
	dms     *testutil.MockDMRepository
	users   *testutil.MockUserRepository
	handler *DMHandler
}

func newDMHandlerFixture() *dmHandlerFixture {
	f := &dmHandlerFixture{
		dms:   new(testutil.MockDMRepository),
		users: new(testutil.MockUserRepository),
	}
	f.handler = NewDMHandler(f.dms, f.users, nil, nil)
	return f
}

func (f *dmHandlerFixture) router(user *models.User) *gin.Engine {
	router := gin.New()
	dm := router.Group("/dm", asUser(user))
	dm.POST("/conversations", f.handler.StartConversation)
	dm.POST("/conversations/:id/messages", f.handler.SendMessage)
	dm.POST("/conversations/:id/image", f.handler.UploadImage)
	dm.POST("/conversations/:id/read", f.handler.MarkRead)
	dm.GET("/unread-count", f.handler.UnreadCount)
	return router
}

func conversationBetween(id, user1, user2 int64) *models.Conversation {
	return &models.Conversation{ID: id, User1ID: user1, User2ID: user2}
}

func TestStartConversation(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()

	t.Run("opens a thread with another user", func(t *testing.T) {
		f := newDMHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(user))

		other := testutil.NewUserBuilder().WithID(2).WithUsername("bob").Build()
		f.users.On("FindByID", mock.Anything, int64(2)).Return(other, nil)
		f.dms.On("GetOrCreateConversation", mock.Anything, int64(1), int64(2)).
			Return(conversationBetween(3, 1, 2), nil)

		recorder := h.PostJSON("/dm/conversations", gin.H{"user_id": 2})

		var conversation models.Conversation
		h.AssertJSONResponse(recorder, http.StatusOK, &conversation)
		assert.Equal(t, int64(3), conversation.ID)
		assert.Equal(t, "bob", conversation.OtherUser.Username)
	})

	t.Run("rejects messaging yourself", func(t *testing.T) {
		f := newDMHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(user))

		recorder := h.PostJSON("/dm/conversations", gin.H{"user_id": 1})
		h.AssertErrorResponse(recorder, http.StatusBadRequest, "Cannot message yourself")
	})
}

func TestSendMessage(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()

	t.Run("stores a message on the thread", func(t *testing.T) {
		f := newDMHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(user))

		f.dms.On("FindConversation", mock.Anything, int64(3)).
			Return(conversationBetween(3, 1, 2), nil)
		f.dms.On("CreateMessage", mock.Anything, mock.AnythingOfType("*models.DirectMessage")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.DirectMessage).ID = 10
			}).Return(nil)

		recorder := h.PostJSON("/dm/conversations/3/messages", gin.H{"text": "  hey  "})

		var msg models.DirectMessage
		h.AssertJSONResponse(recorder, http.StatusCreated, &msg)
		assert.Equal(t, int64(10), msg.ID)
		assert.Equal(t, "hey", msg.Text)
		assert.Equal(t, int64(1), msg.SenderID)
		f.dms.AssertExpectations(t)
	})

	t.Run("hides threads the sender does not belong to", func(t *testing.T) {
		f := newDMHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(user))

		f.dms.On("FindConversation", mock.Anything, int64(3)).
			Return(conversationBetween(3, 4, 5), nil)

		recorder := h.PostJSON("/dm/conversations/3/messages", gin.H{"text": "hey"})
		h.AssertErrorResponse(recorder, http.StatusNotFound, "Conversation not found")
		f.dms.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})

	t.Run("rejects messages with no content", func(t *testing.T) {
		f := newDMHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(user))

		recorder := h.PostJSON("/dm/conversations/3/messages", gin.H{"text": "   "})
		h.AssertErrorResponse(recorder, http.StatusBadRequest, "Message is empty")
	})

	t.Run("accepts an image without text", func(t *testing.T) {
		f := newDMHandlerFixture()
		h := testutil.NewHTTPTestHelper(t)
		h.SetRouter(f.router(user))

		f.dms.On("FindConversation", mock.Anything, int64(3)).
			Return(conversationBetween(3, 1, 2), nil)
		f.dms.On("CreateMessage", mock.Anything, mock.AnythingOfType("*models.DirectMessage")).Return(nil)

		recorder := h.PostJSON("/dm/conversations/3/messages",
			gin.H{"image_url": "https://cdn.example/pic.jpg"})

		var msg models.DirectMessage
		h.AssertJSONResponse(recorder, http.StatusCreated, &msg)
		assert.Equal(t, "https://cdn.example/pic.jpg", msg.ImageURL)
	})
}

func TestUploadDMImageWithoutStorage(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(1).Build()
	f := newDMHandlerFixture()
	h := testutil.NewHTTPTestHelper(t)
	h.SetRouter(f.router(user))

	recorder := h.PostJSON("/dm/conversations/3/image", nil)
	h.AssertErrorResponse(recorder, http.StatusServiceUnavailable, "not configured")
}

func TestUnreadCount(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(1).Build()
	f := newDMHandlerFixture()
	h := testutil.NewHTTPTestHelper(t)
	h.SetRouter(f.router(user))

	f.dms.On("UnreadCount", mock.Anything, int64(1)).Return(4, nil)

	recorder := h.GetJSON("/dm/unread-count")

	var body map[string]int
	h.AssertJSONResponse(recorder, http.StatusOK, &body)
	assert.Equal(t, 4, body["unread"])
}

func TestMarkReadEndpoint(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(1).Build()
	f := newDMHandlerFixture()
	h := testutil.NewHTTPTestHelper(t)
	h.SetRouter(f.router(user))

	f.dms.On("FindConversation", mock.Anything, int64(3)).
		Return(conversationBetween(3, 1, 2), nil)
	f.dms.On("MarkRead", mock.Anything, int64(3), int64(1)).Return(nil)

	recorder := h.PostJSON("/dm/conversations/3/read", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	f.dms.AssertExpectations(t)
}
