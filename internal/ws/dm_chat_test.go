package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"soundscore/internal/auth"
	"soundscore/internal/models"
	"soundscore/internal/testutil"
)

func dmSocketServer(t *testing.T, dms *testutil.MockDMRepository, user *models.User) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenService("test-secret", time.Hour, 24*time.Hour, time.Hour)
	users := new(testutil.MockUserRepository)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	handler := NewDMChatHandler(NewHub(), tokens, users, dms)
	router := gin.New()
	router.GET("/ws/dm/:id", handler.Serve)

	pair, err := tokens.IssuePair(user.ID)
	require.NoError(t, err)

	return httptest.NewServer(router), pair.AccessToken
}

func dialPath(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestDMSocketMarksReadOnConnect(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()
	dms := new(testutil.MockDMRepository)
	dms.On("FindConversation", mock.Anything, int64(3)).
		Return(&models.Conversation{ID: 3, User1ID: 1, User2ID: 2}, nil)
	dms.On("MarkRead", mock.Anything, int64(3), int64(1)).Return(nil)

	server, token := dmSocketServer(t, dms, user)
	defer server.Close()

	conn := dialPath(t, server, "/ws/dm/3?token="+token)
	defer conn.Close()

	assert.Equal(t, TypeUserJoined, readFrame(t, conn).Type)
	assert.Equal(t, TypeOnlineUsers, readFrame(t, conn).Type)

	// Opening the socket reads the thread and tells the room
	receipt := readFrame(t, conn)
	assert.Equal(t, TypeRead, receipt.Type)
	assert.Equal(t, int64(1), receipt.UserID)

	dms.AssertNumberOfCalls(t, "MarkRead", 1)
}

func TestDMSocketReadFrame(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(1).WithUsername("alice").Build()
	dms := new(testutil.MockDMRepository)
	dms.On("FindConversation", mock.Anything, int64(3)).
		Return(&models.Conversation{ID: 3, User1ID: 1, User2ID: 2}, nil)
	dms.On("MarkRead", mock.Anything, int64(3), int64(1)).Return(nil)

	server, token := dmSocketServer(t, dms, user)
	defer server.Close()

	conn := dialPath(t, server, "/ws/dm/3?token="+token)
	defer conn.Close()

	readFrame(t, conn) // user_joined
	readFrame(t, conn) // online_users
	readFrame(t, conn) // read on connect

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeRead}))
	receipt := readFrame(t, conn)
	assert.Equal(t, TypeRead, receipt.Type)
	assert.Equal(t, int64(1), receipt.UserID)

	dms.AssertNumberOfCalls(t, "MarkRead", 2)
}

func TestDMSocketRejectsNonParticipant(t *testing.T) {
	user := testutil.NewUserBuilder().WithID(9).WithUsername("mallory").Build()
	dms := new(testutil.MockDMRepository)
	dms.On("FindConversation", mock.Anything, int64(3)).
		Return(&models.Conversation{ID: 3, User1ID: 1, User2ID: 2}, nil)

	server, token := dmSocketServer(t, dms, user)
	defer server.Close()

	conn := dialPath(t, server, "/ws/dm/3?token="+token)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, CloseNotAMember))
	dms.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}
