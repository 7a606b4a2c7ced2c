package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/roamhq/roamchat/internal/auth"
	"github.com/roamhq/roamchat/internal/config"
	"github.com/roamhq/roamchat/internal/database"
	"github.com/roamhq/roamchat/internal/messages"
	"github.com/roamhq/roamchat/internal/rooms"
	"github.com/roamhq/roamchat/internal/testutil"
	"github.com/roamhq/roamchat/internal/types"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

var dbDirectRoom = database.Room{
	Id:         7,
	ExternalId: "a8f3kZxQ",
	CreatorId:  1,
	ReceiverId: 2,
	Kind:       "direct",
	Status:     "accepted",
}

func newTestApp(t *testing.T, repo database.Repository) *App {
	t.Helper()

	logger := testutil.TestLogger(t)
	tokens := auth.NewTokenManager(testSigningKey)

	cfg, err := config.NewConfig("localhost:0", "test-dsn",
		base64.StdEncoding.EncodeToString(testSigningKey),
		[]string{"http://localhost:3000"})
	if err != nil {
		t.Fatal(err)
	}

	return NewApp(
		http.NewServeMux(),
		logger,
		nil, // no gateway, the REST surface must stand alone
		repo,
		rooms.NewResolver(logger, repo),
		rooms.NewGuard(logger, repo),
		messages.NewStore(logger, repo),
		tokens,
		cfg,
	)
}

func bearerFor(t *testing.T, accountId int) string {
	t.Helper()

	token, err := auth.NewTokenManager(testSigningKey).Issue(accountId, auth.RoleMember, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	return "Bearer " + token
}

func doRequest(app *App, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.mux.Handler.ServeHTTP(w, req)
	return w
}

func TestSessionRequiresToken(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	w := doRequest(app, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = doRequest(app, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionTokenQueryFallback(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetAccountById", 1).Return(database.Account{Id: 1, Username: "ada"}, nil)

	app := newTestApp(t, mockRepo)

	token, err := auth.NewTokenManager(testSigningKey).Issue(1, auth.RoleMember, time.Hour)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session?token="+token, nil)
	w := doRequest(app, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var user types.User
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&user))
	assert.Equal(t, "ada", user.Username)
}

func TestRegister(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("CreateAccount", mock.MatchedBy(func(p database.CreateAccountParams) bool {
		return p.EmailAddress == "ada@example.com" &&
			p.PasswordHash != "" && p.PasswordHash != "s3cret"
	})).Return(database.Account{
		Id:           1,
		EmailAddress: "ada@example.com",
		Username:     "ada",
	}, nil)

	app := newTestApp(t, mockRepo)

	body := `{"email":"ada@example.com","username":"ada","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	w := doRequest(app, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	mockRepo.AssertExpectations(t)
}

func TestRegisterMissingFields(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{})

	body := `{"email":"ada@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	assert.NoError(t, err)

	mockRepo := &database.MockRepository{}
	mockRepo.On("GetAccountByEmail", "ada@example.com").Return(database.Account{
		Id:           1,
		EmailAddress: "ada@example.com",
		Username:     "ada",
		PasswordHash: hash,
	}, nil)

	app := newTestApp(t, mockRepo)

	body := `{"email":"ada@example.com","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ada", resp.User.Username)

	claims, err := auth.NewTokenManager(testSigningKey).Verify(resp.Token)
	assert.NoError(t, err)
	assert.Equal(t, 1, claims.Sub)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	assert.NoError(t, err)

	mockRepo := &database.MockRepository{}
	mockRepo.On("GetAccountByEmail", "ada@example.com").Return(database.Account{
		Id:           1,
		PasswordHash: hash,
	}, nil)

	app := newTestApp(t, mockRepo)

	body := `{"email":"ada@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPrivateHistory(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetDirectRoom", "1:2").Return(dbDirectRoom, nil)
	mockRepo.On("CountMessages", 7).Return(3, nil)
	mockRepo.On("GetMessagesPage", 7, 2, 0).Return([]database.Message{
		{Id: 3, RoomId: 7, SenderId: 2, Content: "latest"},
		{Id: 2, RoomId: 7, SenderId: 1, Content: "older"},
	}, nil)
	mockRepo.On("GetAccountSummary", mock.Anything).Return(database.AccountSummary{Id: 1}, nil)

	app := newTestApp(t, mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/private/2?limit=2", nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var page types.MessagePage
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 3, page.Data[0].Id)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Pages)
	assert.Equal(t, "a8f3kZxQ", page.Data[0].RoomId)
}

func TestPrivateHistoryBadUserId(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{})

	req := httptest.NewRequest(http.MethodGet, "/api/private/abc", nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrivateHistoryBadPageParam(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{})

	req := httptest.NewRequest(http.MethodGet, "/api/private/2?page=abc", nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHistoryForbidden(t *testing.T) {
	groupRoom := database.Room{
		Id:         8,
		ExternalId: "grpRoom1",
		CreatorId:  9,
		ReceiverId: 9,
		Kind:       "group",
		Status:     "accepted",
	}

	mockRepo := &database.MockRepository{}
	mockRepo.On("GetGroupRoom", 9).Return(groupRoom, nil)
	mockRepo.On("IsGroupMember", 3, 9).Return(false, nil)

	app := newTestApp(t, mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/group/9", nil)
	req.Header.Set("Authorization", bearerFor(t, 3))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	mockRepo.AssertNotCalled(t, "GetMessagesPage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessage(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetRoomByExternalId", "a8f3kZxQ").Return(dbDirectRoom, nil)
	mockRepo.On("CreateMessage", database.CreateMessageParams{
		RoomId:   7,
		SenderId: 1,
		Content:  "hello",
	}).Return(database.Message{Id: 1, RoomId: 7, SenderId: 1, Content: "hello"}, nil)
	mockRepo.On("TouchRoom", 7, mock.Anything).Return(nil)
	mockRepo.On("GetAccountSummary", 1).Return(database.AccountSummary{Id: 1}, nil)

	app := newTestApp(t, mockRepo)

	body := `{"room_id":"a8f3kZxQ","content":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(body))
	req.Header.Set("Authorization", bearerFor(t, 1))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var msg types.Message
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&msg))
	assert.Equal(t, 1, msg.Id)
	assert.Equal(t, "a8f3kZxQ", msg.RoomId)
}

func TestPostMessageEmptyContentAllowed(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetRoomByExternalId", "a8f3kZxQ").Return(dbDirectRoom, nil)
	mockRepo.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
		return p.Content == ""
	})).Return(database.Message{Id: 2, RoomId: 7, SenderId: 1}, nil)
	mockRepo.On("TouchRoom", 7, mock.Anything).Return(nil)
	mockRepo.On("GetAccountSummary", 1).Return(database.AccountSummary{Id: 1}, nil)

	app := newTestApp(t, mockRepo)

	body := `{"room_id":"a8f3kZxQ","content":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(body))
	req.Header.Set("Authorization", bearerFor(t, 1))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPostMessageValidation(t *testing.T) {
	tcases := []struct {
		name string
		body string
	}{
		{
			name: "missing content field",
			body: `{"room_id":"a8f3kZxQ"}`,
		},
		{
			name: "missing room id",
			body: `{"content":"hello"}`,
		},
		{
			name: "malformed json",
			body: `{`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, &database.MockRepository{})

			req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(tc.body))
			req.Header.Set("Authorization", bearerFor(t, 1))
			w := doRequest(app, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPostMessageStranger(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetRoomByExternalId", "a8f3kZxQ").Return(dbDirectRoom, nil)

	app := newTestApp(t, mockRepo)

	body := `{"room_id":"a8f3kZxQ","content":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(body))
	req.Header.Set("Authorization", bearerFor(t, 3))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	mockRepo.AssertNotCalled(t, "CreateMessage", mock.Anything)
}

func TestGetRoom(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetDirectRoom", "1:2").Return(dbDirectRoom, nil)

	app := newTestApp(t, mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms?id=private_1_2", nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var room map[string]any
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&room))
	assert.Equal(t, "a8f3kZxQ", room["id"], "only the canonical id is exposed")
}

func TestGetRoomUnknownCanonicalId(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetRoomByExternalId", "missing").Return(database.Room{}, database.ErrNotFound)

	app := newTestApp(t, mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms?id=missing", nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	w := doRequest(app, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("Ping").Return(nil)

	app := newTestApp(t, mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := doRequest(app, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
