package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/roamhq/roamchat/internal/auth"
	"github.com/roamhq/roamchat/internal/chat"
	"github.com/roamhq/roamchat/internal/database"
	"github.com/roamhq/roamchat/internal/rooms"
	"github.com/roamhq/roamchat/internal/types"
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type PostMessageRequest struct {
	RoomId  string  `json:"room_id"`
	Content *string `json:"content"`
}

func toUser(a database.Account) types.User {
	return types.User{
		Id:           a.Id,
		Username:     a.Username,
		EmailAddress: a.EmailAddress,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Avatar:       a.Avatar,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (s *App) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	account, err := s.db.CreateAccount(database.CreateAccountParams{
		EmailAddress: req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, toUser(account))
}

func (s *App) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if !auth.VerifyPassword(account.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.tokens.Issue(account.Id, auth.RoleMember, auth.DefaultTokenTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  toUser(account),
	})
}

func (s *App) session(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.db.GetAccountById(accountId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, toUser(account))
}

func pageParams(r *http.Request) (page, limit int, err error) {
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err = strconv.Atoi(pageStr); err != nil {
			return 0, 0, err
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return 0, 0, err
		}
	}

	return page, limit, nil
}

// history resolves, authorizes and pages in one pass; both entry
// points return the same shape.
func (s *App) history(w http.ResponseWriter, r *http.Request, ref rooms.Ref) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	page, limit, err := pageParams(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.resolver.Resolve(ref)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.guard.CanAccess(accountId, room); err != nil {
		s.writeError(w, err)
		return
	}

	msgPage, err := s.store.Page(room, page, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, msgPage)
}

func (s *App) privateHistory(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	partnerId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.history(w, r, rooms.ByDirectPair(accountId, partnerId))
}

func (s *App) groupHistory(w http.ResponseWriter, r *http.Request) {
	groupId, err := strconv.Atoi(r.PathValue("groupId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.history(w, r, rooms.ByGroupId(groupId))
}

func (s *App) postMessage(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// an empty content string is accepted; only a missing field is not
	if req.RoomId == "" || req.Content == nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	ref, err := rooms.ParseRef(req.RoomId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	room, err := s.resolver.Resolve(ref)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.guard.CanAccess(accountId, room); err != nil {
		s.writeError(w, err)
		return
	}

	msg, err := s.store.Append(room, accountId, *req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.cs != nil {
		s.cs.BroadcastMessage(room.ExternalId, msg)
	}

	s.writeJson(w, http.StatusCreated, msg)
}

// getRoom resolves any reference form to its canonical room, so
// clients holding only a composite reference or group id can discover
// the channel key.
func (s *App) getRoom(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var ref rooms.Ref
	if groupIdStr := r.URL.Query().Get("group_id"); groupIdStr != "" {
		groupId, err := strconv.Atoi(groupIdStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		ref = rooms.ByGroupId(groupId)
	} else {
		var err error
		ref, err = rooms.ParseRef(r.URL.Query().Get("id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	room, err := s.resolver.Resolve(ref)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.guard.CanAccess(accountId, room); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.db.GetAccountById(accountId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := chat.NewClient(toUser(account), conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
