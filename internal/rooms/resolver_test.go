package rooms

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/teris-io/shortid"

	"github.com/roamhq/roamchat/internal/database"
	"github.com/roamhq/roamchat/internal/testutil"
	"github.com/roamhq/roamchat/internal/types"
)

func TestResolveById(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetRoomByExternalId", "a8f3kZxQ").Return(database.Room{
		Id:         1,
		ExternalId: "a8f3kZxQ",
		CreatorId:  1,
		ReceiverId: 2,
		Kind:       string(types.RoomKindDirect),
		Status:     string(types.RoomStatusAccepted),
	}, nil)

	resolver := NewResolver(testutil.TestLogger(t), mockRepo)

	room, err := resolver.Resolve(ByCanonicalId("a8f3kZxQ"))
	assert.NoError(t, err)
	assert.Equal(t, "a8f3kZxQ", room.ExternalId)
	assert.Equal(t, types.RoomKindDirect, room.Kind)
	mockRepo.AssertExpectations(t)
}

func TestResolveByIdNotFound(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetRoomByExternalId", "missing").Return(database.Room{}, database.ErrNotFound)

	resolver := NewResolver(testutil.TestLogger(t), mockRepo)

	_, err := resolver.Resolve(ByCanonicalId("missing"))
	assert.ErrorIs(t, err, ErrRoomNotFound)
	mockRepo.AssertExpectations(t)
}

func TestResolveOrCreateDirectExisting(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetDirectRoom", "1:2").Return(database.Room{
		Id:         3,
		ExternalId: "x9YkTw2p",
		CreatorId:  1,
		ReceiverId: 2,
		Kind:       string(types.RoomKindDirect),
		Status:     string(types.RoomStatusAccepted),
	}, nil)

	resolver := NewResolver(testutil.TestLogger(t), mockRepo)

	room, err := resolver.Resolve(ByDirectPair(2, 1))
	assert.NoError(t, err)
	assert.Equal(t, "x9YkTw2p", room.ExternalId)
	mockRepo.AssertNotCalled(t, "CreateRoom", mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestResolveOrCreateDirectCreates(t *testing.T) {
	mockRepo := &database.MockRepository{}
	mockRepo.On("GetDirectRoom", "1:2").Return(database.Room{}, database.ErrNotFound)
	mockRepo.On("CreateRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
		return p.PairKey == "1:2" &&
			p.Kind == string(types.RoomKindDirect) &&
			p.Status == string(types.RoomStatusAccepted)
	})).Return(database.Room{
		Id:         4,
		ExternalId: "fresh123",
		CreatorId:  1,
		ReceiverId: 2,
		Kind:       string(types.RoomKindDirect),
		Status:     string(types.RoomStatusAccepted),
	}, nil)

	resolver := NewResolver(testutil.TestLogger(t), mockRepo)

	room, err := resolver.Resolve(ByDirectPair(1, 2))
	assert.NoError(t, err)
	assert.Equal(t, "fresh123", room.ExternalId)
	mockRepo.AssertExpectations(t)
}

func TestResolveOrCreateDirectLostRace(t *testing.T) {
	winning := database.Room{
		Id:         5,
		ExternalId: "winner42",
		CreatorId:  2,
		ReceiverId: 1,
		Kind:       string(types.RoomKindDirect),
		Status:     string(types.RoomStatusAccepted),
	}

	mockRepo := &database.MockRepository{}
	mockRepo.On("GetDirectRoom", "1:2").Return(database.Room{}, database.ErrNotFound).Once()
	mockRepo.On("CreateRoom", mock.Anything).Return(database.Room{}, database.ErrDuplicateRoom)
	mockRepo.On("GetDirectRoom", "1:2").Return(winning, nil).Once()

	resolver := NewResolver(testutil.TestLogger(t), mockRepo)

	room, err := resolver.Resolve(ByDirectPair(1, 2))
	assert.NoError(t, err)
	assert.Equal(t, "winner42", room.ExternalId)
	mockRepo.AssertExpectations(t)
}

func TestResolveOrCreateGroupLostRace(t *testing.T) {
	winning := database.Room{
		Id:         6,
		ExternalId: "grpRoom1",
		CreatorId:  9,
		ReceiverId: 9,
		Kind:       string(types.RoomKindGroup),
		Status:     string(types.RoomStatusAccepted),
	}

	mockRepo := &database.MockRepository{}
	mockRepo.On("GetGroupRoom", 9).Return(database.Room{}, database.ErrNotFound).Once()
	mockRepo.On("CreateRoom", mock.Anything).Return(database.Room{}, database.ErrDuplicateRoom)
	mockRepo.On("GetGroupRoom", 9).Return(winning, nil).Once()

	resolver := NewResolver(testutil.TestLogger(t), mockRepo)

	room, err := resolver.Resolve(ByGroupId(9))
	assert.NoError(t, err)
	assert.Equal(t, "grpRoom1", room.ExternalId)
	assert.Equal(t, types.RoomKindGroup, room.Kind)
	mockRepo.AssertExpectations(t)
}

// racingRepo is an in-memory repository that enforces the direct-pair
// uniqueness the way the database does, for exercising concurrent
// resolution.
type racingRepo struct {
	database.MockRepository
	mu     sync.Mutex
	nextId int
	byPair map[string]database.Room
}

func newRacingRepo() *racingRepo {
	return &racingRepo{byPair: make(map[string]database.Room)}
}

func (r *racingRepo) GetDirectRoom(pairKey string) (database.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.byPair[pairKey]
	if !ok {
		return database.Room{}, database.ErrNotFound
	}
	return room, nil
}

func (r *racingRepo) CreateRoom(params database.CreateRoomParams) (database.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPair[params.PairKey]; ok {
		return database.Room{}, database.ErrDuplicateRoom
	}

	r.nextId++
	room := database.Room{
		Id:         r.nextId,
		ExternalId: params.ExternalId,
		CreatorId:  params.CreatorId,
		ReceiverId: params.ReceiverId,
		Kind:       params.Kind,
		Status:     params.Status,
	}
	r.byPair[params.PairKey] = room
	return room, nil
}

func TestResolveOrCreateDirectConcurrent(t *testing.T) {
	// shortid generation is worker-seeded and safe for concurrent use
	_, err := shortid.Generate()
	assert.NoError(t, err)

	repo := newRacingRepo()
	resolver := NewResolver(testutil.TestLogger(t), repo)

	const n = 16
	results := make(chan types.Room, n)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			var room types.Room
			var err error
			if i%2 == 0 {
				room, err = resolver.ResolveOrCreateDirect(1, 2)
			} else {
				room, err = resolver.ResolveOrCreateDirect(2, 1)
			}
			if err != nil {
				errs <- err
				return
			}
			results <- room
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}

	ids := make(map[string]struct{})
	for room := range results {
		ids[room.ExternalId] = struct{}{}
	}
	assert.Len(t, ids, 1, "all callers must land on the same room")
	assert.Len(t, repo.byPair, 1)
}

func TestResolveInvalidRef(t *testing.T) {
	resolver := NewResolver(testutil.TestLogger(t), &database.MockRepository{})

	_, err := resolver.Resolve(Ref{})
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestResolveByIdRepositoryError(t *testing.T) {
	dbErr := errors.New("connection reset")

	mockRepo := &database.MockRepository{}
	mockRepo.On("GetRoomByExternalId", "a8f3kZxQ").Return(database.Room{}, dbErr)

	resolver := NewResolver(testutil.TestLogger(t), mockRepo)

	_, err := resolver.Resolve(ByCanonicalId("a8f3kZxQ"))
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
}
