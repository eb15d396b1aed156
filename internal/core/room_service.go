package core

import (
	"context"
	"strings"

	"github.com/askroom/askroom-api/internal/store"
)

// RoomService covers the simple CRUD surface around rooms and the user
// lookups backing authentication.
type RoomService struct {
	dbStore store.Store
}

func NewRoomService(db store.Store) *RoomService {
	return &RoomService{dbStore: db}
}

func (s *RoomService) GetUserByExternalID(ctx context.Context, externalUserID string) (*store.User, error) {
	return s.dbStore.GetUserByExternalID(ctx, externalUserID)
}

func (s *RoomService) CreateUser(ctx context.Context, externalUserID, passwordHash string) (*store.User, error) {
	return s.dbStore.CreateUser(ctx, externalUserID, passwordHash)
}

func (s *RoomService) CreateRoom(ctx context.Context, name, description string) (*store.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyRoomName
	}
	return s.dbStore.CreateRoom(ctx, name, description)
}

func (s *RoomService) ListRooms(ctx context.Context) ([]store.Room, error) {
	return s.dbStore.ListRooms(ctx)
}

// DeleteRoom removes a room and, through the schema's cascade, all of its
// questions and audio chunks.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) error {
	return s.dbStore.DeleteRoom(ctx, roomID)
}

func (s *RoomService) ListQuestions(ctx context.Context, roomID string) ([]store.Question, error) {
	return s.dbStore.ListQuestions(ctx, roomID)
}
