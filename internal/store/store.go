package store

import (
	"context"
	"errors"
)

var (
	// ErrRoomNotFound is returned when an operation references a room id
	// that does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidEmbedding is returned when an embedding's dimensionality
	// does not match the store's configured dimension.
	ErrInvalidEmbedding = errors.New("embedding dimensionality mismatch")
)

// Store is the persistence contract shared by the SQLite and Postgres
// backends. All writes are single-row inserts; deleting a room cascades to
// its questions and audio chunks.
type Store interface {
	CreateUser(ctx context.Context, externalUserID, passwordHash string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalUserID string) (*User, error)

	CreateRoom(ctx context.Context, name, description string) (*Room, error)
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, roomID string) error

	InsertQuestion(ctx context.Context, roomID, question, answer string, hasContext bool) (*Question, error)
	ListQuestions(ctx context.Context, roomID string) ([]Question, error)

	InsertAudioChunk(ctx context.Context, roomID, transcription string, embedding []float32) (*AudioChunk, error)
	CountAudioChunks(ctx context.Context, roomID string) (int, error)

	// FindSimilarChunks ranks the room's chunks by cosine similarity to the
	// query embedding, keeps rows strictly above the threshold, orders them
	// by descending similarity (insertion order on ties) and truncates to
	// limit rows.
	FindSimilarChunks(ctx context.Context, roomID string, query []float32, threshold float32, limit int) ([]SimilarChunk, error)

	Close() error
}
