package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgvectorpgx "github.com/pgvector/pgvector-go/pgx"
)

// PostgresStore backs the same contract as SQLiteStore with a pgvector
// column, so similarity ranking runs inside the database. `<=>` is cosine
// distance; similarity is 1 - distance.
type PostgresStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

func NewPostgresStore(ctx context.Context, databaseURL string, dimensions int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvectorpgx.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool, dimensions: dimensions}
	if err = store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS users (
        id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS rooms (
        id UUID PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS questions (
        id UUID PRIMARY KEY,
        room_id UUID NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
        question TEXT NOT NULL,
        answer TEXT NOT NULL,
        has_context BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS audio_chunks (
        id UUID PRIMARY KEY,
        room_id UUID NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
        transcription TEXT NOT NULL,
        embedding vector(%d) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    `, s.dimensions)

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// User methods
func (s *PostgresStore) GetUserByExternalID(ctx context.Context, externalUserID string) (*User, error) {
	var user User
	err := s.pool.QueryRow(ctx, "SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = $1", externalUserID).
		Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, externalUserID, passwordHash string) (*User, error) {
	var user User
	err := s.pool.QueryRow(ctx,
		"INSERT INTO users (external_user_id, password_hash) VALUES ($1, $2) RETURNING id, external_user_id, password_hash, created_at",
		externalUserID, passwordHash).
		Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &user, nil
}

// Room methods
func (s *PostgresStore) CreateRoom(ctx context.Context, name, description string) (*Room, error) {
	room := Room{ID: uuid.NewString(), Name: name, Description: description}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO rooms (id, name, description) VALUES ($1, $2, $3) RETURNING created_at",
		room.ID, room.Name, room.Description).Scan(&room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}
	return &room, nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var room Room
	err := s.pool.QueryRow(ctx, "SELECT id, name, description, created_at FROM rooms WHERE id = $1", roomID).
		Scan(&room.ID, &room.Name, &room.Description, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return &room, nil
}

func (s *PostgresStore) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, description, created_at FROM rooms ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Description, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *PostgresStore) DeleteRoom(ctx context.Context, roomID string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM rooms WHERE id = $1", roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *PostgresStore) roomExists(ctx context.Context, roomID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)", roomID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if !exists {
		return ErrRoomNotFound
	}
	return nil
}

// Question methods
func (s *PostgresStore) InsertQuestion(ctx context.Context, roomID, question, answer string, hasContext bool) (*Question, error) {
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	q := Question{ID: uuid.NewString(), RoomID: roomID, Question: question, Answer: answer, HasContext: hasContext}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO questions (id, room_id, question, answer, has_context) VALUES ($1, $2, $3, $4, $5) RETURNING created_at",
		q.ID, q.RoomID, q.Question, q.Answer, q.HasContext).Scan(&q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert question: %w", err)
	}
	return &q, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, roomID string) ([]Question, error) {
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT id, room_id, question, answer, has_context, created_at FROM questions WHERE room_id = $1 ORDER BY created_at ASC, id ASC", roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.RoomID, &q.Question, &q.Answer, &q.HasContext, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// AudioChunk methods
func (s *PostgresStore) InsertAudioChunk(ctx context.Context, roomID, transcription string, embedding []float32) (*AudioChunk, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidEmbedding, len(embedding), s.dimensions)
	}
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	chunk := AudioChunk{ID: uuid.NewString(), RoomID: roomID, Transcription: transcription, Embedding: embedding}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO audio_chunks (id, room_id, transcription, embedding) VALUES ($1, $2, $3, $4) RETURNING created_at",
		chunk.ID, chunk.RoomID, chunk.Transcription, pgvector.NewVector(embedding)).Scan(&chunk.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert audio chunk: %w", err)
	}
	return &chunk, nil
}

func (s *PostgresStore) CountAudioChunks(ctx context.Context, roomID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audio_chunks WHERE room_id = $1", roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audio chunks: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) FindSimilarChunks(ctx context.Context, roomID string, query []float32, threshold float32, limit int) ([]SimilarChunk, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidEmbedding, len(query), s.dimensions)
	}
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	vec := pgvector.NewVector(query)
	rows, err := s.pool.Query(ctx, `
        SELECT id, transcription, 1 - (embedding <=> $2) AS similarity
        FROM audio_chunks
        WHERE room_id = $1 AND 1 - (embedding <=> $2) > $3
        ORDER BY embedding <=> $2 ASC, created_at ASC, id ASC
        LIMIT $4`,
		roomID, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	defer rows.Close()

	var chunks []SimilarChunk
	for rows.Next() {
		var chunk SimilarChunk
		if err := rows.Scan(&chunk.ID, &chunk.Transcription, &chunk.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan similar chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
