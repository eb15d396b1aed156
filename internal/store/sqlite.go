package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/askroom/askroom-api/internal/utils"
)

type SQLiteStore struct {
	db         *sql.DB
	dimensions int
}

func NewSQLiteStore(dataSourceName string, dimensions int) (*SQLiteStore, error) {
	// Foreign keys are off by default in SQLite and cascade deletes depend
	// on them; the DSN parameter enables them on every pooled connection.
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dataSourceName+sep+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps writes serialized and makes ":memory:"
	// behave as one database instead of one per connection.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, dimensions: dimensions}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS rooms (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS questions (
        id TEXT PRIMARY KEY, -- UUID
        room_id TEXT NOT NULL,
        question TEXT NOT NULL,
        answer TEXT NOT NULL,
        has_context BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (room_id) REFERENCES rooms (id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS audio_chunks (
        id TEXT PRIMARY KEY, -- UUID
        room_id TEXT NOT NULL,
        transcription TEXT NOT NULL,
        embedding_json TEXT NOT NULL, -- JSON-encoded []float32
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (room_id) REFERENCES rooms (id) ON DELETE CASCADE
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetUserByExternalID(ctx context.Context, externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, "SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = ?", externalUserID).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, externalUserID, passwordHash string) (*User, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (external_user_id, password_hash) VALUES (?, ?)", externalUserID, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()

	var user User
	err = s.db.QueryRowContext(ctx, "SELECT id, external_user_id, password_hash, created_at FROM users WHERE id = ?", id).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Room methods
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, description string) (*Room, error) {
	roomID := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, "INSERT INTO rooms (id, name, description, created_at) VALUES (?, ?, ?, ?)", roomID, name, description, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}
	return &Room{ID: roomID, Name: name, Description: description, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var room Room
	err := s.db.QueryRowContext(ctx, "SELECT id, name, description, created_at FROM rooms WHERE id = ?", roomID).Scan(&room.ID, &room.Name, &room.Description, &room.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return &room, nil
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, description, created_at FROM rooms ORDER BY created_at DESC, id DESC")
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

func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *SQLiteStore) roomExists(ctx context.Context, roomID string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM rooms WHERE id = ?)", roomID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if !exists {
		return ErrRoomNotFound
	}
	return nil
}

// Question methods
func (s *SQLiteStore) InsertQuestion(ctx context.Context, roomID, question, answer string, hasContext bool) (*Question, error) {
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	q := Question{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		Question:   question,
		Answer:     answer,
		HasContext: hasContext,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, "INSERT INTO questions (id, room_id, question, answer, has_context, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		q.ID, q.RoomID, q.Question, q.Answer, q.HasContext, q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert question: %w", err)
	}
	return &q, nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, roomID string) ([]Question, error) {
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, room_id, question, answer, has_context, created_at FROM questions WHERE room_id = ? ORDER BY created_at ASC, id ASC", roomID)
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
func (s *SQLiteStore) InsertAudioChunk(ctx context.Context, roomID, transcription string, embedding []float32) (*AudioChunk, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidEmbedding, len(embedding), s.dimensions)
	}
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	embeddingBytes, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	chunk := AudioChunk{
		ID:            uuid.NewString(),
		RoomID:        roomID,
		Transcription: transcription,
		Embedding:     embedding,
		CreatedAt:     time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO audio_chunks (id, room_id, transcription, embedding_json, created_at) VALUES (?, ?, ?, ?, ?)",
		chunk.ID, chunk.RoomID, chunk.Transcription, string(embeddingBytes), chunk.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert audio chunk: %w", err)
	}
	return &chunk, nil
}

func (s *SQLiteStore) CountAudioChunks(ctx context.Context, roomID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audio_chunks WHERE room_id = ?", roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audio chunks: %w", err)
	}
	return count, nil
}

// FindSimilarChunks is a brute-force nearest-neighbor scan: similarity is
// computed in Go over every chunk in the room. rowid preserves insertion
// order so that equal similarities rank deterministically.
func (s *SQLiteStore) FindSimilarChunks(ctx context.Context, roomID string, query []float32, threshold float32, limit int) ([]SimilarChunk, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidEmbedding, len(query), s.dimensions)
	}
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, transcription, embedding_json FROM audio_chunks WHERE room_id = ? ORDER BY rowid ASC", roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audio chunks: %w", err)
	}
	defer rows.Close()

	var scored []SimilarChunk
	for rows.Next() {
		var (
			chunk         SimilarChunk
			embeddingJSON string
		)
		if err := rows.Scan(&chunk.ID, &chunk.Transcription, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audio chunk row: %w", err)
		}

		var embedding []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
			log.Printf("Warning: failed to unmarshal embedding for chunk %s: %v. Skipping.", chunk.ID, err)
			continue
		}

		similarity, err := utils.CosineSimilarity(query, embedding)
		if err != nil {
			log.Printf("Warning: failed to score chunk %s: %v. Skipping.", chunk.ID, err)
			continue
		}

		if similarity > threshold {
			chunk.Similarity = similarity
			scored = append(scored, chunk)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audio chunks: %w", err)
	}

	// Stable sort keeps insertion order for equal similarities.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
