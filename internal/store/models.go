package store

import "time"

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	PasswordHash   string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt      time.Time `json:"created_at"`
}

type Room struct {
	ID          string    `json:"id"` // UUID
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Question struct {
	ID         string    `json:"id"` // UUID
	RoomID     string    `json:"room_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	HasContext bool      `json:"has_context"`
	CreatedAt  time.Time `json:"created_at"`
}

type AudioChunk struct {
	ID            string    `json:"id"` // UUID
	RoomID        string    `json:"room_id"`
	Transcription string    `json:"transcription"`
	Embedding     []float32 `json:"-"` // Internal, never marshalled into responses
	CreatedAt     time.Time `json:"created_at"`
}

// SimilarChunk is one row of a similarity query: a chunk's transcription and
// its cosine similarity to the query embedding.
type SimilarChunk struct {
	ID            string  `json:"id"`
	Transcription string  `json:"transcription"`
	Similarity    float32 `json:"similarity"`
}
