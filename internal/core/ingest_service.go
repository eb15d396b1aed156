package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/askroom/askroom-api/internal/store"
)

// IngestStore is the slice of the persistence layer the ingestion flow needs.
type IngestStore interface {
	GetRoom(ctx context.Context, roomID string) (*store.Room, error)
	InsertAudioChunk(ctx context.Context, roomID, transcription string, embedding []float32) (*store.AudioChunk, error)
}

type IngestResult struct {
	ChunkID             string    `json:"chunkId"`
	Transcription       string    `json:"transcription"`
	ProcessedAt         time.Time `json:"processedAt"`
	EmbeddingDimensions int       `json:"embeddingDimensions"`
}

// IngestService turns an uploaded audio payload into a stored chunk:
// transcribe, embed the transcript, persist. Nothing is written unless both
// provider calls succeeded.
type IngestService struct {
	dbStore IngestStore
	gateway AIGateway
}

func NewIngestService(db IngestStore, gateway AIGateway) *IngestService {
	return &IngestService{dbStore: db, gateway: gateway}
}

func (s *IngestService) ProcessAudio(ctx context.Context, roomID string, audio []byte, mimeType string) (*IngestResult, error) {
	if len(audio) == 0 {
		return nil, ErrMissingAudio
	}
	if !isSupportedMediaType(mimeType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, mimeType)
	}
	if _, err := s.dbStore.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	transcription, err := s.gateway.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return nil, err
	}

	embedding, err := s.gateway.Embed(ctx, transcription)
	if err != nil {
		return nil, err
	}

	chunk, err := s.dbStore.InsertAudioChunk(ctx, roomID, transcription, embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to persist audio chunk: %w", err)
	}

	log.Printf("Ingested audio chunk %s for room %s (%d bytes, %d dims)", chunk.ID, roomID, len(audio), len(embedding))

	return &IngestResult{
		ChunkID:             chunk.ID,
		Transcription:       transcription,
		ProcessedAt:         chunk.CreatedAt,
		EmbeddingDimensions: len(embedding),
	}, nil
}

func isSupportedMediaType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/") || strings.HasPrefix(mimeType, "video/")
}
