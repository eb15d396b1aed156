package core

import (
	"context"
	"errors"
	"testing"

	"github.com/askroom/askroom-api/internal/store"
)

type fakeIngestStore struct {
	roomID string
	chunks []store.AudioChunk
}

func (s *fakeIngestStore) GetRoom(ctx context.Context, roomID string) (*store.Room, error) {
	if roomID != s.roomID {
		return nil, store.ErrRoomNotFound
	}
	return &store.Room{ID: roomID}, nil
}

func (s *fakeIngestStore) InsertAudioChunk(ctx context.Context, roomID, transcription string, embedding []float32) (*store.AudioChunk, error) {
	chunk := store.AudioChunk{ID: "chunk-1", RoomID: roomID, Transcription: transcription, Embedding: embedding}
	s.chunks = append(s.chunks, chunk)
	return &chunk, nil
}

func TestProcessAudio_Success(t *testing.T) {
	db := &fakeIngestStore{roomID: "room-1"}
	gw := &fakeGateway{transcription: "aula sobre fotossíntese", embedding: []float32{0.1, 0.2, 0.3}}
	svc := NewIngestService(db, gw)

	result, err := svc.ProcessAudio(context.Background(), "room-1", []byte("audio-bytes"), "audio/webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Transcription != "aula sobre fotossíntese" {
		t.Fatalf("unexpected transcription: %q", result.Transcription)
	}
	if result.EmbeddingDimensions != 3 {
		t.Fatalf("expected 3 dimensions, got %d", result.EmbeddingDimensions)
	}
	if len(db.chunks) != 1 {
		t.Fatalf("expected one stored chunk, got %d", len(db.chunks))
	}
}

func TestProcessAudio_EmptyPayload(t *testing.T) {
	db := &fakeIngestStore{roomID: "room-1"}
	svc := NewIngestService(db, &fakeGateway{})

	_, err := svc.ProcessAudio(context.Background(), "room-1", nil, "audio/webm")
	if !errors.Is(err, ErrMissingAudio) {
		t.Fatalf("expected ErrMissingAudio, got %v", err)
	}
	if len(db.chunks) != 0 {
		t.Fatal("no chunk should be stored for an empty payload")
	}
}

func TestProcessAudio_UnsupportedMimeType(t *testing.T) {
	db := &fakeIngestStore{roomID: "room-1"}
	svc := NewIngestService(db, &fakeGateway{})

	_, err := svc.ProcessAudio(context.Background(), "room-1", []byte("x"), "text/plain")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestProcessAudio_UnknownRoom(t *testing.T) {
	db := &fakeIngestStore{roomID: "room-1"}
	svc := NewIngestService(db, &fakeGateway{})

	_, err := svc.ProcessAudio(context.Background(), "missing", []byte("x"), "audio/webm")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestProcessAudio_TranscriptionFailureLeavesNoRow(t *testing.T) {
	db := &fakeIngestStore{roomID: "room-1"}
	gw := &fakeGateway{transcribeErr: &ProviderError{Op: "transcribe", Err: errors.New("network down")}}
	svc := NewIngestService(db, gw)

	_, err := svc.ProcessAudio(context.Background(), "room-1", []byte("x"), "audio/webm")
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if len(db.chunks) != 0 {
		t.Fatal("no chunk should be stored after a provider failure")
	}
}

func TestProcessAudio_EmbedFailureLeavesNoRow(t *testing.T) {
	db := &fakeIngestStore{roomID: "room-1"}
	gw := &fakeGateway{
		transcription: "transcript",
		embedErr:      &ProviderError{Op: "embed", Err: errors.New("no embedding data received")},
	}
	svc := NewIngestService(db, gw)

	if _, err := svc.ProcessAudio(context.Background(), "room-1", []byte("x"), "audio/webm"); err == nil {
		t.Fatal("expected error")
	}
	if len(db.chunks) != 0 {
		t.Fatal("no chunk should be stored after a provider failure")
	}
}
