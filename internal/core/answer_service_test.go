package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/askroom/askroom-api/internal/store"
)

type fakeGateway struct {
	embedding     []float32
	embedErr      error
	groundedErr   error
	generalErr    error
	transcription string
	transcribeErr error

	groundedCalls [][]string
	generalCalls  []string
}

func (g *fakeGateway) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if g.transcribeErr != nil {
		return "", g.transcribeErr
	}
	return g.transcription, nil
}

func (g *fakeGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.embedErr != nil {
		return nil, g.embedErr
	}
	return g.embedding, nil
}

func (g *fakeGateway) AnswerWithContext(ctx context.Context, question string, transcriptions []string) (string, error) {
	if g.groundedErr != nil {
		return "", g.groundedErr
	}
	g.groundedCalls = append(g.groundedCalls, transcriptions)
	return "grounded answer", nil
}

func (g *fakeGateway) AnswerGeneral(ctx context.Context, question string) (string, error) {
	if g.generalErr != nil {
		return "", g.generalErr
	}
	g.generalCalls = append(g.generalCalls, question)
	return "general answer", nil
}

type fakeAnswerStore struct {
	roomID        string
	similar       []store.SimilarChunk
	questions     []store.Question
	gotThreshold  float32
	gotLimit      int
	insertErr     error
	findChunksErr error
}

func (s *fakeAnswerStore) GetRoom(ctx context.Context, roomID string) (*store.Room, error) {
	if roomID != s.roomID {
		return nil, store.ErrRoomNotFound
	}
	return &store.Room{ID: roomID, Name: "physics"}, nil
}

func (s *fakeAnswerStore) FindSimilarChunks(ctx context.Context, roomID string, query []float32, threshold float32, limit int) ([]store.SimilarChunk, error) {
	if s.findChunksErr != nil {
		return nil, s.findChunksErr
	}
	s.gotThreshold = threshold
	s.gotLimit = limit
	out := s.similar
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeAnswerStore) InsertQuestion(ctx context.Context, roomID, question, answer string, hasContext bool) (*store.Question, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	q := store.Question{ID: fmt.Sprintf("q-%d", len(s.questions)+1), RoomID: roomID, Question: question, Answer: answer, HasContext: hasContext}
	s.questions = append(s.questions, q)
	return &q, nil
}

func TestAsk_GeneralPathWhenNoChunks(t *testing.T) {
	db := &fakeAnswerStore{roomID: "room-1"}
	gw := &fakeGateway{embedding: []float32{1, 0, 0}}
	svc := NewAnswerService(db, gw, 0.7, 3)

	result, err := svc.Ask(context.Background(), "room-1", "what is inertia?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasContext {
		t.Fatal("expected hasContext=false for empty room")
	}
	if result.ContextChunks != 0 {
		t.Fatalf("expected 0 context chunks, got %d", result.ContextChunks)
	}
	if result.Answer != "general answer" {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if result.ContextInfo != "General answer - upload class content for more specific responses" {
		t.Fatalf("unexpected context info: %q", result.ContextInfo)
	}
	if len(gw.generalCalls) != 1 || len(gw.groundedCalls) != 0 {
		t.Fatalf("expected exactly one general call, got general=%d grounded=%d", len(gw.generalCalls), len(gw.groundedCalls))
	}
	if len(db.questions) != 1 {
		t.Fatalf("expected one stored question, got %d", len(db.questions))
	}
	if db.questions[0].HasContext {
		t.Fatal("stored question should have has_context=false")
	}
}

func TestAsk_GroundedPathUsesRankedTranscriptions(t *testing.T) {
	db := &fakeAnswerStore{
		roomID: "room-1",
		similar: []store.SimilarChunk{
			{ID: "c1", Transcription: "first passage", Similarity: 0.95},
			{ID: "c2", Transcription: "second passage", Similarity: 0.82},
		},
	}
	gw := &fakeGateway{embedding: []float32{1, 0, 0}}
	svc := NewAnswerService(db, gw, 0.7, 3)

	result, err := svc.Ask(context.Background(), "room-1", "what did the teacher say?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasContext {
		t.Fatal("expected hasContext=true")
	}
	if result.ContextChunks != 2 {
		t.Fatalf("expected 2 context chunks, got %d", result.ContextChunks)
	}
	if result.ContextInfo != "Based on 2 audio chunk(s) from the class" {
		t.Fatalf("unexpected context info: %q", result.ContextInfo)
	}
	if len(gw.groundedCalls) != 1 {
		t.Fatalf("expected one grounded call, got %d", len(gw.groundedCalls))
	}
	got := gw.groundedCalls[0]
	if len(got) != 2 || got[0] != "first passage" || got[1] != "second passage" {
		t.Fatalf("transcriptions not passed in ranked order: %#v", got)
	}
	if !db.questions[0].HasContext {
		t.Fatal("stored question should have has_context=true")
	}
}

func TestAsk_ForwardsThresholdAndLimit(t *testing.T) {
	db := &fakeAnswerStore{roomID: "room-1"}
	gw := &fakeGateway{embedding: []float32{1}}
	svc := NewAnswerService(db, gw, 0.42, 7)

	if _, err := svc.Ask(context.Background(), "room-1", "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.gotThreshold != 0.42 {
		t.Fatalf("expected threshold 0.42, got %f", db.gotThreshold)
	}
	if db.gotLimit != 7 {
		t.Fatalf("expected limit 7, got %d", db.gotLimit)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	db := &fakeAnswerStore{roomID: "room-1"}
	svc := NewAnswerService(db, &fakeGateway{}, 0.7, 3)

	_, err := svc.Ask(context.Background(), "room-1", "   ")
	if !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if len(db.questions) != 0 {
		t.Fatal("no question should be stored")
	}
}

func TestAsk_UnknownRoom(t *testing.T) {
	db := &fakeAnswerStore{roomID: "room-1"}
	svc := NewAnswerService(db, &fakeGateway{}, 0.7, 3)

	_, err := svc.Ask(context.Background(), "missing", "q")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestAsk_EmbedFailureLeavesNoRow(t *testing.T) {
	db := &fakeAnswerStore{roomID: "room-1"}
	gw := &fakeGateway{embedErr: &ProviderError{Op: "embed", Err: errors.New("quota exceeded")}}
	svc := NewAnswerService(db, gw, 0.7, 3)

	_, err := svc.Ask(context.Background(), "room-1", "q")
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if len(db.questions) != 0 {
		t.Fatalf("question row count changed after provider failure: %d", len(db.questions))
	}
}

func TestAsk_GenerationFailureLeavesNoRow(t *testing.T) {
	db := &fakeAnswerStore{
		roomID:  "room-1",
		similar: []store.SimilarChunk{{ID: "c1", Transcription: "passage", Similarity: 0.9}},
	}
	gw := &fakeGateway{
		embedding:   []float32{1},
		groundedErr: &ProviderError{Op: "answer", Err: errors.New("empty answer response")},
	}
	svc := NewAnswerService(db, gw, 0.7, 3)

	if _, err := svc.Ask(context.Background(), "room-1", "q"); err == nil {
		t.Fatal("expected error")
	}
	if len(db.questions) != 0 {
		t.Fatalf("question row count changed after provider failure: %d", len(db.questions))
	}
}

func TestAsk_PersistFailureSurfacesError(t *testing.T) {
	db := &fakeAnswerStore{roomID: "room-1", insertErr: errors.New("disk full")}
	gw := &fakeGateway{embedding: []float32{1}}
	svc := NewAnswerService(db, gw, 0.7, 3)

	_, err := svc.Ask(context.Background(), "room-1", "q")
	if err == nil {
		t.Fatal("expected error when persistence fails")
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		t.Fatal("persistence failure must not be reported as a provider error")
	}
}
