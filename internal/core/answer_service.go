package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/askroom/askroom-api/internal/store"
)

// AnswerStore is the slice of the persistence layer the answer flow needs.
type AnswerStore interface {
	GetRoom(ctx context.Context, roomID string) (*store.Room, error)
	FindSimilarChunks(ctx context.Context, roomID string, query []float32, threshold float32, limit int) ([]store.SimilarChunk, error)
	InsertQuestion(ctx context.Context, roomID, question, answer string, hasContext bool) (*store.Question, error)
}

type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Answer        string `json:"answer"`
	HasContext    bool   `json:"hasContext"`
	ContextChunks int    `json:"contextChunks"`
	ContextInfo   string `json:"contextInfo"`
}

// AnswerService answers questions against a room: it embeds the question,
// retrieves the most similar transcribed chunks, and generates either a
// grounded or a general answer. The question row is only written after a
// successful generation.
type AnswerService struct {
	dbStore   AnswerStore
	gateway   AIGateway
	threshold float32
	limit     int
}

func NewAnswerService(db AnswerStore, gateway AIGateway, similarityThreshold float32, maxContextChunks int) *AnswerService {
	return &AnswerService{
		dbStore:   db,
		gateway:   gateway,
		threshold: similarityThreshold,
		limit:     maxContextChunks,
	}
}

func (s *AnswerService) Ask(ctx context.Context, roomID, question string) (*AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if _, err := s.dbStore.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	queryEmbedding, err := s.gateway.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	chunks, err := s.dbStore.FindSimilarChunks(ctx, roomID, queryEmbedding, s.threshold, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar chunks: %w", err)
	}

	var (
		answer     string
		hasContext = len(chunks) > 0
	)

	if hasContext {
		transcriptions := make([]string, len(chunks))
		for i, chunk := range chunks {
			transcriptions[i] = chunk.Transcription
		}
		answer, err = s.gateway.AnswerWithContext(ctx, question, transcriptions)
	} else {
		answer, err = s.gateway.AnswerGeneral(ctx, question)
	}
	if err != nil {
		return nil, err
	}

	inserted, err := s.dbStore.InsertQuestion(ctx, roomID, question, answer, hasContext)
	if err != nil {
		// The answer was generated but could not be stored; the caller has
		// to resubmit, there is no retry queue.
		return nil, fmt.Errorf("failed to persist question: %w", err)
	}

	log.Printf("Answered question %s in room %s (context chunks: %d)", inserted.ID, roomID, len(chunks))

	return &AnswerResult{
		QuestionID:    inserted.ID,
		Answer:        answer,
		HasContext:    hasContext,
		ContextChunks: len(chunks),
		ContextInfo:   contextInfo(len(chunks)),
	}, nil
}

func contextInfo(chunks int) string {
	if chunks > 0 {
		return fmt.Sprintf("Based on %d audio chunk(s) from the class", chunks)
	}
	return "General answer - upload class content for more specific responses"
}
