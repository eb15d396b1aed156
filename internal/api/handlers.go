package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/askroom/askroom-api/internal/auth"
	"github.com/askroom/askroom-api/internal/core"
	"github.com/askroom/askroom-api/internal/store"
)

// maxAudioBytes caps multipart uploads; classroom recordings are chunked on
// the client, so a single payload stays small.
const maxAudioBytes = 25 << 20

type contextKey string

const userIDKey contextKey = "userID"

// identityFrom returns the authenticated user id placed in the context by
// JWTAuthMiddleware.
func identityFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type APIHandler struct {
	roomService   *core.RoomService
	answerService *core.AnswerService
	ingestService *core.IngestService
}

func NewAPIHandler(rooms *core.RoomService, answers *core.AnswerService, ingest *core.IngestService) *APIHandler {
	return &APIHandler{
		roomService:   rooms,
		answerService: answers,
		ingestService: ingest,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, errMsg, detail string) {
	writeJSON(w, status, errorResponse{Error: errMsg, Message: detail})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, label string) {
	var providerErr *core.ProviderError

	switch {
	case errors.Is(err, core.ErrEmptyQuestion),
		errors.Is(err, core.ErrEmptyRoomName),
		errors.Is(err, core.ErrMissingAudio),
		errors.Is(err, core.ErrUnsupportedMedia),
		errors.Is(err, store.ErrInvalidEmbedding):
		writeError(w, http.StatusBadRequest, label, err.Error())
	case errors.Is(err, store.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "Room not found", "")
	case errors.As(err, &providerErr):
		log.Printf("Provider error (%s): %v", label, err)
		writeError(w, http.StatusBadGateway, label, providerErr.Error())
	default:
		log.Printf("Internal error (%s): %v", label, err)
		writeError(w, http.StatusInternalServerError, label, "")
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Missing Bearer token", "")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		externalUserID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}

		user, err := h.roomService.GetUserByExternalID(r.Context(), externalUserID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", externalUserID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process user identity", "")
			return
		}

		if user == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ExternalUserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "User ID and password are required", "")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process password", "")
		return
	}

	user, err := h.roomService.CreateUser(r.Context(), req.UserID, hashedPassword)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create user", "")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "User ID and password are required", "")
		return
	}

	user, err := h.roomService.GetUserByExternalID(r.Context(), req.UserID)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.UserID, err)
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "")
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "")
		return
	}

	token, err := auth.GenerateJWT(req.UserID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *APIHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err, "Failed to create room")
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

func (h *APIHandler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.ListRooms(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to list rooms")
		return
	}
	if rooms == nil {
		rooms = []store.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *APIHandler) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	if err := h.roomService.DeleteRoom(r.Context(), roomID); err != nil {
		writeServiceError(w, err, "Failed to delete room")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	questions, err := h.roomService.ListQuestions(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, err, "Failed to list questions")
		return
	}
	if questions == nil {
		questions = []store.Question{}
	}
	writeJSON(w, http.StatusOK, questions)
}

type CreateQuestionRequest struct {
	Question string `json:"question"`
}

func (h *APIHandler) CreateQuestionHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	result, err := h.answerService.Ask(r.Context(), roomID, req.Question)
	if err != nil {
		log.Printf("Question from user %s in room %s failed: %v", identityFrom(r), roomID, err)
		writeServiceError(w, err, "Failed to process question")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *APIHandler) UploadAudioHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required", "")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read audio file", err.Error())
		return
	}

	mimeType := header.Header.Get("Content-Type")

	result, err := h.ingestService.ProcessAudio(r.Context(), roomID, audio, mimeType)
	if err != nil {
		log.Printf("Audio upload from user %s to room %s failed: %v", identityFrom(r), roomID, err)
		writeServiceError(w, err, "Failed to process audio")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
