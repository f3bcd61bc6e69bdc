package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"ai-interview-service/internal/app"
	"ai-interview-service/internal/domain"
)

const maxResumeBytes = 10 << 20 // 10 MiB upload cap

// ReviewHandler serves the interviewer dashboard and the intake flow as
// plain JSON endpoints.
type ReviewHandler struct {
	review *app.ReviewService
	intake *app.IntakeService
}

func NewReviewHandler(review *app.ReviewService, intake *app.IntakeService) *ReviewHandler {
	return &ReviewHandler{review: review, intake: intake}
}

// Register mounts the handler's routes.
func (h *ReviewHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /candidates", h.listCandidates)
	mux.HandleFunc("GET /candidates/{id}", h.getCandidate)
	mux.HandleFunc("POST /candidates", h.createCandidate)
	mux.HandleFunc("POST /resume", h.uploadResume)
}

type listResponse struct {
	Candidates []domain.Candidate `json:"candidates"`
	Stats      app.RosterStats    `json:"stats"`
}

func (h *ReviewHandler) listCandidates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sortKey := app.SortKey(r.URL.Query().Get("sort"))
	if sortKey == "" {
		sortKey = app.SortByScore
	}
	candidates := h.review.List(r.Context(), query, sortKey)
	writeJSON(w, http.StatusOK, listResponse{Candidates: candidates, Stats: app.Stats(candidates)})
}

func (h *ReviewHandler) getCandidate(w http.ResponseWriter, r *http.Request) {
	candidate, ok := h.review.Candidate(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownCandidate)
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}

func (h *ReviewHandler) createCandidate(w http.ResponseWriter, r *http.Request) {
	var draft domain.CandidateDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid candidate payload"))
		return
	}
	candidate, err := h.intake.CreateCandidate(draft)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, candidate)
}

func (h *ReviewHandler) uploadResume(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing resume file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxResumeBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("unreadable resume file"))
		return
	}

	draft, err := h.intake.ParseResume(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidFileType), errors.Is(err, domain.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateCandidate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownCandidate):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorPayload{Message: err.Error()})
}
