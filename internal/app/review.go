package app

import (
	"context"
	"log"
	"sort"
	"strings"

	"ai-interview-service/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the dashboard ordering.
type SortKey string

const (
	SortByScore SortKey = "score" // descending
	SortByName  SortKey = "name"  // ascending, locale-aware
	SortByDate  SortKey = "date"  // createdAt descending
)

// RosterStats summarizes the dashboard header counters.
type RosterStats struct {
	Total        int `json:"total"`
	InProgress   int `json:"inProgress"`
	Completed    int `json:"completed"`
	AverageScore int `json:"averageScore"`
}

// ReviewService is the interviewer-side read view: it filters and sorts the
// roster and merges in archived candidates from past runs. It never mutates
// session state.
type ReviewService struct {
	store    *SessionStore
	archive  CandidateArchive
	collator *collate.Collator
}

func NewReviewService(store *SessionStore) *ReviewService {
	return &ReviewService{
		store:    store,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// SetArchive attaches the persistent archive of completed candidates. Optional.
func (r *ReviewService) SetArchive(a CandidateArchive) {
	r.archive = a
}

// List returns candidates matching the query, ordered by the sort key.
// The query is a case-insensitive substring match on name or email.
func (r *ReviewService) List(ctx context.Context, query string, key SortKey) []domain.Candidate {
	candidates := r.store.Candidates()

	if r.archive != nil {
		seen := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			seen[c.ID] = struct{}{}
		}
		archived, err := r.archive.LoadCompleted(ctx)
		if err != nil {
			// The live roster is still useful; archived rows are additive.
			log.Printf("load archived candidates: %v", err)
		}
		for _, c := range archived {
			if _, ok := seen[c.ID]; !ok {
				candidates = append(candidates, c)
			}
		}
	}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		filtered := candidates[:0]
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.Name), q) ||
				strings.Contains(strings.ToLower(c.Email), q) {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	r.sortCandidates(candidates, key)
	return candidates
}

// Candidate returns the detail view for one candidate, consulting the
// archive when the id is not in the live roster.
func (r *ReviewService) Candidate(ctx context.Context, candidateID string) (domain.Candidate, bool) {
	if c, ok := r.store.Candidate(candidateID); ok {
		return c, true
	}
	if r.archive == nil {
		return domain.Candidate{}, false
	}
	archived, err := r.archive.LoadCompleted(ctx)
	if err != nil {
		log.Printf("load archived candidates: %v", err)
		return domain.Candidate{}, false
	}
	for _, c := range archived {
		if c.ID == candidateID {
			return c, true
		}
	}
	return domain.Candidate{}, false
}

// Stats aggregates the dashboard counters over the given candidate list.
func Stats(candidates []domain.Candidate) RosterStats {
	stats := RosterStats{Total: len(candidates)}
	sum := 0
	for _, c := range candidates {
		switch c.Status {
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusCompleted:
			stats.Completed++
			sum += c.Score
		}
	}
	if stats.Completed > 0 {
		stats.AverageScore = (sum + stats.Completed/2) / stats.Completed
	}
	return stats
}

func (r *ReviewService) sortCandidates(candidates []domain.Candidate, key SortKey) {
	switch key {
	case SortByName:
		sort.SliceStable(candidates, func(i, j int) bool {
			return r.collator.CompareString(candidates[i].Name, candidates[j].Name) < 0
		})
	case SortByDate:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		})
	default: // SortByScore
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
	}
}
