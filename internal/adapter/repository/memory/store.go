// Package memory holds in-process repository implementations. They back the
// DB_DRIVER=memory mode and the use-case tests. One mutex guards the whole
// store, which gives multi-row operations the same all-or-nothing behaviour
// as the database transactions.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

// Store keeps every table in maps keyed by id.
type Store struct {
	mu             sync.RWMutex
	organizations  map[uuid.UUID]entities.Organization
	users          map[uuid.UUID]entities.User
	sessions       map[uuid.UUID]entities.Session
	recordings     map[uuid.UUID]entities.Recording
	transcriptions map[uuid.UUID]entities.Transcription // keyed by recording id
	analyses       map[uuid.UUID]entities.AnalysisResult // keyed by recording id
	templates      map[uuid.UUID]entities.ProcessTemplate
	invitations    map[uuid.UUID]entities.Invitation
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		organizations:  make(map[uuid.UUID]entities.Organization),
		users:          make(map[uuid.UUID]entities.User),
		sessions:       make(map[uuid.UUID]entities.Session),
		recordings:     make(map[uuid.UUID]entities.Recording),
		transcriptions: make(map[uuid.UUID]entities.Transcription),
		analyses:       make(map[uuid.UUID]entities.AnalysisResult),
		templates:      make(map[uuid.UUID]entities.ProcessTemplate),
		invitations:    make(map[uuid.UUID]entities.Invitation),
	}
}

func (s *Store) Organizations() *OrganizationRepository   { return &OrganizationRepository{s: s} }
func (s *Store) Users() *UserRepository                   { return &UserRepository{s: s} }
func (s *Store) Sessions() *SessionRepository             { return &SessionRepository{s: s} }
func (s *Store) Recordings() *RecordingRepository         { return &RecordingRepository{s: s} }
func (s *Store) Transcriptions() *TranscriptionRepository { return &TranscriptionRepository{s: s} }
func (s *Store) Analyses() *AnalysisRepository            { return &AnalysisRepository{s: s} }
func (s *Store) Templates() *TemplateRepository           { return &TemplateRepository{s: s} }
func (s *Store) Invitations() *InvitationRepository       { return &InvitationRepository{s: s} }

func stamp(created *time.Time, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// page slices items after sorting with less; order "asc" flips the default
// newest-first ordering.
func page[T any](items []T, filters repositories.Filters, less func(a, b T) bool) []T {
	asc := strings.EqualFold(filters.SortOrder, "asc")
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})
	start := filters.Offset
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if filters.Limit > 0 && start+filters.Limit < end {
		end = start + filters.Limit
	}
	return items[start:end]
}
