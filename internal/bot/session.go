// Package bot implements the conversational front-end: a per-chat finite
// state machine over the backend request API, rendered through a chat
// gateway.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vodchyts/repairdesk/internal/models"
)

// State identifies the current node of a chat's conversation.
type State int

const (
	// StateIdle means no flow is active.
	StateIdle State = iota

	// Browse family.
	StateMainMenu
	StateSetSearchTerm
	StateSetSorting
	StateDetails
	StateAddComment
	StateAddPhoto

	// Editor family (shared between create and edit).
	StateEditorMain
	StateSelectShop
	StateSelectContractor
	StateSelectWork
	StateSelectUrgency
	StateSelectStatus
	StateInputText
)

// InputTarget disambiguates what StateInputText is collecting.
type InputTarget int

const (
	InputNone InputTarget = iota
	InputDescription
	InputCustomDays
)

// EditorMode selects create vs. update on save.
type EditorMode int

const (
	ModeCreate EditorMode = iota
	ModeEdit
)

// SortKey is one entry of the active sort list.
type SortKey struct {
	Field string
	Desc  bool
}

// String renders the key in backend wire form ("requestID,desc").
func (k SortKey) String() string {
	dir := "asc"
	if k.Desc {
		dir = "desc"
	}
	return k.Field + "," + dir
}

// defaultSortField is the canonical single-key order applied when the sort
// list would otherwise be empty.
const defaultSortField = "requestID"

// ViewFilters is the user's current list view: archive toggle, search term,
// ordered multi-key sort, and display page. The sort list is never empty
// and a field appears in it at most once.
type ViewFilters struct {
	Archived   bool
	SearchTerm string
	Sort       []SortKey
	Page       int
}

// DefaultFilters returns the entry filter state: unarchived, page 0,
// single default sort key.
func DefaultFilters() ViewFilters {
	return ViewFilters{Sort: []SortKey{{Field: defaultSortField, Desc: true}}}
}

// CacheKey serializes every filter except the page in a canonical order.
// The sort list serializes order-sensitively.
func (f ViewFilters) CacheKey() string {
	parts := make([]string, 0, len(f.Sort))
	for _, k := range f.Sort {
		parts = append(parts, k.String())
	}
	return fmt.Sprintf("archived=%t|search=%s|sort=%s",
		f.Archived, f.SearchTerm, strings.Join(parts, ";"))
}

// SortStrings returns the sort list in backend wire form.
func (f ViewFilters) SortStrings() []string {
	out := make([]string, len(f.Sort))
	for i, k := range f.Sort {
		out[i] = k.String()
	}
	return out
}

// SetSort adds a sort key, replacing any existing entry for the same field
// in place so no field ever appears twice.
func (f *ViewFilters) SetSort(field string, desc bool) {
	for i, k := range f.Sort {
		if k.Field == field {
			f.Sort[i].Desc = desc
			return
		}
	}
	f.Sort = append(f.Sort, SortKey{Field: field, Desc: desc})
}

// RemoveSort drops the entry for field, restoring the default key if the
// list would become empty.
func (f *ViewFilters) RemoveSort(field string) {
	out := f.Sort[:0]
	for _, k := range f.Sort {
		if k.Field != field {
			out = append(out, k)
		}
	}
	f.Sort = out
	if len(f.Sort) == 0 {
		f.Sort = []SortKey{{Field: defaultSortField, Desc: true}}
	}
}

// SortPosition returns the 1-based position of field in the active sort
// list, or 0 when inactive.
func (f ViewFilters) SortPosition(field string) (int, bool) {
	for i, k := range f.Sort {
		if k.Field == field {
			return i + 1, k.Desc
		}
	}
	return 0, false
}

// DatasetCache is the fully fetched, sorted working set for one filter
// combination. Valid only while Key matches the current filters minus page.
type DatasetCache struct {
	Key     string
	Records []models.Request
}

// EditorDraft stages the editable fields of a request, with denormalized
// display names so renders never refetch dictionaries.
type EditorDraft struct {
	RequestID      int64 // 0 while creating
	ShopID         int64
	ShopName       string
	ContractorID   int64
	ContractorName string
	WorkID         int64
	WorkName       string
	UrgencyID      int64
	UrgencyName    string
	CustomDays     *int
	Description    string
	Status         string // edit mode only; empty means unchanged
}

// Ready reports whether every required field is populated. Evaluated on
// each render, not just at save time.
func (d *EditorDraft) Ready() bool {
	return d != nil &&
		d.ShopID != 0 &&
		d.ContractorID != 0 &&
		d.WorkID != 0 &&
		d.UrgencyID != 0 &&
		d.Description != ""
}

// Dictionaries is the per-session snapshot of reference lists, loaded once
// at editor entry. Staleness over a long session is accepted.
type Dictionaries struct {
	Shops       []models.Shop
	Contractors []models.Contractor
	Works       []models.WorkCategory
	Urgencies   []models.Urgency
}

// Session is all conversation state for one chat. It is mutated only by
// the handler currently processing an event for that chat; background work
// runs on the session's cancellable scope so Clear can stop it.
type Session struct {
	ChatID int64
	UserID int64
	User   *models.UserInfo

	State   State
	Filters ViewFilters
	Cache   *DatasetCache

	Mode  EditorMode
	Draft *EditorDraft
	Dicts *Dictionaries
	Input InputTarget

	// Message bookkeeping for edits and deferred cleanup.
	MainMessageID    int
	PromptMessageID  int
	PickerPage       int
	CurrentRequestID int64

	LastActive time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Go runs fn on the session's background scope. The context passed to fn
// is cancelled when the session is cleared.
func (s *Session) Go(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// InvalidateCache drops the dataset cache.
func (s *Session) InvalidateCache() {
	s.Cache = nil
}

// ResetFilters restores defaults and invalidates the cache.
func (s *Session) ResetFilters() {
	s.Filters = DefaultFilters()
	s.InvalidateCache()
}

// SessionStore maps chat IDs to sessions. Lifecycle: create on first
// touch, clear on explicit cancel (or sweep), no other eviction.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the session for chatID, creating it on first touch, and
// refreshes its activity timestamp.
func (st *SessionStore) Get(chatID, userID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		s = &Session{
			ChatID:  chatID,
			UserID:  userID,
			State:   StateIdle,
			Filters: DefaultFilters(),
			ctx:     ctx,
			cancel:  cancel,
		}
		st.sessions[chatID] = s
	}
	s.LastActive = time.Now()
	return s
}

// Peek returns the session for chatID without creating one.
func (st *SessionStore) Peek(chatID int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	return s, ok
}

// Clear removes the session, cancels its background scope, and waits for
// pending cleanup and debounce tasks to finish, so teardown is
// deterministic.
func (st *SessionStore) Clear(chatID int64) {
	st.mu.Lock()
	s, ok := st.sessions[chatID]
	if ok {
		delete(st.sessions, chatID)
	}
	st.mu.Unlock()
	if ok {
		s.cancel()
		s.wg.Wait()
	}
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// SweepIdle clears every session idle for longer than ttl and returns how
// many were cleared.
func (st *SessionStore) SweepIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	st.mu.Lock()
	var stale []*Session
	var ids []int64
	for id, s := range st.sessions {
		if s.LastActive.Before(cutoff) {
			stale = append(stale, s)
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	for _, s := range stale {
		s.cancel()
		s.wg.Wait()
	}
	return len(stale)
}
