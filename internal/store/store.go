package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nap4595/CustomPlaceDB/internal/debounce"
	"github.com/nap4595/CustomPlaceDB/internal/storage"
	"github.com/nap4595/CustomPlaceDB/pkg/logger"
	"github.com/nap4595/CustomPlaceDB/pkg/models"
)

const (
	// DefaultListName is used when a place arrives before any list
	// exists.
	DefaultListName = "새 목록"

	defaultFieldName = "memo"

	persistTimeout = 10 * time.Second
)

// Stats is a small summary of the stored data.
type Stats struct {
	Lists  int `json:"lists"`
	Places int `json:"places"`
	Fields int `json:"fields"`
}

type Option func(*Store)

// WithDebounceDelay overrides the delay for custom-value writes.
func WithDebounceDelay(d time.Duration) Option {
	return func(s *Store) {
		s.deb = debounce.New(d)
	}
}

// WithPersistHook installs fn to run right before every backend write.
// The sync coordinator uses it to mark writes as self-made.
func WithPersistHook(fn func()) Option {
	return func(s *Store) {
		s.onPersist = fn
	}
}

// Store holds the list mapping in memory and mirrors every mutation to
// the storage backend. Mutations are optimistic: state changes first,
// then persists, and rolls back if the write fails. Custom value edits
// are the exception, they persist on a per-field debounce so typing
// does not hammer the backend.
type Store struct {
	backend   storage.Store
	deb       *debounce.Debouncer
	onPersist func()

	mu      sync.Mutex
	lists   *models.Lists
	current string
	lastID  int64
}

func New(backend storage.Store, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		deb:     debounce.New(500 * time.Millisecond),
		lists:   models.NewLists(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted mapping. A missing key means a fresh
// profile and loads as empty state. The selection always resets to the
// first list; it is view-local and never persisted.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Get(ctx, storage.KeyData)
	if errors.Is(err, storage.ErrNotFound) {
		s.mu.Lock()
		s.lists = models.NewLists()
		s.current = ""
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	return s.applyLocked(data)
}

// ApplyExternal swaps in a mapping written by another view. It does
// not persist; the data is already in the backend. The selection stays
// on the same list when it survives the swap, else moves to the first.
func (s *Store) ApplyExternal(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(data)
}

func (s *Store) applyLocked(data []byte) error {
	lists := models.NewLists()
	if err := json.Unmarshal(data, lists); err != nil {
		return err
	}
	s.lists = lists
	s.ensureCurrentLocked()
	return nil
}

// Lists returns a deep copy of the mapping, safe to read concurrently
// with mutations.
func (s *Store) Lists() *models.Lists {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists.Clone()
}

func (s *Store) CurrentListID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrentList changes the view-local selection. Nothing is
// persisted; each view resolves its own selection.
func (s *Store) SetCurrentList(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists.Get(id); !ok {
		return &ValidationError{Reason: "unknown list id"}
	}
	s.current = id
	return nil
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Lists: s.lists.Len()}
	s.lists.Range(func(id string, l *models.List) bool {
		stats.Places += len(l.Places)
		stats.Fields += len(l.CustomFields)
		return true
	})
	return stats
}

// AddList creates a list with the default memo field. Duplicate names
// are allowed here; only renames reject collisions.
func (s *Store) AddList(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Reason: "list name is empty"}
	}

	var id string
	err := s.mutate(ctx, "addList", func() error {
		id = s.newListIDLocked()
		s.lists.Set(id, newList(name))
		if s.current == "" {
			s.current = id
		}
		return nil
	})
	return id, err
}

func (s *Store) RenameList(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Reason: "list name is empty"}
	}

	return s.mutate(ctx, "renameList", func() error {
		l, ok := s.lists.Get(id)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		if s.lists.HasName(name, id) {
			return &DuplicateError{Kind: "list", Name: name}
		}
		l.Name = name
		return nil
	})
}

// DeleteList removes the list and everything in it. Deleting the
// current list moves the selection to the first remaining one.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	return s.mutate(ctx, "deleteList", func() error {
		if _, ok := s.lists.Get(id); !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		s.lists.Delete(id)
		s.ensureCurrentLocked()
		return nil
	})
}

// AddPlace appends a place to the given list, or to the current list
// when listID is empty. With no lists at all a default one is created
// first.
func (s *Store) AddPlace(ctx context.Context, listID string, place *models.Place) (string, error) {
	if place == nil || place.ID == "" {
		return "", &ValidationError{Reason: "place has no id"}
	}

	var targetID string
	err := s.mutate(ctx, "addPlace", func() error {
		targetID = listID
		if targetID == "" {
			targetID = s.current
		}
		if targetID == "" {
			targetID, _ = s.lists.First()
		}
		if targetID == "" {
			targetID = s.newListIDLocked()
			s.lists.Set(targetID, newList(DefaultListName))
			s.current = targetID
		}

		l, ok := s.lists.Get(targetID)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		if l.FindPlace(place.ID) != nil {
			return &DuplicateError{Kind: "place", Name: place.ID}
		}

		stored := place.Clone()
		if stored.CustomValues == nil {
			stored.CustomValues = map[string]string{}
		}
		l.Places = append(l.Places, stored)
		return nil
	})
	return targetID, err
}

// DeletePlace removes a place by id. An absent place is a no-op.
func (s *Store) DeletePlace(ctx context.Context, listID, placeID string) error {
	return s.mutate(ctx, "deletePlace", func() error {
		l, ok := s.lists.Get(listID)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		for i, p := range l.Places {
			if p != nil && p.ID == placeID {
				l.Places = append(l.Places[:i], l.Places[i+1:]...)
				break
			}
		}
		return nil
	})
}

// ReorderPlaces moves the place at fromIndex to toIndex. toIndex is
// clamped into range; fromIndex must be valid.
func (s *Store) ReorderPlaces(ctx context.Context, listID string, fromIndex, toIndex int) error {
	return s.mutate(ctx, "reorderPlaces", func() error {
		l, ok := s.lists.Get(listID)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		if fromIndex < 0 || fromIndex >= len(l.Places) {
			return &RangeError{Index: fromIndex, Length: len(l.Places)}
		}
		toIndex = clamp(toIndex, 0, len(l.Places)-1)

		p := l.Places[fromIndex]
		l.Places = append(l.Places[:fromIndex], l.Places[fromIndex+1:]...)
		l.Places = append(l.Places[:toIndex], append([]*models.Place{p}, l.Places[toIndex:]...)...)
		return nil
	})
}

// SetCustomValue records the value immediately in memory and persists
// on a trailing debounce keyed by list, place and field, so each field
// edited settles independently.
func (s *Store) SetCustomValue(listID, placeID, fieldName, value string) error {
	s.mu.Lock()
	l, ok := s.lists.Get(listID)
	if !ok {
		s.mu.Unlock()
		return &ValidationError{Reason: "unknown list id"}
	}
	p := l.FindPlace(placeID)
	if p == nil {
		s.mu.Unlock()
		return &ValidationError{Reason: "unknown place id"}
	}
	if p.CustomValues == nil {
		p.CustomValues = map[string]string{}
	}
	p.CustomValues[fieldName] = value
	s.mu.Unlock()

	s.deb.Do(listID+"\x00"+placeID+"\x00"+fieldName, s.persistDebounced)
	return nil
}

func (s *Store) persistDebounced() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(ctx, "customValue"); err != nil {
		logger.Log.Error().Err(err).Msg("debounced custom value persist failed")
	}
}

func (s *Store) AddCustomField(ctx context.Context, listID string, field models.CustomField) error {
	field.Name = strings.TrimSpace(field.Name)
	if field.Name == "" {
		return &ValidationError{Reason: "field name is empty"}
	}

	return s.mutate(ctx, "addCustomField", func() error {
		l, ok := s.lists.Get(listID)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		if l.HasField(field.Name, -1) {
			return &DuplicateError{Kind: "field", Name: field.Name}
		}
		l.CustomFields = append(l.CustomFields, field.Clone())
		return nil
	})
}

// RenameCustomField renames the field at index and migrates every
// stored value to the new key in the same mutation.
func (s *Store) RenameCustomField(ctx context.Context, listID string, index int, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return &ValidationError{Reason: "field name is empty"}
	}

	return s.mutate(ctx, "renameCustomField", func() error {
		l, ok := s.lists.Get(listID)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		if index < 0 || index >= len(l.CustomFields) {
			return &RangeError{Index: index, Length: len(l.CustomFields)}
		}
		if l.HasField(newName, index) {
			return &DuplicateError{Kind: "field", Name: newName}
		}

		oldName := l.CustomFields[index].Name
		l.CustomFields[index].Name = newName
		if oldName == newName {
			return nil
		}
		for _, p := range l.Places {
			if v, ok := p.CustomValues[oldName]; ok {
				p.CustomValues[newName] = v
				delete(p.CustomValues, oldName)
			}
		}
		return nil
	})
}

// DeleteCustomField drops the field at index and its values from every
// place in the list.
func (s *Store) DeleteCustomField(ctx context.Context, listID string, index int) error {
	return s.mutate(ctx, "deleteCustomField", func() error {
		l, ok := s.lists.Get(listID)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		if index < 0 || index >= len(l.CustomFields) {
			return &RangeError{Index: index, Length: len(l.CustomFields)}
		}

		name := l.CustomFields[index].Name
		l.CustomFields = append(l.CustomFields[:index], l.CustomFields[index+1:]...)
		for _, p := range l.Places {
			delete(p.CustomValues, name)
		}
		return nil
	})
}

func (s *Store) ReorderCustomFields(ctx context.Context, listID string, fromIndex, toIndex int) error {
	return s.mutate(ctx, "reorderCustomFields", func() error {
		l, ok := s.lists.Get(listID)
		if !ok {
			return &ValidationError{Reason: "unknown list id"}
		}
		if fromIndex < 0 || fromIndex >= len(l.CustomFields) {
			return &RangeError{Index: fromIndex, Length: len(l.CustomFields)}
		}
		toIndex = clamp(toIndex, 0, len(l.CustomFields)-1)

		f := l.CustomFields[fromIndex]
		l.CustomFields = append(l.CustomFields[:fromIndex], l.CustomFields[fromIndex+1:]...)
		l.CustomFields = append(l.CustomFields[:toIndex], append([]models.CustomField{f}, l.CustomFields[toIndex:]...)...)
		return nil
	})
}

// ReplaceAll swaps in a whole new mapping, used by data import.
func (s *Store) ReplaceAll(ctx context.Context, lists *models.Lists) error {
	return s.mutate(ctx, "replaceAll", func() error {
		if lists == nil {
			lists = models.NewLists()
		}
		s.lists = lists.Clone()
		s.current = ""
		s.ensureCurrentLocked()
		return nil
	})
}

// ClearAll wipes every list and persists the empty mapping.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, "clearAll", func() error {
		s.lists = models.NewLists()
		s.current = ""
		return nil
	})
}

// Sync flushes any pending debounced writes with one persist.
func (s *Store) Sync(ctx context.Context) error {
	s.deb.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, "sync")
}

func (s *Store) Close() error {
	s.deb.Stop()
	return nil
}

// mutate runs fn under the lock and persists the result, restoring the
// previous state when the backend write fails.
func (s *Store) mutate(ctx context.Context, op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.lists.Clone()
	prevCurrent := s.current

	if err := fn(); err != nil {
		return err
	}
	if err := s.persistLocked(ctx, op); err != nil {
		s.lists = snapshot
		s.current = prevCurrent
		return err
	}
	return nil
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	data, err := json.Marshal(s.lists)
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	if s.onPersist != nil {
		s.onPersist()
	}
	if err := s.backend.Set(ctx, storage.KeyData, data); err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// ensureCurrentLocked falls back to the first list when the selection
// points nowhere.
func (s *Store) ensureCurrentLocked() {
	if _, ok := s.lists.Get(s.current); ok {
		return
	}
	if first, ok := s.lists.First(); ok {
		s.current = first
	} else {
		s.current = ""
	}
}

// newListIDLocked derives an id from the clock, nudged forward on
// collision so two lists created in the same millisecond stay distinct.
func (s *Store) newListIDLocked() string {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func newList(name string) *models.List {
	return &models.List{
		Name:         name,
		CustomFields: []models.CustomField{{Name: defaultFieldName, Type: models.FieldText}},
		Places:       []*models.Place{},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
