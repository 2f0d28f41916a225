package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nap4595/CustomPlaceDB/internal/bus"
	"github.com/nap4595/CustomPlaceDB/internal/extractor"
	"github.com/nap4595/CustomPlaceDB/internal/store"
	"github.com/nap4595/CustomPlaceDB/internal/viewsync"
	"github.com/nap4595/CustomPlaceDB/pkg/logger"
	"github.com/nap4595/CustomPlaceDB/pkg/models"
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

// Snapshotter captures the current page of the tab this session rides.
type Snapshotter interface {
	Snapshot(ctx context.Context) (extractor.Page, error)
}

// Notifier pushes fire-and-forget messages to other components.
type Notifier interface {
	Notify(action string, payload any) error
}

// Session is one view of the database: a tab with the side panel open.
// It follows the tab across map pages, keeps the freshest extracted
// place ready to save, and stays in sync with sibling views through the
// coordinator.
type Session struct {
	store    *store.Store
	coord    *viewsync.Coordinator
	factory  *extractor.Factory
	snap     Snapshotter
	notifier Notifier

	mu      sync.Mutex
	current *models.Place
}

func New(st *store.Store, coord *viewsync.Coordinator, factory *extractor.Factory, snap Snapshotter, notifier Notifier) *Session {
	return &Session{
		store:    st,
		coord:    coord,
		factory:  factory,
		snap:     snap,
		notifier: notifier,
	}
}

// Start loads persisted data and begins watching for writes from other
// views. It blocks until ctx ends.
func (s *Session) Start(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	return s.coord.Run(ctx)
}

// OnURLChange re-extracts when the tab lands on a new page. Extraction
// failures clear the current place and are otherwise swallowed; the
// user just sees nothing to save.
func (s *Session) OnURLChange(ctx context.Context, oldURL, newURL string) {
	log := logger.Log

	if platform.DetectString(newURL) == platform.Unknown {
		s.setCurrent(nil)
		return
	}

	page, err := s.snap.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Str("url", newURL).Msg("page snapshot failed")
		s.setCurrent(nil)
		return
	}

	ex, err := s.factory.ForPage(page)
	if err != nil {
		s.setCurrent(nil)
		return
	}
	if !ex.CanExtract(page) {
		s.setCurrent(nil)
		return
	}

	place, err := ex.Extract(ctx, page)
	if err != nil {
		log.Error().Err(err).Str("url", newURL).Msg("extraction failed")
		s.setCurrent(nil)
		return
	}
	if place != nil {
		log.Info().Str("id", place.ID).Str("name", place.Name).Msg("place extracted")
	}
	s.setCurrent(place)
}

func (s *Session) setCurrent(p *models.Place) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}

// CurrentPlace returns a copy of the place under the user's nose, nil
// when the tab is not on an extractable page.
func (s *Session) CurrentPlace() *models.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Clone()
}

// SaveCurrentPlace adds the extracted place to a list, the current one
// when listID is empty. Returns the list the place landed in.
func (s *Session) SaveCurrentPlace(ctx context.Context, listID string) (string, error) {
	place := s.CurrentPlace()
	if place == nil {
		return "", fmt.Errorf("no place to save on this page")
	}

	targetID, err := s.store.AddPlace(ctx, listID, place)
	if err != nil {
		return "", err
	}

	if s.notifier != nil {
		payload := map[string]string{"message": place.Name + " 저장됨"}
		if err := s.notifier.Notify(bus.ActionShowNotification, payload); err != nil {
			logger.Log.Debug().Err(err).Msg("notification publish failed")
		}
	}
	return targetID, nil
}

// RegisterBusHandlers exposes the session to other components over the
// message bus. Each session answers under its own queue group, so one
// view's requests never land on a sibling.
func (s *Session) RegisterBusHandlers(b *bus.Bus) error {
	group := "view-" + uuid.NewString()

	if err := b.Handle(bus.ActionGetCurrentPlaceData, group, func(ctx context.Context, payload json.RawMessage) (any, error) {
		return s.CurrentPlace(), nil
	}); err != nil {
		return err
	}

	return b.Handle(bus.ActionAddPlace, group, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ListID string `json:"listId"`
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		listID, err := s.SaveCurrentPlace(ctx, req.ListID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"listId": listID}, nil
	})
}
