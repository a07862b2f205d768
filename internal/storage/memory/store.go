// Package memory is an in-memory RecordStore used by stage and handler
// tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saucelist/saucelist/internal/codec"
	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/storage"
)

type sauceEntry struct {
	sauce   domain.Sauce
	private bool
	active  bool
	types   []string
}

type reviewEntry struct {
	rec     storage.ReviewRecord
	created int64
	hashID  string
	active  bool
}

type reviewKey struct {
	sauceID int64
	userID  int64
}

// Store is an in-memory implementation of storage.RecordStore.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	sauces  map[int64]*sauceEntry
	reviews map[reviewKey]*reviewEntry
	users   map[int64]domain.Author
	types   []string

	// FailWith, when set, makes every call fail with it. Lets tests
	// exercise dependency-failure paths.
	FailWith error
}

var _ storage.RecordStore = (*Store)(nil)

// New creates an empty in-memory store with the default type allow-list.
func New() *Store {
	return &Store{
		nextID:  1,
		sauces:  make(map[int64]*sauceEntry),
		reviews: make(map[reviewKey]*reviewEntry),
		users:   make(map[int64]domain.Author),
		types:   []string{"Hot Sauce", "BBQ Sauce", "Wing Sauce", "Marinade", "Salsa", "Curry Sauce"},
	}
}

func (s *Store) InsertSauce(ctx context.Context, rec *storage.SauceRecord) (string, error) {
	if s.FailWith != nil {
		return "", s.FailWith
	}
	name, err := codec.NormalizeName(rec.Name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.sauces {
		if e.sauce.Name == name {
			count++
		}
	}
	slug, err := codec.SlugForCount(name, count)
	if err != nil {
		return "", err
	}

	id := s.nextID
	s.nextID++
	s.sauces[id] = &sauceEntry{
		sauce: domain.Sauce{
			ID:          id,
			Slug:        slug,
			Name:        name,
			Maker:       rec.Maker,
			Description: rec.Description,
			Ingredients: rec.Ingredients,
			SHU:         rec.SHU,
			Country:     rec.Country,
			State:       rec.State,
			City:        rec.City,
			Photo:       rec.Photo,
			Created:     time.Now().Unix(),
		},
		private: rec.IsPrivate,
		active:  true,
		types:   append([]string(nil), rec.Types...),
	}
	return slug, nil
}

func (s *Store) FindSauceBySlug(ctx context.Context, slug string) (*domain.Sauce, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.sauces {
		if e.sauce.Slug == slug && e.active {
			sauce := e.sauce
			return &sauce, nil
		}
	}
	return nil, nil
}

func (s *Store) FindSauceIDBySlug(ctx context.Context, slug string) (int64, error) {
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, e := range s.sauces {
		if e.sauce.Slug == slug && e.active {
			return id, nil
		}
	}
	return 0, domain.ErrDependency("Could not find the appropriate information for this sauce. Please try again").
		WithCode(domain.ErrorCodeSauceNotFound)
}

func (s *Store) CountSaucesByName(ctx context.Context, name string) (int, error) {
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.sauces {
		if e.sauce.Name == name {
			count++
		}
	}
	return count, nil
}

func (s *Store) FindSaucesByQuery(ctx context.Context, opts storage.QueryOptions) ([]domain.Sauce, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sauces []domain.Sauce
	for _, e := range s.sauces {
		if !e.active || e.private {
			continue
		}
		if opts.Type != "" && opts.Type != "all" && !hasType(e.types, opts.Type) {
			continue
		}
		sauces = append(sauces, e.sauce)
	}

	switch opts.Order {
	case "name":
		sort.Slice(sauces, func(i, j int) bool { return sauces[i].Name < sauces[j].Name })
	default:
		sort.Slice(sauces, func(i, j int) bool { return sauces[i].Created > sauces[j].Created })
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 12
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= len(sauces) {
		return nil, nil
	}
	end := offset + limit
	if end > len(sauces) {
		end = len(sauces)
	}
	return sauces[offset:end], nil
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func (s *Store) FindRelatedSauces(ctx context.Context, slug string) ([]domain.SauceSummary, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var related []domain.SauceSummary
	for _, e := range s.sauces {
		if e.sauce.Slug == slug || !e.active || e.private {
			continue
		}
		related = append(related, domain.SauceSummary{Name: e.sauce.Name, Slug: e.sauce.Slug})
		if len(related) == 4 {
			break
		}
	}
	return related, nil
}

func (s *Store) FindSaucesWithNewestReviews(ctx context.Context, limit int) ([]domain.NewestReview, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest []domain.NewestReview
	for key, e := range s.reviews {
		if !e.active {
			continue
		}
		sauce, ok := s.sauces[key.sauceID]
		if !ok {
			continue
		}
		newest = append(newest, domain.NewestReview{
			HashID:     e.hashID,
			OverallTxt: e.rec.OverallTxt,
			SauceName:  sauce.sauce.Name,
			SauceSlug:  sauce.sauce.Slug,
		})
	}
	sort.Slice(newest, func(i, j int) bool { return newest[i].HashID < newest[j].HashID })
	if len(newest) > limit {
		newest = newest[:limit]
	}
	return newest, nil
}

func (s *Store) CountSauces(ctx context.Context) (int, error) {
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.sauces {
		if e.active && !e.private {
			count++
		}
	}
	return count, nil
}

func (s *Store) EnsureUser(ctx context.Context, userID int64, displayName string) error {
	if s.FailWith != nil {
		return s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		if displayName == "" {
			displayName = "anonymous"
		}
		s.users[userID] = domain.Author{DisplayName: displayName, Created: time.Now().Unix()}
	}
	return nil
}

func (s *Store) InsertReview(ctx context.Context, rec *storage.ReviewRecord) error {
	if s.FailWith != nil {
		return s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reviewKey{sauceID: rec.SauceID, userID: rec.UserID}
	if _, exists := s.reviews[key]; exists {
		return domain.ErrConflict("You have already reviewed this sauce.")
	}
	s.reviews[key] = &reviewEntry{rec: *rec, created: time.Now().Unix(), active: true}
	return nil
}

func (s *Store) SetReviewHashID(ctx context.Context, sauceID, userID int64, hashID string) error {
	if s.FailWith != nil {
		return s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.reviews[reviewKey{sauceID: sauceID, userID: userID}]
	if !ok {
		return domain.ErrDependency("Error saving review. Please try again.")
	}
	e.hashID = hashID
	return nil
}

func (s *Store) FindReviewsBySauceID(ctx context.Context, sauceID int64) ([]domain.Review, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reviews []domain.Review
	for key, e := range s.reviews {
		if key.sauceID != sauceID || !e.active {
			continue
		}
		reviews = append(reviews, domain.Review{
			HashID:  e.hashID,
			Created: e.created,
			Author:  s.users[key.userID],
			Label:   domain.RatedAspect{Rating: e.rec.LabelRating, Txt: e.rec.LabelTxt},
			Aroma:   domain.RatedAspect{Rating: e.rec.AromaRating, Txt: e.rec.AromaTxt},
			Taste:   domain.RatedAspect{Rating: e.rec.TasteRating, Txt: e.rec.TasteTxt},
			Heat:    domain.RatedAspect{Rating: e.rec.HeatRating, Txt: e.rec.HeatTxt},
			Overall: domain.RatedAspect{Rating: e.rec.OverallRating, Txt: e.rec.OverallTxt},
			Note:    domain.Note{Txt: e.rec.Note},
		})
	}
	return reviews, nil
}

func (s *Store) FindReviewHashIDsBySauceID(ctx context.Context, sauceID int64) ([]string, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for key, e := range s.reviews {
		if key.sauceID == sauceID && e.active && e.hashID != "" {
			ids = append(ids, e.hashID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) ListTypes(ctx context.Context) ([]string, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.types...), nil
}

func (s *Store) FindTypeIDsByValues(ctx context.Context, values []string) ([]int64, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for i, t := range s.types {
		for _, v := range values {
			if strings.EqualFold(t, v) {
				ids = append(ids, int64(i+1))
			}
		}
	}
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
