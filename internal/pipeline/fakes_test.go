package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards/scryfall"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/seventeenlands"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

func key(setCode, format string) string { return setCode + "/" + format }

// memStore is an in-memory Store.
type memStore struct {
	mu         sync.Mutex
	sets       map[string]models.Set
	cards      map[string][]models.CardMeta
	archetypes map[string][]models.ArchetypeStat
	trophies   map[string][]models.TrophyDeck
	synergies  map[string][]models.SynergyPair
	skeletons  map[string][]models.ArchetypeSkeleton

	trophyUpserts int
	failUpserts   bool
}

func newMemStore(sets ...models.Set) *memStore {
	s := &memStore{
		sets:       make(map[string]models.Set),
		cards:      make(map[string][]models.CardMeta),
		archetypes: make(map[string][]models.ArchetypeStat),
		trophies:   make(map[string][]models.TrophyDeck),
		synergies:  make(map[string][]models.SynergyPair),
		skeletons:  make(map[string][]models.ArchetypeSkeleton),
	}
	for _, set := range sets {
		s.sets[set.Code] = set
	}
	return s
}

var errUpsert = errors.New("upsert failed")

func (s *memStore) UpsertSet(_ context.Context, set models.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set.Code] = set
	return nil
}

func (s *memStore) ListSets(_ context.Context, activeOnly bool) ([]models.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Set
	for _, set := range s.sets {
		if activeOnly && !set.Active {
			continue
		}
		out = append(out, set)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *memStore) GetCardMeta(_ context.Context, setCode, format string) ([]models.CardMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CardMeta(nil), s.cards[key(setCode, format)]...), nil
}

func (s *memStore) UpsertCardMeta(_ context.Context, cards []models.CardMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpserts {
		return errUpsert
	}
	for _, c := range cards {
		k := key(c.SetCode, c.Format)
		rows := s.cards[k]
		replaced := false
		for i := range rows {
			if rows[i].Name == c.Name {
				rows[i] = c
				replaced = true
			}
		}
		if !replaced {
			rows = append(rows, c)
		}
		s.cards[k] = rows
	}
	return nil
}

func (s *memStore) GetArchetypeStats(_ context.Context, setCode, format string) ([]models.ArchetypeStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ArchetypeStat(nil), s.archetypes[key(setCode, format)]...), nil
}

func (s *memStore) UpsertArchetypeStats(_ context.Context, stats []models.ArchetypeStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpserts {
		return errUpsert
	}
	for _, a := range stats {
		k := key(a.SetCode, a.Format)
		rows := s.archetypes[k]
		replaced := false
		for i := range rows {
			if rows[i].Colors == a.Colors {
				rows[i] = a
				replaced = true
			}
		}
		if !replaced {
			rows = append(rows, a)
		}
		s.archetypes[k] = rows
	}
	return nil
}

func (s *memStore) TrophyIDs(_ context.Context, setCode, format string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]struct{})
	for _, d := range s.trophies[key(setCode, format)] {
		ids[d.AggregateID] = struct{}{}
	}
	return ids, nil
}

func (s *memStore) UpsertTrophyDecks(_ context.Context, decks []models.TrophyDeck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trophyUpserts++
	if s.failUpserts {
		return errUpsert
	}
	for _, d := range decks {
		k := key(d.SetCode, d.Format)
		s.trophies[k] = append(s.trophies[k], d)
	}
	return nil
}

func (s *memStore) GetTrophyDecks(_ context.Context, setCode, format string) ([]models.TrophyDeck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TrophyDeck(nil), s.trophies[key(setCode, format)]...), nil
}

func (s *memStore) ReplaceSynergies(_ context.Context, setCode, format string, pairs []models.SynergyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synergies[key(setCode, format)] = pairs
	return nil
}

func (s *memStore) GetSynergyScores(_ context.Context, setCode, format string) ([]models.SynergyScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SynergyScore
	for _, p := range s.synergies[key(setCode, format)] {
		if p.Lift > 0 {
			out = append(out, models.SynergyScore{CardA: p.CardA, CardB: p.CardB, Score: p.Lift})
		}
	}
	return out, nil
}

func (s *memStore) UpsertSkeletons(_ context.Context, skeletons []models.ArchetypeSkeleton) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpserts {
		return errUpsert
	}
	for _, sk := range skeletons {
		k := key(sk.SetCode, sk.Format)
		s.skeletons[k] = append(s.skeletons[k], sk)
	}
	return nil
}

func (s *memStore) GetSkeletons(_ context.Context, setCode, format string) ([]models.ArchetypeSkeleton, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ArchetypeSkeleton(nil), s.skeletons[key(setCode, format)]...), nil
}

func (s *memStore) Close() error { return nil }

// fakeDraftData serves canned 17lands responses.
type fakeDraftData struct {
	mu           sync.Mutex
	cardRatings  map[string][]seventeenlands.CardRating
	colorRatings map[string][]seventeenlands.ColorRating
	trophies     map[string][]seventeenlands.Trophy // keyed by colors
	decks        map[string]*seventeenlands.Deck

	ratingParams []seventeenlands.QueryParams
	trophyCalls  []seventeenlands.TrophyQuery
	deckCalls    []string
}

var errUnavailable = errors.New("unavailable")

func (f *fakeDraftData) GetCardRatings(_ context.Context, p seventeenlands.QueryParams) ([]seventeenlands.CardRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratingParams = append(f.ratingParams, p)
	r, ok := f.cardRatings[key(p.Expansion, p.EventType)]
	if !ok {
		return nil, errUnavailable
	}
	return r, nil
}

func (f *fakeDraftData) GetColorRatings(_ context.Context, p seventeenlands.QueryParams) ([]seventeenlands.ColorRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratingParams = append(f.ratingParams, p)
	r, ok := f.colorRatings[key(p.Expansion, p.EventType)]
	if !ok {
		return nil, errUnavailable
	}
	return r, nil
}

func (f *fakeDraftData) GetTrophies(_ context.Context, q seventeenlands.TrophyQuery) ([]seventeenlands.Trophy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trophyCalls = append(f.trophyCalls, q)
	return f.trophies[q.Colors], nil
}

func (f *fakeDraftData) GetDeck(_ context.Context, draftID string, _ int) (*seventeenlands.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deckCalls = append(f.deckCalls, draftID)
	d, ok := f.decks[draftID]
	if !ok {
		return nil, errUnavailable
	}
	return d, nil
}

// fakeEnricher resolves names from a fixed table.
type fakeEnricher struct {
	known  map[string]scryfall.Metadata
	wanted []string
}

func (e *fakeEnricher) Enrich(_ context.Context, _ string, wanted []string) (map[string]scryfall.Metadata, error) {
	e.wanted = append(e.wanted, wanted...)
	out := make(map[string]scryfall.Metadata)
	for _, name := range wanted {
		if m, ok := e.known[name]; ok {
			out[name] = m
		}
	}
	return out, nil
}
