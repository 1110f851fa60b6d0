package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// Store reads and writes draft analytics rows through database/sql.
// Every write is an upsert keyed by the table's natural key.
type Store struct {
	db *DB
}

// NewStore creates a store on an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertSet registers or updates a set.
func (s *Store) UpsertSet(ctx context.Context, set models.Set) error {
	query := s.db.rebind(`
		INSERT INTO sets (code, start_date, active)
		VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			start_date = excluded.start_date,
			active = excluded.active
	`)
	if _, err := s.db.conn.ExecContext(ctx, query, set.Code, set.StartDate, set.Active); err != nil {
		return fmt.Errorf("failed to upsert set %s: %w", set.Code, err)
	}
	return nil
}

// ListSets returns registered sets ordered by code.
func (s *Store) ListSets(ctx context.Context, activeOnly bool) ([]models.Set, error) {
	query := `SELECT code, start_date, active FROM sets`
	if activeOnly {
		query += ` WHERE active = ?`
	}
	query += ` ORDER BY code`

	var args []interface{}
	if activeOnly {
		args = append(args, true)
	}
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sets []models.Set
	for rows.Next() {
		var set models.Set
		if err := rows.Scan(&set.Code, &set.StartDate, &set.Active); err != nil {
			return nil, fmt.Errorf("failed to scan set: %w", err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

// GetCardMeta returns the card catalog rows of a set and format.
func (s *Store) GetCardMeta(ctx context.Context, setCode, format string) ([]models.CardMeta, error) {
	query := s.db.rebind(`
		SELECT set_code, format, card_name, card_type, card_cost, card_cmc, rarity, colors,
			alsa, gih_wr, img_count, win_rate_history, updated_at
		FROM card_stats
		WHERE set_code = ? AND format = ?
		ORDER BY card_name
	`)
	rows, err := s.db.conn.QueryContext(ctx, query, setCode, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query card stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []models.CardMeta
	for rows.Next() {
		var c models.CardMeta
		var history []byte
		if err := rows.Scan(
			&c.SetCode, &c.Format, &c.Name, &c.TypeLine, &c.ManaCost, &c.ManaValue, &c.Rarity, &c.Colors,
			&c.AverageSeen, &c.WinRate, &c.GameCount, &history, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card stats: %w", err)
		}
		if err := decodeJSON(history, &c.WinRateHistory); err != nil {
			return nil, fmt.Errorf("card %s: %w", c.Name, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpsertCardMeta writes card catalog rows in one transaction.
func (s *Store) UpsertCardMeta(ctx context.Context, cards []models.CardMeta) error {
	query := s.db.rebind(`
		INSERT INTO card_stats (set_code, format, card_name, card_type, card_cost, card_cmc, rarity, colors,
			alsa, gih_wr, img_count, win_rate_history, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(set_code, format, card_name) DO UPDATE SET
			card_type = excluded.card_type,
			card_cost = excluded.card_cost,
			card_cmc = excluded.card_cmc,
			rarity = excluded.rarity,
			colors = excluded.colors,
			alsa = excluded.alsa,
			gih_wr = excluded.gih_wr,
			img_count = excluded.img_count,
			win_rate_history = excluded.win_rate_history,
			updated_at = excluded.updated_at
	`)
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare card stats upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, c := range cards {
			history, err := encodeJSON(nonNil(c.WinRateHistory))
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx,
				c.SetCode, c.Format, c.Name, c.TypeLine, c.ManaCost, c.ManaValue, c.Rarity, c.Colors,
				c.AverageSeen, c.WinRate, c.GameCount, history, stamp(c.UpdatedAt),
			); err != nil {
				return fmt.Errorf("failed to upsert card %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

// GetArchetypeStats returns the colour-pair stats of a set and format.
func (s *Store) GetArchetypeStats(ctx context.Context, setCode, format string) ([]models.ArchetypeStat, error) {
	query := s.db.rebind(`
		SELECT set_code, format, colors, archetype_name, win_rate, win_rate_history, games_count, updated_at
		FROM archetype_stats
		WHERE set_code = ? AND format = ?
		ORDER BY colors
	`)
	rows, err := s.db.conn.QueryContext(ctx, query, setCode, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query archetype stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ArchetypeStat
	for rows.Next() {
		var a models.ArchetypeStat
		var history []byte
		if err := rows.Scan(&a.SetCode, &a.Format, &a.Colors, &a.ArchetypeName, &a.WinRate, &history, &a.GamesCount, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archetype stats: %w", err)
		}
		if err := decodeJSON(history, &a.WinRateHistory); err != nil {
			return nil, fmt.Errorf("archetype %s: %w", a.Colors, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertArchetypeStats writes colour-pair stats in one transaction.
func (s *Store) UpsertArchetypeStats(ctx context.Context, stats []models.ArchetypeStat) error {
	query := s.db.rebind(`
		INSERT INTO archetype_stats (set_code, format, colors, archetype_name, win_rate, win_rate_history, games_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(set_code, colors, format) DO UPDATE SET
			archetype_name = excluded.archetype_name,
			win_rate = excluded.win_rate,
			win_rate_history = excluded.win_rate_history,
			games_count = excluded.games_count,
			updated_at = excluded.updated_at
	`)
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, a := range stats {
			history, err := encodeJSON(nonNil(a.WinRateHistory))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query,
				a.SetCode, a.Format, a.Colors, a.ArchetypeName, a.WinRate, history, a.GamesCount, stamp(a.UpdatedAt),
			); err != nil {
				return fmt.Errorf("failed to upsert archetype %s: %w", a.Colors, err)
			}
		}
		return nil
	})
}

// TrophyIDs returns the aggregate ids already stored for a set and format.
func (s *Store) TrophyIDs(ctx context.Context, setCode, format string) (map[string]struct{}, error) {
	query := s.db.rebind(`SELECT aggregate_id FROM trophy_decks WHERE set_code = ? AND format = ?`)
	rows, err := s.db.conn.QueryContext(ctx, query, setCode, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query trophy ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trophy id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// UpsertTrophyDecks writes trophy decks keyed by aggregate id.
func (s *Store) UpsertTrophyDecks(ctx context.Context, decks []models.TrophyDeck) error {
	query := s.db.rebind(`
		INSERT INTO trophy_decks (aggregate_id, set_code, format, archetype, wins, losses, trophy_time, cardlist, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(aggregate_id) DO UPDATE SET
			set_code = excluded.set_code,
			format = excluded.format,
			archetype = excluded.archetype,
			wins = excluded.wins,
			losses = excluded.losses,
			trophy_time = excluded.trophy_time,
			cardlist = excluded.cardlist,
			scraped_at = excluded.scraped_at
	`)
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, d := range decks {
			cardlist, err := encodeJSON(d.Cardlist)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query,
				d.AggregateID, d.SetCode, d.Format, d.Archetype, d.Wins, d.Losses, d.TrophyTime, cardlist, stamp(d.ScrapedAt),
			); err != nil {
				return fmt.Errorf("failed to upsert trophy deck %s: %w", d.AggregateID, err)
			}
		}
		return nil
	})
}

// GetTrophyDecks returns the trophy decks of a set and format in scrape order.
func (s *Store) GetTrophyDecks(ctx context.Context, setCode, format string) ([]models.TrophyDeck, error) {
	query := s.db.rebind(`
		SELECT aggregate_id, set_code, format, archetype, wins, losses, trophy_time, cardlist, scraped_at
		FROM trophy_decks
		WHERE set_code = ? AND format = ?
		ORDER BY scraped_at, aggregate_id
	`)
	rows, err := s.db.conn.QueryContext(ctx, query, setCode, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query trophy decks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var decks []models.TrophyDeck
	for rows.Next() {
		var d models.TrophyDeck
		var cardlist []byte
		if err := rows.Scan(&d.AggregateID, &d.SetCode, &d.Format, &d.Archetype, &d.Wins, &d.Losses, &d.TrophyTime, &cardlist, &d.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trophy deck: %w", err)
		}
		if err := decodeJSON(cardlist, &d.Cardlist); err != nil {
			return nil, fmt.Errorf("trophy deck %s: %w", d.AggregateID, err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// ReplaceSynergies deletes the stored pairs of a set and format and inserts
// the given ones in one transaction.
func (s *Store) ReplaceSynergies(ctx context.Context, setCode, format string, pairs []models.SynergyPair) error {
	deleteQuery := s.db.rebind(`DELETE FROM synergy_scores WHERE set_code = ? AND format = ?`)
	insertQuery := s.db.rebind(`
		INSERT INTO synergy_scores (set_code, format, card_a, card_b, synergy_score, lift_score,
			co_occurrence_count, confidence_a_to_b, confidence_b_to_a, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteQuery, setCode, format); err != nil {
			return fmt.Errorf("failed to delete synergies: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insertQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare synergy insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range pairs {
			if _, err := stmt.ExecContext(ctx,
				setCode, format, p.CardA, p.CardB, p.Lift, p.Lift,
				p.CoOccurrenceCount, p.ConfidenceAToB, p.ConfidenceBToA, stamp(p.UpdatedAt),
			); err != nil {
				return fmt.Errorf("failed to insert synergy %s/%s: %w", p.CardA, p.CardB, err)
			}
		}
		return nil
	})
}

// GetSynergyScores returns the positive synergy scores of a set and format.
func (s *Store) GetSynergyScores(ctx context.Context, setCode, format string) ([]models.SynergyScore, error) {
	query := s.db.rebind(`
		SELECT card_a, card_b, synergy_score
		FROM synergy_scores
		WHERE set_code = ? AND format = ? AND synergy_score > 0
		ORDER BY card_a, card_b
	`)
	rows, err := s.db.conn.QueryContext(ctx, query, setCode, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query synergies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []models.SynergyScore
	for rows.Next() {
		var sc models.SynergyScore
		if err := rows.Scan(&sc.CardA, &sc.CardB, &sc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan synergy: %w", err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// UpsertSkeletons writes skeletons keyed by (set, format, archetype, alternative).
func (s *Store) UpsertSkeletons(ctx context.Context, skeletons []models.ArchetypeSkeleton) error {
	query := s.db.rebind(`
		INSERT INTO archetypal_skeletons (set_code, format, archetype_name, is_alternative, avg_mana_curve,
			avg_lands, creature_ratio, deck_list, sample_size, sleeper_cards, trending_cards,
			openness_score, importance_cards, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(set_code, format, archetype_name, is_alternative) DO UPDATE SET
			avg_mana_curve = excluded.avg_mana_curve,
			avg_lands = excluded.avg_lands,
			creature_ratio = excluded.creature_ratio,
			deck_list = excluded.deck_list,
			sample_size = excluded.sample_size,
			sleeper_cards = excluded.sleeper_cards,
			trending_cards = excluded.trending_cards,
			openness_score = excluded.openness_score,
			importance_cards = excluded.importance_cards,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at
	`)
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i := range skeletons {
			sk := &skeletons[i]
			cols, err := encodeSkeletonColumns(sk)
			if err != nil {
				return fmt.Errorf("skeleton %s: %w", sk.ArchetypeName, err)
			}
			if _, err := tx.ExecContext(ctx, query,
				sk.SetCode, sk.Format, sk.ArchetypeName, sk.IsAlternative, cols.curve,
				sk.AvgLands, sk.CreatureRatio, cols.deck, sk.SampleSize, cols.sleepers, cols.trending,
				sk.OpennessScore, cols.importance, sk.RunID, stamp(sk.UpdatedAt),
			); err != nil {
				return fmt.Errorf("failed to upsert skeleton %s: %w", sk.ArchetypeName, err)
			}
		}
		return nil
	})
}

// GetSkeletons returns the stored skeletons of a set and format, main before
// alternative within each archetype.
func (s *Store) GetSkeletons(ctx context.Context, setCode, format string) ([]models.ArchetypeSkeleton, error) {
	query := s.db.rebind(`
		SELECT set_code, format, archetype_name, is_alternative, avg_mana_curve, avg_lands, creature_ratio,
			deck_list, sample_size, sleeper_cards, trending_cards, openness_score, importance_cards,
			run_id, updated_at
		FROM archetypal_skeletons
		WHERE set_code = ? AND format = ?
		ORDER BY archetype_name, is_alternative
	`)
	rows, err := s.db.conn.QueryContext(ctx, query, setCode, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query skeletons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ArchetypeSkeleton
	for rows.Next() {
		var sk models.ArchetypeSkeleton
		var cols skeletonColumns
		if err := rows.Scan(
			&sk.SetCode, &sk.Format, &sk.ArchetypeName, &sk.IsAlternative, &cols.curve, &sk.AvgLands, &sk.CreatureRatio,
			&cols.deck, &sk.SampleSize, &cols.sleepers, &cols.trending, &sk.OpennessScore, &cols.importance,
			&sk.RunID, &sk.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan skeleton: %w", err)
		}
		if err := cols.decode(&sk); err != nil {
			return nil, fmt.Errorf("skeleton %s: %w", sk.ArchetypeName, err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// skeletonColumns holds the JSON columns of a skeleton row as scanned.
type skeletonColumns struct {
	curve, deck, sleepers, trending, importance []byte
}

// skeletonValues holds the JSON columns of a skeleton row to be written.
type skeletonValues struct {
	curve, deck, sleepers, trending, importance string
}

func encodeSkeletonColumns(sk *models.ArchetypeSkeleton) (*skeletonValues, error) {
	var cols skeletonValues
	var err error
	if cols.curve, err = encodeJSON(sk.AvgManaCurve); err != nil {
		return nil, err
	}
	if cols.deck, err = encodeJSON(sk.DeckList); err != nil {
		return nil, err
	}
	if cols.sleepers, err = encodeJSON(nonNil(sk.SleeperCards)); err != nil {
		return nil, err
	}
	if cols.trending, err = encodeJSON(nonNil(sk.TrendingCards)); err != nil {
		return nil, err
	}
	if cols.importance, err = encodeJSON(nonNil(sk.ImportanceCards)); err != nil {
		return nil, err
	}
	return &cols, nil
}

func (c *skeletonColumns) decode(sk *models.ArchetypeSkeleton) error {
	if err := decodeJSON(c.curve, &sk.AvgManaCurve); err != nil {
		return err
	}
	if err := decodeJSON(c.deck, &sk.DeckList); err != nil {
		return err
	}
	if err := decodeJSON(c.sleepers, &sk.SleeperCards); err != nil {
		return err
	}
	if err := decodeJSON(c.trending, &sk.TrendingCards); err != nil {
		return err
	}
	return decodeJSON(c.importance, &sk.ImportanceCards)
}

// encodeJSON returns a JSON column value. It is returned as a string so
// both SQLite TEXT and Postgres JSONB columns accept it.
func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return string(data), nil
}

func decodeJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// stamp defaults a zero timestamp to now and normalises it to UTC.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
