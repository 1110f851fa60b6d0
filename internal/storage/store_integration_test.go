//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// setupPostgresStore starts a throwaway Postgres container and opens a
// migrated store against it.
func setupPostgresStore(t *testing.T) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "draftlab",
			"POSTGRES_USER":     "draftlab",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://draftlab:test_password@%s:%s/draftlab?sslmode=disable", host, port.Port())
	config := PostgresConfig(dsn)
	config.AutoMigrate = true

	db, err := Open(config)
	require.NoError(t, err)

	store := NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertSet(ctx, models.Set{Code: "BLB", StartDate: "2024-07-30", Active: true}))
	sets, err := store.ListSets(ctx, true)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	require.NoError(t, store.UpsertCardMeta(ctx, []models.CardMeta{
		{SetCode: "BLB", Format: "PremierDraft", Name: "Shore Up", TypeLine: "Instant", WinRate: floatPtr(57.5), WinRateHistory: []float64{57.5}},
	}))
	cards, err := store.GetCardMeta(ctx, "BLB", "PremierDraft")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, []float64{57.5}, cards[0].WinRateHistory)

	require.NoError(t, store.UpsertTrophyDecks(ctx, []models.TrophyDeck{
		{AggregateID: "a1", SetCode: "BLB", Format: "PremierDraft", Archetype: "WU", Cardlist: map[string]int{"Island": 17}},
	}))
	decks, err := store.GetTrophyDecks(ctx, "BLB", "PremierDraft")
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, 17, decks[0].TotalCards())

	require.NoError(t, store.ReplaceSynergies(ctx, "BLB", "PremierDraft", []models.SynergyPair{
		{CardA: "A", CardB: "B", Lift: 1.5, CoOccurrenceCount: 10, ConfidenceAToB: 0.5, ConfidenceBToA: 0.4},
	}))
	scores, err := store.GetSynergyScores(ctx, "BLB", "PremierDraft")
	require.NoError(t, err)
	assert.Equal(t, []models.SynergyScore{{CardA: "A", CardB: "B", Score: 1.5}}, scores)

	require.NoError(t, store.UpsertSkeletons(ctx, []models.ArchetypeSkeleton{
		{SetCode: "BLB", Format: "PremierDraft", ArchetypeName: "WU", AvgManaCurve: map[string]float64{"1": 2}, DeckList: []models.DeckEntry{{Name: "Island"}}},
	}))
	skeletons, err := store.GetSkeletons(ctx, "BLB", "PremierDraft")
	require.NoError(t, err)
	require.Len(t, skeletons, 1)
	assert.Equal(t, 2.0, skeletons[0].AvgManaCurve["1"])
}
