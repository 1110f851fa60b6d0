package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestParseTypeLine(t *testing.T) {
	tests := []struct {
		typeLine string
		land     bool
		basic    bool
		creature bool
	}{
		{"Basic Land — Plains", true, true, false},
		{"Land", true, false, false},
		{"Artifact Creature — Golem", false, false, true},
		{"Land Creature — Forest Dryad", true, false, true},
		{"Instant", false, false, false},
		{"", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.typeLine, func(t *testing.T) {
			tags := ParseTypeLine(tt.typeLine)
			if tags.IsLand() != tt.land {
				t.Errorf("IsLand() = %v, want %v", tags.IsLand(), tt.land)
			}
			if tags.IsBasic() != tt.basic {
				t.Errorf("IsBasic() = %v, want %v", tags.IsBasic(), tt.basic)
			}
			if tags.IsCreature() != tt.creature {
				t.Errorf("IsCreature() = %v, want %v", tags.IsCreature(), tt.creature)
			}
		})
	}
}

func TestColorPips(t *testing.T) {
	pips := ColorPips("{2}{W}{W}{U}{G/U}{B/P}")
	assert.Equal(t, map[byte]int{'W': 2, 'U': 1}, pips)
	assert.Empty(t, ColorPips(""))
	assert.Empty(t, ColorPips("{3}"))
}

func TestClampManaValue(t *testing.T) {
	assert.Equal(t, 0, ClampManaValue(-1))
	assert.Equal(t, 3, ClampManaValue(3))
	assert.Equal(t, 7, ClampManaValue(7))
	assert.Equal(t, 7, ClampManaValue(12))
}

func TestIsBasicLandName(t *testing.T) {
	for _, name := range []string{"Plains", "Island", "Swamp", "Mountain", "Forest"} {
		assert.True(t, IsBasicLandName(name), name)
	}
	assert.False(t, IsBasicLandName("Wastes"))
	assert.False(t, IsBasicLandName("Snow-Covered Forest"))
}

func TestNewCatalog(t *testing.T) {
	catalog := NewCatalog([]models.CardMeta{
		{Name: "Lightning Strike", TypeLine: "Instant", ManaValue: 2, AverageSeen: floatPtr(3.0), WinRate: floatPtr(56)},
		{Name: "Colossal Dreadmaw", TypeLine: "Creature — Dinosaur", ManaValue: 6, AverageSeen: floatPtr(7.0), WinRate: floatPtr(52)},
		{Name: "Big Spell", TypeLine: "Sorcery", ManaValue: 10},
		{Name: "Plains", TypeLine: "Basic Land — Plains"},
	})

	require.Equal(t, 4, catalog.Len())
	assert.InDelta(t, 5.0, catalog.MeanAverageSeen(), 1e-9)
	assert.InDelta(t, 54.0, catalog.MeanWinRate(), 1e-9)

	dreadmaw, ok := catalog.Lookup("Colossal Dreadmaw")
	require.True(t, ok)
	assert.True(t, dreadmaw.Tags.IsCreature())
	assert.False(t, dreadmaw.Tags.IsLand())

	big, ok := catalog.Lookup("Big Spell")
	require.True(t, ok)
	assert.Equal(t, 7, big.ManaValue())

	plains, ok := catalog.Lookup("Plains")
	require.True(t, ok)
	assert.True(t, plains.Tags.IsBasic())

	_, ok = catalog.Lookup("Missing Card")
	assert.False(t, ok)

	matched, total := catalog.MatchRate([]string{"Plains", "Missing Card", "Big Spell"})
	assert.Equal(t, 2, matched)
	assert.Equal(t, 3, total)
}

func TestNewCatalog_Defaults(t *testing.T) {
	catalog := NewCatalog(nil)
	assert.Equal(t, DefaultAverageSeen, catalog.MeanAverageSeen())
	assert.Equal(t, DefaultFormatWinRate, catalog.MeanWinRate())

	// a zero win rate is treated as unknown
	catalog = NewCatalog([]models.CardMeta{{Name: "A", WinRate: floatPtr(0)}})
	assert.Equal(t, DefaultFormatWinRate, catalog.MeanWinRate())
}
