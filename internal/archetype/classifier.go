package archetype

import (
	"regexp"
	"strings"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
)

// ColorPair represents a two-color combination.
type ColorPair struct {
	Colors string // e.g., "WU", "BR", "GW"
	Name   string // e.g., "Azorius", "Rakdos", "Selesnya"
}

// DefaultColorPairs returns the standard MTG color pairs with guild names.
var DefaultColorPairs = []ColorPair{
	{Colors: "WU", Name: "Azorius"},
	{Colors: "UB", Name: "Dimir"},
	{Colors: "BR", Name: "Rakdos"},
	{Colors: "RG", Name: "Gruul"},
	{Colors: "GW", Name: "Selesnya"},
	{Colors: "WB", Name: "Orzhov"},
	{Colors: "UR", Name: "Izzet"},
	{Colors: "BG", Name: "Golgari"},
	{Colors: "RW", Name: "Boros"},
	{Colors: "GU", Name: "Simic"},
}

const splashSuffix = " + Splash"

var parenColors = regexp.MustCompile(`\(([WUBRG]+)\)`)

// NormalizeColors keeps the WUBRG letters of s, deduplicated and in WUBRG order.
func NormalizeColors(s string) string {
	var b strings.Builder
	for i := 0; i < len(cards.Colors); i++ {
		if strings.IndexByte(s, cards.Colors[i]) >= 0 {
			b.WriteByte(cards.Colors[i])
		}
	}
	return b.String()
}

// CleanColorCode turns a 17lands color rating label such as
// "Azorius (WU) + Splash" into a stable key ("WU + Splash").
func CleanColorCode(raw string) string {
	if raw == "" {
		return "Unknown"
	}

	text := raw
	if m := parenColors.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}
	splash := strings.Contains(raw, "Splash")

	code := NormalizeColors(text)
	if code == "" {
		code = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, splashSuffix, ""), " (Splash)", ""))
	}
	if splash {
		return code + splashSuffix
	}
	return code
}

// ColorsFromLabel returns the colors named by an archetype label, in WUBRG
// order. The splash marker is ignored.
func ColorsFromLabel(label string) string {
	label = strings.TrimSuffix(label, splashSuffix)
	if m := parenColors.FindStringSubmatch(label); m != nil {
		return NormalizeColors(m[1])
	}
	// Only a bare color code counts; guild names like "Boros" are not parsed.
	for i := 0; i < len(label); i++ {
		if strings.IndexByte(cards.Colors, label[i]) < 0 {
			return ""
		}
	}
	return NormalizeColors(label)
}

// AllColorCombinations returns the 31 non-empty color combinations ordered by
// size, then by WUBRG position.
func AllColorCombinations() []string {
	var combos []string
	for size := 1; size <= len(cards.Colors); size++ {
		combos = appendCombinations(combos, "", 0, size)
	}
	return combos
}

func appendCombinations(out []string, prefix string, start, remaining int) []string {
	if remaining == 0 {
		return append(out, prefix)
	}
	for i := start; i <= len(cards.Colors)-remaining; i++ {
		out = appendCombinations(out, prefix+string(cards.Colors[i]), i+1, remaining-1)
	}
	return out
}

// DetectColorPair returns the guild of a two-color code, in either order.
func DetectColorPair(colors string) *ColorPair {
	if len(colors) != 2 {
		return nil
	}
	reversed := string([]byte{colors[1], colors[0]})
	for i := range DefaultColorPairs {
		if DefaultColorPairs[i].Colors == colors || DefaultColorPairs[i].Colors == reversed {
			return &DefaultColorPairs[i]
		}
	}
	return nil
}

// DisplayName returns a readable name for an archetype label: the guild for
// two colors, "Mono-<Color>" for one, the label itself otherwise.
func DisplayName(label string) string {
	colors := ColorsFromLabel(label)
	splash := ""
	if strings.HasSuffix(label, splashSuffix) {
		splash = splashSuffix
	}
	switch len(colors) {
	case 1:
		return "Mono-" + colorName(colors) + splash
	case 2:
		if pair := DetectColorPair(colors); pair != nil {
			return pair.Name + splash
		}
	}
	return label
}

// colorName returns the full name for a color code.
func colorName(color string) string {
	names := map[string]string{
		"W": "White",
		"U": "Blue",
		"B": "Black",
		"R": "Red",
		"G": "Green",
	}
	if name, ok := names[color]; ok {
		return name
	}
	return color
}
