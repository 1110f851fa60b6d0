package cards

import (
	"regexp"
	"strings"
)

// TypeTag is a parsed card type relevant to deck construction.
type TypeTag uint8

const (
	TagLand TypeTag = 1 << iota
	TagBasic
	TagCreature
)

// TypeTags is the set of type tags parsed from a type line.
type TypeTags uint8

// ParseTypeLine parses a free-text type line ("Basic Land — Plains",
// "Creature — Elf Warrior") into its tags.
func ParseTypeLine(typeLine string) TypeTags {
	var tags TypeTags
	if strings.Contains(typeLine, "Land") {
		tags |= TypeTags(TagLand)
	}
	if strings.Contains(typeLine, "Basic") {
		tags |= TypeTags(TagBasic)
	}
	if strings.Contains(typeLine, "Creature") {
		tags |= TypeTags(TagCreature)
	}
	return tags
}

// Has reports whether the tag is set.
func (t TypeTags) Has(tag TypeTag) bool {
	return t&TypeTags(tag) != 0
}

// IsLand reports whether the card is a land of any kind.
func (t TypeTags) IsLand() bool { return t.Has(TagLand) }

// IsBasic reports whether the card is a basic.
func (t TypeTags) IsBasic() bool { return t.Has(TagBasic) }

// IsCreature reports whether the card is a creature.
func (t TypeTags) IsCreature() bool { return t.Has(TagCreature) }

// Colors is the canonical WUBRG order.
const Colors = "WUBRG"

// BasicLandNames maps a colour letter to its basic land.
var BasicLandNames = map[byte]string{
	'W': "Plains",
	'U': "Island",
	'B': "Swamp",
	'R': "Mountain",
	'G': "Forest",
}

var basicLandSet = map[string]struct{}{
	"Plains":   {},
	"Island":   {},
	"Swamp":    {},
	"Mountain": {},
	"Forest":   {},
}

// BasicLandTypeLine returns the type line printed on a basic land.
func BasicLandTypeLine(name string) string {
	return "Basic Land — " + name
}

// IsBasicLandName reports whether name is one of the five basic lands.
func IsBasicLandName(name string) bool {
	_, ok := basicLandSet[name]
	return ok
}

var pipPattern = regexp.MustCompile(`\{([WUBRG])\}`)

// ColorPips counts the single-colour mana symbols of a mana cost such as
// "{1}{W}{U}". Hybrid and phyrexian symbols are not counted.
func ColorPips(manaCost string) map[byte]int {
	pips := make(map[byte]int)
	for _, m := range pipPattern.FindAllStringSubmatch(manaCost, -1) {
		pips[m[1][0]]++
	}
	return pips
}

// ClampManaValue limits a mana value to the curve buckets 0..7.
func ClampManaValue(mv int) int {
	if mv < 0 {
		return 0
	}
	if mv > 7 {
		return 7
	}
	return mv
}
