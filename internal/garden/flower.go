package garden

import "errors"

var (
	// ErrUnknownPalette is returned for a palette ID not in [Palettes].
	ErrUnknownPalette = errors.New("garden: unknown palette")

	// ErrPaletteLocked is returned when a custom palette is bought before the
	// flower reaches [MaxLevel].
	ErrPaletteLocked = errors.New("garden: palette locked until full bloom")
)

// MaxLevel is the full-bloom flower level that unlocks custom palettes.
const MaxLevel = 5

// DefaultPalette is the free palette every garden starts with.
const DefaultPalette = "classic"

// DefaultPaletteCost is the price of switching to a custom palette.
const DefaultPaletteCost = 5

var levelThresholds = [MaxLevel]int{50, 100, 250, 500, 1000}

// FlowerLevel maps a seed balance to a growth level in [0, MaxLevel].
func FlowerLevel(seeds int) int {
	level := 0
	for _, threshold := range levelThresholds {
		if seeds < threshold {
			break
		}
		level++
	}
	return level
}

// SeedsToNextLevel returns how many seeds are missing for the next level, or
// 0 at full bloom.
func SeedsToNextLevel(seeds int) int {
	level := FlowerLevel(seeds)
	if level >= MaxLevel {
		return 0
	}
	return levelThresholds[level] - seeds
}

// Palette is a three-stop colour gradient for the flower, from centre to
// outer petals.
type Palette struct {
	ID    string
	Name  string
	Stops [3]string
}

var palettes = []Palette{
	{ID: "classic", Name: "Original", Stops: [3]string{"#F7F8F7", "#A3B18A", "#588157"}},
	{ID: "golden", Name: "Aura Solar", Stops: [3]string{"#FFFBEB", "#F5E6CC", "#D4A373"}},
	{ID: "electric", Name: "Niebla Azul", Stops: [3]string{"#F0F9FF", "#BAE6FD", "#7DD3FC"}},
	{ID: "toxic", Name: "Verde Musgo", Stops: [3]string{"#F7FEE7", "#D1E8E2", "#93A67E"}},
	{ID: "nebula", Name: "Atardecer", Stops: [3]string{"#FAF5FF", "#E9D5FF", "#D8B4FE"}},
}

// Palettes returns every palette in display order.
func Palettes() []Palette {
	out := make([]Palette, len(palettes))
	copy(out, palettes)
	return out
}

// LookupPalette finds a palette by ID.
func LookupPalette(id string) (Palette, bool) {
	for _, p := range palettes {
		if p.ID == id {
			return p, true
		}
	}
	return Palette{}, false
}
