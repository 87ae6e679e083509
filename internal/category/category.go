// Package category maps free-form category labels to the built-in categories.
//
// Labels are matched case-insensitively in English and Russian. Unknown labels
// are their own category: they normalize to themselves (lowercased) and get the
// fallback color and icon.
package category

import (
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ColorToken is a "#RRGGBB" color used to draw a category.
type ColorToken string

// IconToken names the icon used to draw a category.
type IconToken string

const (
	DefaultColor ColorToken = "#4CAF50"
	DefaultIcon  IconToken  = "category"
)

// Set is the ordered set of every known spelling of one category, lowercased.
type Set []string

// Contains reports whether label (compared case-insensitively) is in the set.
func (s Set) Contains(label string) bool {
	return slices.Contains(s, fold(label))
}

// Builtin describes one of the built-in categories.
type Builtin struct {
	Key      string // stable identifier, e.g. "food"
	English  string
	Russian  string
	Synonyms Set
	Color    ColorToken
	Icon     IconToken
}

var builtins = []Builtin{
	{Key: "food", English: "Food", Russian: "Продукты", Synonyms: Set{"food", "продукты"}, Color: "#4CAF50", Icon: "restaurant"},
	{Key: "transport", English: "Transport", Russian: "Транспорт", Synonyms: Set{"transport", "транспорт"}, Color: "#2196F3", Icon: "directions_car"},
	{Key: "shopping", English: "Shopping", Russian: "Покупки", Synonyms: Set{"shopping", "покупки"}, Color: "#9C27B0", Icon: "shopping_bag"},
	{Key: "bills", English: "Bills", Russian: "Счета", Synonyms: Set{"bills", "счета"}, Color: "#FF5722", Icon: "receipt"},
	{Key: "entertainment", English: "Entertainment", Russian: "Развлечения", Synonyms: Set{"entertainment", "развлечения"}, Color: "#E91E63", Icon: "movie"},
	{Key: "health", English: "Health", Russian: "Здоровье", Synonyms: Set{"health", "здоровье"}, Color: "#00BCD4", Icon: "local_hospital"},
	{Key: "education", English: "Education", Russian: "Образование", Synonyms: Set{"education", "образование"}, Color: "#3F51B5", Icon: "school"},
	{Key: "gifts", English: "Gifts", Russian: "Подарки", Synonyms: Set{"gifts", "подарки"}, Color: "#009688", Icon: "card_giftcard"},
	{Key: "home", English: "Home", Russian: "Дом", Synonyms: Set{"home", "дом"}, Color: "#795548", Icon: "home"},
	{Key: "pets", English: "Pets", Russian: "Питомцы", Synonyms: Set{"pets", "питомцы"}, Color: "#673AB7", Icon: "pets"},
	{Key: "travel", English: "Travel", Russian: "Путешествия", Synonyms: Set{"travel", "путешествия"}, Color: "#03A9F4", Icon: "flight"},
	{Key: "dining", English: "Dining", Russian: "Рестораны", Synonyms: Set{"dining", "cafe", "рестораны", "кафе и рестораны"}, Color: "#FF9800", Icon: "local_dining"},
	{Key: "other", English: "Other", Russian: "Другое", Synonyms: Set{"other", "другое"}, Color: "#607D8B", Icon: "more_horiz"},
}

// byLabel maps every folded synonym to its index in builtins. Built once, never written.
var byLabel = func() map[string]int {
	m := make(map[string]int, len(builtins)*3)
	for i, b := range builtins {
		for _, s := range b.Synonyms {
			m[fold(s)] = i
		}
	}
	return m
}()

func fold(s string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(s)
}

// Lookup returns the built-in category for label.
func Lookup(label string) (Builtin, bool) {
	i, ok := byLabel[fold(label)]
	if !ok {
		return Builtin{}, false
	}
	b := builtins[i]
	b.Synonyms = slices.Clone(b.Synonyms)
	return b, true
}

// Builtins returns the built-in categories in their default display order.
func Builtins() []Builtin {
	out := make([]Builtin, len(builtins))
	for i, b := range builtins {
		b.Synonyms = slices.Clone(b.Synonyms)
		out[i] = b
	}
	return out
}

// Normalize returns every known spelling of label's category. Unknown labels
// normalize to a singleton holding the lowercased label.
func Normalize(label string) Set {
	if b, ok := Lookup(label); ok {
		return b.Synonyms
	}
	return Set{strings.ToLower(label)}
}

// Equivalent reports whether two labels name the same category.
func Equivalent(a, b string) bool {
	return Normalize(a).Contains(b)
}

// DisplayName returns the presentation name of label. Built-in categories are
// shown with their Russian name; anything else is returned unchanged.
func DisplayName(label string) string {
	return DisplayNameIn(label, language.Russian)
}

// DisplayNameIn is DisplayName for a given language. English is used for every
// tag that is not Russian.
func DisplayNameIn(label string, tag language.Tag) string {
	b, ok := Lookup(label)
	if !ok {
		return label
	}
	if base, _ := tag.Base(); base.String() == "ru" {
		return b.Russian
	}
	return b.English
}

// Color returns the color of label's category.
func Color(label string) ColorToken {
	if b, ok := Lookup(label); ok {
		return b.Color
	}
	return DefaultColor
}

// Icon returns the icon of label's category.
func Icon(label string) IconToken {
	if b, ok := Lookup(label); ok {
		return b.Icon
	}
	return DefaultIcon
}

// Suggest returns the English name of the built-in category closest to an
// unknown label, if one is within a small edit distance. Known labels return
// their own English name.
func Suggest(label string) (string, bool) {
	if b, ok := Lookup(label); ok {
		return b.English, true
	}
	needle := fold(label)
	if needle == "" {
		return "", false
	}
	maxDist := 2
	if n := len([]rune(needle)) / 3; n < maxDist {
		maxDist = n
	}
	best, bestDist := -1, maxDist+1
	for i, b := range builtins {
		for _, s := range b.Synonyms {
			if d := levenshtein.ComputeDistance(needle, s); d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	if best < 0 {
		return "", false
	}
	return builtins[best].English, true
}
