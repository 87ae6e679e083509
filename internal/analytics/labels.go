package analytics

import (
	"golang.org/x/text/language"
)

// Labels holds the short names used for bucket labels in one language.
type Labels struct {
	Tag      language.Tag
	Weekdays [7]string // Monday first
	Months   [12]string
}

var (
	English = Labels{
		Tag:      language.English,
		Weekdays: [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		Months:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	}
	Russian = Labels{
		Tag:      language.Russian,
		Weekdays: [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"},
		Months:   [12]string{"янв", "фев", "мар", "апр", "мая", "июн", "июл", "авг", "сен", "окт", "ноя", "дек"},
	}
)

var (
	supported = []Labels{English, Russian}
	matcher   = language.NewMatcher([]language.Tag{English.Tag, Russian.Tag})
)

// LabelsFor picks the closest supported language, English by default.
func LabelsFor(tags ...language.Tag) Labels {
	_, i, _ := matcher.Match(tags...)
	return supported[i]
}

// ParseLabels picks labels from a BCP 47 tag or an Accept-Language value.
func ParseLabels(s string) Labels {
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return English
	}
	return LabelsFor(tags...)
}
