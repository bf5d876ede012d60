package aggregate

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{
	language.English, // first entry is the matcher's fallback
	language.Indonesian,
	language.Portuguese,
}

var shortMonths = [][12]string{
	{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"},
	{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"},
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Labeler formats calendar-day bucket labels ("3 Oct") for a display
// locale and time zone. Day boundaries follow the time zone.
type Labeler struct {
	loc    *time.Location
	months [12]string
}

// NewLabeler picks the closest supported locale for the given BCP 47 tag.
// A nil location means UTC.
func NewLabeler(locale string, loc *time.Location) *Labeler {
	if loc == nil {
		loc = time.UTC
	}
	idx := 0
	if tag, err := language.Parse(locale); err == nil {
		_, idx, _ = localeMatcher.Match(tag)
	}
	return &Labeler{loc: loc, months: shortMonths[idx]}
}

// Label renders "day + short month" for t.
func (l *Labeler) Label(t time.Time) string {
	t = t.In(l.loc)
	return fmt.Sprintf("%d %s", t.Day(), l.months[t.Month()-1])
}

// StartOfDay truncates t to midnight in the labeler's time zone.
func (l *Labeler) StartOfDay(t time.Time) time.Time {
	t = t.In(l.loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.loc)
}

// Location is the time zone used for day boundaries.
func (l *Labeler) Location() *time.Location {
	return l.loc
}
