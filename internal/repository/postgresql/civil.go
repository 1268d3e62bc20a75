package postgresql

import "time"

// TIMESTAMP and DATE columns hold organization-local civil values. pgx writes
// the wall clock of the time it is given and reads it back as UTC, so values
// are rebuilt in the organization location on both sides.

func toCivil(t time.Time, loc *time.Location) time.Time {
	w := t.In(loc)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, time.UTC)
}

func fromCivil(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func toCivilPtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	c := toCivil(*t, loc)
	return &c
}

func fromCivilPtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	c := fromCivil(*t, loc)
	return &c
}

// civilDate formats the calendar date of t in loc for DATE parameters.
func civilDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func fromCivilDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
