package market

import (
	"time"

	"github.com/scmhub/calendar"
)

// Nasdaq Nordic and Oslo Bors are not in the scmhub registry and its xtse
// calendar carries no holidays. These calendars are assembled here from the
// library's holiday definitions and take precedence over the registry.

var (
	swedishNationalDay     = dayOfMonth("National Day of Sweden", time.June, 6).SetAfterYear(2005)
	finnishIndependenceDay = dayOfMonth("Independence Day", time.December, 6)
	danishConstitutionDay  = dayOfMonth("Constitution Day", time.June, 5)
	norwegianConstitution  = dayOfMonth("Constitution Day", time.May, 17)

	// Friday between 19 and 25 June
	midsummerEve = dayOfMonth("Midsummer Eve", time.June, 19).SetObservance(nextFriday)

	greatPrayerDay    = calendar.GoodFriday.Copy("Great Prayer Day").SetOffset(26).SetBeforeYear(2024)
	dayAfterAscension = calendar.AscensionDay.Copy("Day after Ascension Day").SetOffset(40)

	canadaNewYear   = calendar.NewYear.Copy().SetObservance(weekendToMonday)
	familyDay       = nthWeekday("Family Day", time.February, time.Monday, 3).SetAfterYear(2008)
	victoriaDay     = dayOfMonth("Victoria Day", time.May, 24).SetObservance(previousMonday)
	canadaDay       = dayOfMonth("Canada Day", time.July, 1).SetObservance(weekendToMonday)
	civicHoliday    = nthWeekday("Civic Holiday", time.August, time.Monday, 1)
	canadaThanks    = nthWeekday("Thanksgiving Day", time.October, time.Monday, 2)
	canadaChristmas = calendar.ChristmasDay.Copy().SetObservance(weekendToMonday)
	canadaBoxingDay = calendar.BoxingDay.Copy().SetObservance(boxingDayObserved)
)

// dayOfMonth copies a fixed-date library holiday onto another date.
func dayOfMonth(name string, month time.Month, day int) *calendar.Holiday {
	h := calendar.NewYear.Copy(name)
	h.Month, h.Day = month, day
	return h
}

// nthWeekday copies a library nth-weekday holiday onto another month.
func nthWeekday(name string, month time.Month, weekday time.Weekday, n int) *calendar.Holiday {
	h := calendar.MLKDay.Copy(name)
	h.Month, h.Weekday, h.NthWeekday = month, weekday, n
	return h
}

func nextFriday(t time.Time) time.Time {
	return t.AddDate(0, 0, (int(time.Friday)-int(t.Weekday())+7)%7)
}

func previousMonday(t time.Time) time.Time {
	return t.AddDate(0, 0, -((int(t.Weekday()) - int(time.Monday) + 7) % 7))
}

func weekendToMonday(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

// boxingDayObserved follows Christmas: a weekend Boxing Day, or one that the
// observed Christmas lands on, moves to the next free weekday.
func boxingDayObserved(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return t.AddDate(0, 0, 2)
	case time.Monday:
		// Christmas fell on Sunday and is observed today
		return t.AddDate(0, 0, 1)
	}
	return t
}

// localCalendars builds a holiday calendar by MIC for the given location.
var localCalendars = map[string]func(loc *time.Location, years ...int) *calendar.Calendar{
	"xsto": xsto,
	"xcse": xcse,
	"xhel": xhel,
	"xosl": xosl,
	"xtse": xtse,
}

// -----------------------------------------------------------------------------

// Nasdaq Stockholm
func xsto(loc *time.Location, years ...int) *calendar.Calendar {
	c := calendar.NewCalendar("Nasdaq Stockholm", loc, years...)
	c.SetSession(&calendar.Session{Open: 9 * time.Hour, Close: 17*time.Hour + 30*time.Minute})
	c.AddHolidays(
		calendar.NewYear,
		calendar.Epiphany,
		calendar.GoodFriday,
		calendar.EasterMonday,
		calendar.WorkersDay,
		calendar.AscensionDay,
		swedishNationalDay,
		midsummerEve,
		calendar.ChristmasEve,
		calendar.ChristmasDay,
		calendar.BoxingDay,
		calendar.NewYearsEve,
	)
	return c
}

// -----------------------------------------------------------------------------

// Nasdaq Copenhagen
func xcse(loc *time.Location, years ...int) *calendar.Calendar {
	c := calendar.NewCalendar("Nasdaq Copenhagen", loc, years...)
	c.SetSession(&calendar.Session{Open: 9 * time.Hour, Close: 17 * time.Hour})
	c.AddHolidays(
		calendar.NewYear,
		calendar.MaundyThursday,
		calendar.GoodFriday,
		calendar.EasterMonday,
		greatPrayerDay,
		calendar.AscensionDay,
		dayAfterAscension,
		calendar.PentecostMonday,
		danishConstitutionDay,
		calendar.ChristmasEve,
		calendar.ChristmasDay,
		calendar.BoxingDay,
		calendar.NewYearsEve,
	)
	return c
}

// -----------------------------------------------------------------------------

// Nasdaq Helsinki
func xhel(loc *time.Location, years ...int) *calendar.Calendar {
	c := calendar.NewCalendar("Nasdaq Helsinki", loc, years...)
	c.SetSession(&calendar.Session{Open: 10 * time.Hour, Close: 18*time.Hour + 30*time.Minute})
	c.AddHolidays(
		calendar.NewYear,
		calendar.Epiphany,
		calendar.GoodFriday,
		calendar.EasterMonday,
		calendar.WorkersDay,
		calendar.AscensionDay,
		midsummerEve,
		finnishIndependenceDay,
		calendar.ChristmasEve,
		calendar.ChristmasDay,
		calendar.BoxingDay,
		calendar.NewYearsEve,
	)
	return c
}

// -----------------------------------------------------------------------------

// Oslo Bors
func xosl(loc *time.Location, years ...int) *calendar.Calendar {
	c := calendar.NewCalendar("Oslo Bors", loc, years...)
	c.SetSession(&calendar.Session{Open: 9 * time.Hour, Close: 16*time.Hour + 20*time.Minute})
	c.AddHolidays(
		calendar.NewYear,
		calendar.MaundyThursday,
		calendar.GoodFriday,
		calendar.EasterMonday,
		calendar.WorkersDay,
		norwegianConstitution,
		calendar.AscensionDay,
		calendar.PentecostMonday,
		calendar.ChristmasEve,
		calendar.ChristmasDay,
		calendar.BoxingDay,
		calendar.NewYearsEve,
	)
	return c
}

// -----------------------------------------------------------------------------

// Toronto Stock Exchange
func xtse(loc *time.Location, years ...int) *calendar.Calendar {
	c := calendar.NewCalendar("Toronto Stock Exchange", loc, years...)
	c.SetSession(&calendar.Session{Open: 9*time.Hour + 30*time.Minute, Close: 16 * time.Hour})
	c.AddHolidays(
		canadaNewYear,
		familyDay,
		calendar.GoodFriday,
		victoriaDay,
		canadaDay,
		civicHoliday,
		calendar.LaborDay,
		canadaThanks,
		canadaChristmas,
		canadaBoxingDay,
	)
	return c
}
