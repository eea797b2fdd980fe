package market

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/scmhub/calendar"
)

// DefaultMIC is used for unknown exchanges and suffix-less tickers.
const DefaultMIC = "xnys"

// Library holiday calendars are built from holidayFirstYear through
// holidayYearsAhead past the current year. Dates outside that range fall back
// to weekdays plus configured holidays.
const (
	holidayFirstYear  = 2000
	holidayYearsAhead = calendar.YearsAhead
)

// Bounds for the day-by-day walks in LastClose and NextOpen.
const (
	lastCloseLookbackDays = 7
	nextOpenLookaheadDays = 10
)

const dateKeyLayout = "2006-01-02"

// exchangeSpec is one row of the static exchange table.
type exchangeSpec struct {
	MIC      string
	Name     string
	Timezone string
	Open     string
	Close    string
	Suffixes []string
}

var exchangeTable = []exchangeSpec{
	{MIC: "xsto", Name: "Nasdaq Stockholm", Timezone: "Europe/Stockholm", Open: "09:00", Close: "17:30", Suffixes: []string{".ST"}},
	{MIC: "xcse", Name: "Nasdaq Copenhagen", Timezone: "Europe/Copenhagen", Open: "09:00", Close: "17:00", Suffixes: []string{".CO"}},
	{MIC: "xhel", Name: "Nasdaq Helsinki", Timezone: "Europe/Helsinki", Open: "10:00", Close: "18:30", Suffixes: []string{".HE"}},
	{MIC: "xosl", Name: "Oslo Bors", Timezone: "Europe/Oslo", Open: "09:00", Close: "16:20", Suffixes: []string{".OL"}},
	{MIC: "xlon", Name: "London Stock Exchange", Timezone: "Europe/London", Open: "08:00", Close: "16:30", Suffixes: []string{".L"}},
	{MIC: "xfra", Name: "Deutsche Boerse Xetra", Timezone: "Europe/Berlin", Open: "09:00", Close: "17:30", Suffixes: []string{".DE", ".F"}},
	{MIC: "xpar", Name: "Euronext Paris", Timezone: "Europe/Paris", Open: "09:00", Close: "17:30", Suffixes: []string{".PA"}},
	{MIC: "xams", Name: "Euronext Amsterdam", Timezone: "Europe/Amsterdam", Open: "09:00", Close: "17:30", Suffixes: []string{".AS"}},
	{MIC: "xtse", Name: "Toronto Stock Exchange", Timezone: "America/Toronto", Open: "09:30", Close: "16:00", Suffixes: []string{".TO"}},
	{MIC: "xnas", Name: "Nasdaq", Timezone: "America/New_York", Open: "09:30", Close: "16:00"},
	{MIC: "xnys", Name: "New York Stock Exchange", Timezone: "America/New_York", Open: "09:30", Close: "16:00"},
}

// -----------------------------------------------------------------------------

// Exchange holds the trading hours and holidays of one venue.
type Exchange struct {
	MIC      string
	Name     string
	Location *time.Location

	openMinute  int // minutes after local midnight
	closeMinute int
	holidays    map[string]struct{}

	// Library business-day check, valid for years in [firstYear, lastYear]
	business  func(time.Time) bool
	firstYear int
	lastYear  int
}

// -----------------------------------------------------------------------------

// NewExchange builds an exchange from explicit hours ("15:04") and holiday
// dates ("2006-01-02"). It carries no library calendar.
func NewExchange(mic, name, timezone, open, close string, holidays []string) (*Exchange, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("exchange %s: unknown timezone %q: %w", mic, timezone, err)
	}
	openMin, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("exchange %s: %w", mic, err)
	}
	closeMin, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("exchange %s: %w", mic, err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("exchange %s: close %s must be after open %s", mic, close, open)
	}

	e := &Exchange{
		MIC:         strings.ToLower(mic),
		Name:        name,
		Location:    loc,
		openMinute:  openMin,
		closeMinute: closeMin,
		holidays:    make(map[string]struct{}),
	}
	if err := e.AddHolidays(holidays...); err != nil {
		return nil, err
	}
	return e, nil
}

// -----------------------------------------------------------------------------

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// -----------------------------------------------------------------------------

// AddHolidays registers extra closed dates.
func (e *Exchange) AddHolidays(dates ...string) error {
	for _, d := range dates {
		if _, err := time.ParseInLocation(dateKeyLayout, d, e.Location); err != nil {
			return fmt.Errorf("exchange %s: invalid holiday %q", e.MIC, d)
		}
		e.holidays[d] = struct{}{}
	}
	return nil
}

// -----------------------------------------------------------------------------

// IsHoliday reports whether the exchange-local date of t is a closed weekday.
func (e *Exchange) IsHoliday(t time.Time) bool {
	local := t.In(e.Location)
	if _, ok := e.holidays[local.Format(dateKeyLayout)]; ok {
		return true
	}
	if e.business != nil && !isWeekend(local) && e.covers(local) {
		return !e.business(local)
	}
	return false
}

// -----------------------------------------------------------------------------

// covers reports whether the library calendar spans t's year. Outside it the
// library panics instead of answering.
func (e *Exchange) covers(t time.Time) bool {
	y := t.Year()
	return y >= e.firstYear && y <= e.lastYear
}

// -----------------------------------------------------------------------------

// attachHolidays uses cal for business-day checks within its year range. The
// exchange-local date is re-anchored in cal.Loc, which is not always the
// exchange's own zone.
func (e *Exchange) attachHolidays(cal *calendar.Calendar) {
	e.business = func(local time.Time) bool {
		y, m, d := local.Date()
		return cal.IsBusinessDay(time.Date(y, m, d, 12, 0, 0, 0, cal.Loc))
	}
	e.firstYear, e.lastYear = cal.Years()
}

// -----------------------------------------------------------------------------

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// -----------------------------------------------------------------------------

func (e *Exchange) IsTradingDay(t time.Time) bool {
	local := t.In(e.Location)
	return !isWeekend(local) && !e.IsHoliday(local)
}

// -----------------------------------------------------------------------------

// IsOpen is true on trading days within [open, close) local time.
func (e *Exchange) IsOpen(at time.Time) bool {
	local := at.In(e.Location)
	if !e.IsTradingDay(local) {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= e.openMinute && minute < e.closeMinute
}

// -----------------------------------------------------------------------------

func (e *Exchange) sessionTime(day time.Time, minuteOfDay int) time.Time {
	y, m, d := day.In(e.Location).Date()
	return time.Date(y, m, d, minuteOfDay/60, minuteOfDay%60, 0, 0, e.Location)
}

// -----------------------------------------------------------------------------

// noon anchors day arithmetic away from DST transitions.
func (e *Exchange) noon(t time.Time) time.Time {
	y, m, d := t.In(e.Location).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, e.Location)
}

// -----------------------------------------------------------------------------

// LastClose returns the most recent session close at or before at. The walk
// is bounded; when no trading day is found it returns at minus 24h.
func (e *Exchange) LastClose(at time.Time) time.Time {
	day := e.noon(at)
	for i := 0; i <= lastCloseLookbackDays; i++ {
		candidate := day.AddDate(0, 0, -i)
		if !e.IsTradingDay(candidate) {
			continue
		}
		closeAt := e.sessionTime(candidate, e.closeMinute)
		if closeAt.After(at) {
			continue
		}
		return closeAt
	}
	return at.Add(-24 * time.Hour)
}

// -----------------------------------------------------------------------------

// NextOpen returns the first session open strictly after at.
func (e *Exchange) NextOpen(at time.Time) time.Time {
	day := e.noon(at)
	for i := 0; i <= nextOpenLookaheadDays; i++ {
		candidate := day.AddDate(0, 0, i)
		if !e.IsTradingDay(candidate) {
			continue
		}
		openAt := e.sessionTime(candidate, e.openMinute)
		if !openAt.After(at) {
			continue
		}
		return openAt
	}
	return at.Add(24 * time.Hour)
}

// -----------------------------------------------------------------------------

// Calendar resolves exchanges by MIC or ticker suffix.
type Calendar struct {
	exchanges  map[string]*Exchange
	suffixes   map[string]string
	defaultMIC string
	Logger     *logger.Logger
	mu         sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewCalendar builds the static exchange table, attaching scmhub holiday
// calendars where one exists for the MIC.
func NewCalendar(cfg models.MMarketConfig, log *logger.Logger) (*Calendar, error) {
	c := NewStaticCalendar(cfg.DefaultExchange)
	c.Logger = log
	lastYear := time.Now().Year() + holidayYearsAhead

	for _, spec := range exchangeTable {
		ex, err := NewExchange(spec.MIC, spec.Name, spec.Timezone, spec.Open, spec.Close, nil)
		if err != nil {
			return nil, err
		}

		if cal := holidayCalendar(ex, lastYear); cal != nil {
			ex.attachHolidays(cal)
		} else {
			log.Warning("No holiday calendar for MIC '%s'. Using weekdays plus configured holidays.", spec.MIC)
		}

		if extra, ok := cfg.ExtraHolidays[spec.MIC]; ok {
			if err := ex.AddHolidays(extra...); err != nil {
				return nil, err
			}
		}
		c.Register(ex, spec.Suffixes...)
	}

	if _, ok := c.exchanges[c.defaultMIC]; !ok {
		return nil, fmt.Errorf("default exchange %q is not in the exchange table", c.defaultMIC)
	}
	return c, nil
}

// -----------------------------------------------------------------------------

// holidayCalendar returns the locally assembled calendar for the exchange MIC,
// else the one registered in scmhub. Nil when neither exists.
func holidayCalendar(ex *Exchange, lastYear int) *calendar.Calendar {
	if build, ok := localCalendars[ex.MIC]; ok {
		return build(ex.Location, holidayFirstYear, lastYear)
	}
	return calendar.GetCalendar(ex.MIC, holidayFirstYear, lastYear)
}

// -----------------------------------------------------------------------------

// NewStaticCalendar returns an empty calendar; exchanges are added with Register.
func NewStaticCalendar(defaultMIC string) *Calendar {
	if defaultMIC == "" {
		defaultMIC = DefaultMIC
	}
	return &Calendar{
		exchanges:  make(map[string]*Exchange),
		suffixes:   make(map[string]string),
		defaultMIC: strings.ToLower(defaultMIC),
		Logger:     logger.NewLogger(nil, "Calendar"),
	}
}

// -----------------------------------------------------------------------------

func (c *Calendar) Register(ex *Exchange, suffixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges[ex.MIC] = ex
	for _, s := range suffixes {
		c.suffixes[strings.ToUpper(s)] = ex.MIC
	}
}

// -----------------------------------------------------------------------------

// Exchange returns the exchange for mic. Unknown MICs fall back to the
// default calendar instead of failing.
func (c *Calendar) Exchange(mic string) *Exchange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ex, ok := c.exchanges[strings.ToLower(mic)]; ok {
		return ex
	}
	return c.exchanges[c.defaultMIC]
}

// -----------------------------------------------------------------------------

// MICForTicker maps a canonical ticker's suffix to its MIC.
func (c *Calendar) MICForTicker(ticker string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := strings.LastIndex(ticker, "."); i > 0 {
		if mic, ok := c.suffixes[strings.ToUpper(ticker[i:])]; ok {
			return mic
		}
	}
	return c.defaultMIC
}

// -----------------------------------------------------------------------------

func (c *Calendar) ForTicker(ticker string) *Exchange {
	return c.Exchange(c.MICForTicker(ticker))
}

// -----------------------------------------------------------------------------

func (c *Calendar) IsOpen(mic string, at time.Time) bool {
	return c.Exchange(mic).IsOpen(at)
}

// -----------------------------------------------------------------------------

func (c *Calendar) LastClose(mic string, at time.Time) time.Time {
	return c.Exchange(mic).LastClose(at)
}

// -----------------------------------------------------------------------------

func (c *Calendar) NextOpen(mic string, at time.Time) time.Time {
	return c.Exchange(mic).NextOpen(at)
}
