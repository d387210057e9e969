// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_script

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// DefaultTimeZone anchors every calculation when neither the lead nor the
// agent carries a valid IANA zone.
const DefaultTimeZone = "America/Phoenix"

// todayLeadInMinutes is the minimum distance into the future a same-day
// offer may sit, before rounding up to the next half hour.
const todayLeadInMinutes = 30

// LadderRungs is the number of time-offer rungs before the ladder repeats
// its most direct line.
const LadderRungs = 5

// windowRanges maps each window to its minute-of-day span. Slots step by
// 30 minutes across the inclusive range.
var windowRanges = map[Window]struct{ start, end int }{
	WindowMorning:       {8 * 60, 11*60 + 30},
	WindowLateMorning:   {10 * 60, 12 * 60},
	WindowAfternoon:     {12 * 60, 16*60 + 30},
	WindowMidAfternoon:  {13*60 + 30, 16 * 60},
	WindowLateAfternoon: {15*60 + 30, 18 * 60},
	WindowEvening:       {17 * 60, 20*60 + 30},
	WindowLateEvening:   {19 * 60, 21*60 + 30},
}

// TimeOfferParams collects everything the ladder needs for one rung.
type TimeOfferParams struct {
	// Identity fields fold into the offer seed so different callers hear
	// different pairs, but one caller hears stable pairs all call long.
	LeadID    string
	SessionID string
	CallID    string
	Phone     string
	Email     string
	FirstName string
	AgentName string

	Day    DayHint
	Window Window
	Rung   int

	PreferLater   bool
	PreferEarlier bool
	SoonHours     bool

	Now     time.Time
	LeadTZ  string
	AgentTZ string
}

// TimeOffer is one produced ladder line plus the concrete pair it offered.
type TimeOffer struct {
	Line   string
	Times  []OfferedTime
	Day    DayHint
	Window Window
}

// ResolveLocation walks the tz precedence chain: lead zone, then agent
// zone, then the platform default. Invalid names fall through the chain.
func ResolveLocation(leadTZ, agentTZ string) *time.Location {
	for _, name := range []string{leadTZ, agentTZ, DefaultTimeZone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// offerSeed is a stable 32-bit FNV-1a over the call identity plus the rung
// coordinates. Identical inputs always produce the identical pair.
func offerSeed(p TimeOfferParams) uint32 {
	h := fnv.New32a()
	for _, part := range []string{
		p.LeadID, p.SessionID, p.CallID, p.Phone, p.Email,
		p.FirstName, p.AgentName, string(p.Day), string(p.Window),
		fmt.Sprintf("%d", p.Rung),
	} {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}
	return h.Sum32()
}

// windowSlots generates the minute-of-day slot list for a window.
func windowSlots(w Window) []int {
	r, ok := windowRanges[w]
	if !ok {
		r = windowRanges[WindowAfternoon]
	}
	var slots []int
	for m := r.start; m <= r.end; m += 30 {
		slots = append(slots, m)
	}
	return slots
}

// roundUpToHalfHour rounds a minute-of-day up to the next 30-minute mark.
func roundUpToHalfHour(minute int) int {
	if minute%30 == 0 {
		return minute
	}
	return (minute/30 + 1) * 30
}

// GetTimeOfferLine produces the next rung of the time-offer ladder: two
// adjacent concrete clock times inside the resolved window, filtered to the
// future when the day is today, with a tomorrow-afternoon fallback when
// today has run out of room.
func GetTimeOfferLine(p TimeOfferParams) TimeOffer {
	loc := ResolveLocation(p.LeadTZ, p.AgentTZ)
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	if p.SoonHours {
		return soonHoursOffer(p, now)
	}

	day := p.Day
	if day == DayNone {
		day = DayTomorrow
	}
	window := p.Window
	if window == WindowNone {
		if day == DayToday {
			window = WindowEvening
		} else {
			window = WindowAfternoon
		}
	}

	slots := windowSlots(window)
	if day == DayToday {
		cutoff := roundUpToHalfHour(now.Hour()*60 + now.Minute() + todayLeadInMinutes)
		var future []int
		for _, m := range slots {
			if m >= cutoff {
				future = append(future, m)
			}
		}
		if len(future) < 2 {
			// Today is out of room in this window; offer tomorrow instead.
			day = DayTomorrow
			window = WindowAfternoon
			slots = windowSlots(window)
		} else {
			slots = future
		}
	}

	first, second := pickAdjacentPair(slots, offerSeed(p), p.PreferEarlier, p.PreferLater)
	times := []OfferedTime{
		{Hour: first / 60, Minute: first % 60, Day: day},
		{Hour: second / 60, Minute: second % 60, Day: day},
	}
	return TimeOffer{
		Line:   ladderLine(p.Rung, formatClock(times[0]), formatClock(times[1]), day, window),
		Times:  times,
		Day:    day,
		Window: window,
	}
}

// pickAdjacentPair selects two adjacent slots. The seed spreads pair choice
// across callers; earlier/later preferences pin the ends.
func pickAdjacentPair(slots []int, seed uint32, earlier, later bool) (int, int) {
	if len(slots) == 0 {
		return 14 * 60, 14*60 + 30
	}
	if len(slots) == 1 {
		return slots[0], slots[0] + 30
	}
	pairCount := len(slots) - 1
	idx := int(seed % uint32(pairCount))
	if earlier {
		idx = 0
	} else if later {
		// Seeded within the later half so repeated "later" answers still
		// vary between callers.
		half := pairCount / 2
		idx = half + int(seed%uint32(pairCount-half))
	}
	return slots[idx], slots[idx+1]
}

func soonHoursOffer(p TimeOfferParams, now time.Time) TimeOffer {
	oneHour := now.Add(time.Hour)
	twoHours := now.Add(2 * time.Hour)
	times := []OfferedTime{
		{Hour: oneHour.Hour(), Minute: oneHour.Minute(), Day: DayToday},
		{Hour: twoHours.Hour(), Minute: twoHours.Minute(), Day: DayToday},
	}
	line := "I can have them call you 1 hour from now or 2 hours from now. Which works better?"
	if p.Rung >= LadderRungs-1 {
		line = "Tell you what, I can just lock in a call 1 hour from now and you're all set. Sound good?"
		times = times[:1]
	}
	return TimeOffer{Line: line, Times: times, Day: DayToday, Window: WindowNone}
}

// ladderLine renders the rung's wording. Directness increases with the
// rung; the last rung just locks the earlier time in.
func ladderLine(rung int, t1, t2 string, day DayHint, window Window) string {
	dayPhrase := string(day)
	windowPhrase := strings.ReplaceAll(string(window), "_", " ")
	if rung >= LadderRungs {
		rung = LadderRungs - 1
	}
	if rung < 0 {
		rung = 0
	}
	switch rung {
	case 0:
		return fmt.Sprintf("%s %s works great. I've got %s or %s. Which is better for you?", capitalize(dayPhrase), windowPhrase, t1, t2)
	case 1:
		return fmt.Sprintf("Let's pin it down. I can do %s or %s %s. Which one should I grab?", t1, t2, dayPhrase)
	case 2:
		return fmt.Sprintf("Easiest thing is to grab a slot while we're on. %s or %s %s?", t1, t2, dayPhrase)
	case 3:
		return fmt.Sprintf("The last two I have %s are %s and %s. Want me to hold one for you?", dayPhrase, t1, t2)
	default:
		return fmt.Sprintf("Tell you what, I can just lock in %s %s and you're done. Sound good?", t1, dayPhrase)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatClock renders an OfferedTime as spoken clock text ("2:30 PM").
func formatClock(t OfferedTime) string {
	hour := t.Hour % 12
	if hour == 0 {
		hour = 12
	}
	meridiem := "AM"
	if t.Hour >= 12 {
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, meridiem)
}
