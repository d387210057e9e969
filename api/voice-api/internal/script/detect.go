// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package internal_script

import (
	"regexp"
	"strconv"
	"strings"
)

// All detectors run on every committed turn; patterns are compiled once and
// substring batteries stay small.

// ============================================================================
// Clock time detection
// ============================================================================

var (
	// "2pm", "2 p.m.", "2:30pm", "two o'clock" is out of scope — digits only.
	clockMeridiem = regexp.MustCompile(`\b(1[0-2]|0?[1-9])(?::([0-5][0-9]))?\s*(a\.?m\.?|p\.?m\.?)\b`)
	// "14:00", "9:30" without meridiem.
	clock24h = regexp.MustCompile(`\b([01]?[0-9]|2[0-3]):([0-5][0-9])\b`)
	// "at 2", "around 3" — bare hour anchored by a preposition.
	clockBareHour = regexp.MustCompile(`\b(?:at|around|about|by)\s+(1[0-2]|0?[1-9])\b`)

	oclock = regexp.MustCompile(`\b(1[0-2]|0?[1-9])\s*o'?clock\b`)
)

// ClockTime is a parsed 24h clock time from user text.
type ClockTime struct {
	Hour   int
	Minute int
}

// ContainsExactClockTime reports whether text names a concrete clock time.
func ContainsExactClockTime(text string) bool {
	_, ok := ExtractClockTime(text)
	return ok
}

// ExtractClockTime parses the first clock time out of text. Meridiem forms
// resolve exactly; bare hours ("at 2") assume the daytime reading (2 -> 14).
func ExtractClockTime(text string) (ClockTime, bool) {
	lower := strings.ToLower(text)

	if m := clockMeridiem.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if strings.HasPrefix(m[3], "p") && hour != 12 {
			hour += 12
		}
		if strings.HasPrefix(m[3], "a") && hour == 12 {
			hour = 0
		}
		return ClockTime{Hour: hour, Minute: minute}, true
	}

	if m := clock24h.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		// "2:30" with no meridiem reads as the daytime 14:30, not 02:30.
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
		return ClockTime{Hour: hour, Minute: minute}, true
	}

	if m := oclock.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return ClockTime{Hour: daytimeHour(hour), Minute: 0}, true
	}

	if m := clockBareHour.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return ClockTime{Hour: daytimeHour(hour), Minute: 0}, true
	}

	return ClockTime{}, false
}

// daytimeHour biases an ambiguous 1-12 hour into the calling window
// (9-11 stay morning, everything else reads as afternoon/evening).
func daytimeHour(hour int) int {
	if hour >= 9 && hour <= 11 {
		return hour
	}
	if hour == 12 {
		return 12
	}
	return hour + 12
}

// MatchOfferedTime resolves text against a previously offered pair: a bare
// number matching an offered hour, or an ordinal/comparative pick.
func MatchOfferedTime(text string, offered []OfferedTime) (OfferedTime, bool) {
	if len(offered) == 0 {
		return OfferedTime{}, false
	}
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "first one"), strings.Contains(lower, "earlier one"),
		strings.Contains(lower, "the first"), strings.Contains(lower, "the earlier"):
		return offered[0], true
	case strings.Contains(lower, "second one"), strings.Contains(lower, "later one"),
		strings.Contains(lower, "the second"), strings.Contains(lower, "the later"),
		strings.Contains(lower, "the last"):
		return offered[len(offered)-1], true
	}

	if ct, ok := ExtractClockTime(lower); ok {
		for _, o := range offered {
			if o.Hour == ct.Hour && o.Minute == ct.Minute {
				return o, true
			}
		}
	}

	// Bare "2" / "2 30" against the offered hours.
	for _, token := range strings.Fields(strings.Map(keepDigitsAndSpace, lower)) {
		n, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		for _, o := range offered {
			if o.Hour == n || o.Hour%12 == n%12 {
				return o, true
			}
		}
	}
	return OfferedTime{}, false
}

func keepDigitsAndSpace(r rune) rune {
	if r >= '0' && r <= '9' || r == ' ' {
		return r
	}
	return ' '
}

// ============================================================================
// Day and window hints
// ============================================================================

// DetectDayHint finds a today/tomorrow preference in user text.
func DetectDayHint(text string) DayHint {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "tomorrow"):
		return DayTomorrow
	case strings.Contains(lower, "today"), strings.Contains(lower, "tonight"),
		strings.Contains(lower, "this evening"), strings.Contains(lower, "this afternoon"),
		strings.Contains(lower, "this morning"):
		return DayToday
	default:
		return DayNone
	}
}

// DetectWindowHint finds a time-of-day window in user text.
func DetectWindowHint(text string) Window {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "late morning"):
		return WindowLateMorning
	case strings.Contains(lower, "mid afternoon"), strings.Contains(lower, "mid-afternoon"):
		return WindowMidAfternoon
	case strings.Contains(lower, "late afternoon"):
		return WindowLateAfternoon
	case strings.Contains(lower, "late evening"), strings.Contains(lower, "night"):
		return WindowLateEvening
	case strings.Contains(lower, "morning"):
		return WindowMorning
	case strings.Contains(lower, "afternoon"), strings.Contains(lower, "noon"), strings.Contains(lower, "lunch"):
		return WindowAfternoon
	case strings.Contains(lower, "evening"), strings.Contains(lower, "tonight"), strings.Contains(lower, "after work"), strings.Contains(lower, "after dinner"):
		return WindowEvening
	default:
		return WindowNone
	}
}

// WantsSoonHours reports a "call me in an hour or two" style answer, which
// switches the ladder to relative-hour offers.
func WantsSoonHours(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "in an hour") ||
		strings.Contains(lower, "in a hour") ||
		strings.Contains(lower, "in a couple hours") ||
		strings.Contains(lower, "in a couple of hours") ||
		strings.Contains(lower, "in a few hours") ||
		strings.Contains(lower, "little later today") ||
		strings.Contains(lower, "bit later today")
}

// PrefersLater / PrefersEarlier nudge which adjacent pair the ladder offers.
func PrefersLater(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "later") || strings.Contains(lower, "not that early")
}

func PrefersEarlier(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "earlier") || strings.Contains(lower, "sooner") ||
		strings.Contains(lower, "first thing")
}

// IsIndecision catches "you pick / whenever" style answers that let the
// ladder choose for the caller.
func IsIndecision(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range []string{
		"you pick", "you choose", "whenever", "any time", "anytime",
		"doesn't matter", "dont care", "don't care", "whatever works",
		"up to you", "either one", "either works",
	} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ============================================================================
// Affirmation / negation / hearing
// ============================================================================

var affirmations = []string{
	"yes", "yeah", "yep", "yup", "sure", "okay", "ok", "sounds good",
	"that works", "that's fine", "thats fine", "perfect", "correct",
	"absolutely", "of course", "go ahead", "works for me", "alright",
	"all right", "fine",
}

// IsAffirmative reports a positive confirmation.
func IsAffirmative(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}
	// A leading negation dominates ("no that doesn't work").
	if strings.HasPrefix(lower, "no") || strings.HasPrefix(lower, "nah") ||
		strings.HasPrefix(lower, "nope") {
		return false
	}
	for _, a := range affirmations {
		if lower == a || strings.HasPrefix(lower, a+" ") || strings.HasPrefix(lower, a+",") ||
			strings.Contains(lower, " "+a) {
			return true
		}
	}
	return false
}

// IsNegativeHearing catches "can't hear you / breaking up" replies to the
// greeting, which warrant a hearing-check retry instead of advancing.
func IsNegativeHearing(text string) bool {
	lower := strings.ToLower(text)
	// Only negated hearing counts; "yes I can hear you" is an affirmative
	// greeting reply, not a hearing complaint.
	for _, phrase := range []string{
		"can't hear", "cant hear", "cannot hear", "breaking up", "speak up",
		"bad connection", "you're cutting", "youre cutting", "cutting out",
		"static",
	} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	trimmed := strings.TrimSpace(lower)
	return trimmed == "no" || trimmed == "no?"
}

// ============================================================================
// Filler
// ============================================================================

var fillerPhrases = []string{
	"um", "uh", "hmm", "hm", "mhm", "what", "huh", "sorry", "wait",
	"hold on", "one sec", "one second", "say that again", "come again",
	"pardon", "excuse me",
}

// IsFiller reports a low-content utterance that deserves a short grace
// window before the gate reacts.
func IsFiller(text string) bool {
	lower := strings.TrimSpace(strings.ToLower(text))
	lower = strings.Trim(lower, ".,!?")
	if lower == "" {
		return true
	}
	for _, f := range fillerPhrases {
		if lower == f {
			return true
		}
	}
	// Two-word stutters built entirely from filler tokens ("um uh").
	fields := strings.Fields(lower)
	if len(fields) <= 2 {
		all := true
		for _, w := range fields {
			ok := false
			for _, f := range fillerPhrases {
				if w == f {
					ok = true
					break
				}
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// ============================================================================
// Objections and caller questions
// ============================================================================

// ObjectionKind identifies a deflection the rebuttal table knows how to
// answer.
type ObjectionKind string

const (
	ObjectionNotInterested  ObjectionKind = "not_interested"
	ObjectionTooBusy        ObjectionKind = "too_busy"
	ObjectionAlreadyCovered ObjectionKind = "already_covered"
	ObjectionTooExpensive   ObjectionKind = "too_expensive"
	ObjectionSpouse         ObjectionKind = "spouse"
	ObjectionCallback       ObjectionKind = "callback"
	ObjectionStopCalling    ObjectionKind = "stop_calling"
	ObjectionSendInfo       ObjectionKind = "send_info"
)

var objectionBattery = []struct {
	kind    ObjectionKind
	phrases []string
}{
	{ObjectionStopCalling, []string{"stop calling", "take me off", "do not call", "don't call", "remove me", "quit calling"}},
	{ObjectionNotInterested, []string{"not interested", "no thanks", "no thank you", "don't need", "dont need", "not looking"}},
	{ObjectionAlreadyCovered, []string{"already have", "already covered", "i'm covered", "im covered", "have a policy", "got insurance", "have insurance"}},
	{ObjectionTooExpensive, []string{"can't afford", "cant afford", "too expensive", "no money", "cost too much", "tight right now"}},
	{ObjectionSpouse, []string{"my wife", "my husband", "my spouse", "talk to my", "ask my"}},
	{ObjectionTooBusy, []string{"busy", "at work", "driving", "in a meeting", "no time", "bad time"}},
	{ObjectionCallback, []string{"call me back", "call back", "call later", "another time", "try me later"}},
	{ObjectionSendInfo, []string{"send me", "mail me", "email me", "text me the info", "send information", "send the info"}},
}

// DetectObjection scans user text for a known objection, most severe first.
func DetectObjection(text string) (ObjectionKind, bool) {
	lower := strings.ToLower(text)
	for _, entry := range objectionBattery {
		for _, phrase := range entry.phrases {
			if strings.Contains(lower, phrase) {
				return entry.kind, true
			}
		}
	}
	return "", false
}

// QuestionKind identifies a caller question with a scripted answer.
type QuestionKind string

const (
	QuestionConfusedIdentity QuestionKind = "confused_identity"
	QuestionWhatIsThis       QuestionKind = "what_is_this"
	QuestionHowGotNumber     QuestionKind = "how_got_number"
	QuestionIsThisSales      QuestionKind = "is_this_sales"
	QuestionCost             QuestionKind = "cost_question"
	QuestionCompany          QuestionKind = "company_question"
	QuestionAreYouAI         QuestionKind = "are_you_ai"
)

var questionBattery = []struct {
	kind    QuestionKind
	phrases []string
}{
	{QuestionConfusedIdentity, []string{"who is this", "who's this", "whos this", "who are you", "who am i talking", "do i know you"}},
	{QuestionAreYouAI, []string{"are you a robot", "are you a bot", "are you ai", "is this a recording", "are you real", "real person"}},
	{QuestionHowGotNumber, []string{"how did you get", "where did you get my number", "who gave you my number"}},
	{QuestionIsThisSales, []string{"sales call", "selling me", "trying to sell", "telemarketer"}},
	{QuestionCost, []string{"how much", "what does it cost", "what's the cost", "whats the cost", "what is the cost", "price"}},
	{QuestionCompany, []string{"what company", "which company", "who do you work for", "company are you with"}},
	{QuestionWhatIsThis, []string{"what is this about", "what's this about", "whats this about", "what is this regarding", "why are you calling", "what do you want"}},
}

// DetectQuestionKindForTurn scans user text for a known caller question.
func DetectQuestionKindForTurn(text string) (QuestionKind, bool) {
	lower := strings.ToLower(text)
	for _, entry := range questionBattery {
		for _, phrase := range entry.phrases {
			if strings.Contains(lower, phrase) {
				return entry.kind, true
			}
		}
	}
	return "", false
}

// ============================================================================
// Discovery
// ============================================================================

var discoveryCues = []string{
	"coverage amount", "how much coverage", "your health", "health issues",
	"health conditions", "medications", "your age", "how old",
	"mortgage balance", "owe on the", "beneficiary", "smoker", "tobacco",
	"monthly budget", "income",
}

// IsDiscoveryLine reports whether a line is a discovery question (health,
// coverage, balance, age). Discovery is capped at two per call; subsequent
// discovery lines get replaced by the booking fallback.
func IsDiscoveryLine(text string) bool {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "?") {
		return false
	}
	for _, cue := range discoveryCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// ============================================================================
// Sentiment (ack prefix selection)
// ============================================================================

// Sentiment is a coarse read of the caller's reply used only to pick a
// bland ack prefix. Intentionally crude; mis-empathy is worse than none.
type Sentiment string

const (
	SentimentFriendly Sentiment = "friendly"
	SentimentEmpathic Sentiment = "empathic"
	SentimentNeutral  Sentiment = "neutral"
)

var empathicCues = []string{
	"passed away", "died", "sick", "cancer", "hospital", "lost my",
	"laid off", "struggling", "hard time", "rough",
}

var friendlyCues = []string{
	"thanks", "thank you", "appreciate", "sounds good", "great", "awesome", "perfect",
}

// DetectSentiment picks the ack tone for the caller's last reply.
func DetectSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	for _, cue := range empathicCues {
		if strings.Contains(lower, cue) {
			return SentimentEmpathic
		}
	}
	for _, cue := range friendlyCues {
		if strings.Contains(lower, cue) {
			return SentimentFriendly
		}
	}
	return SentimentNeutral
}
