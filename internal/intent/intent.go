// Package intent classifies a transcribed utterance as a music request, an
// alarm request, or neither — first with a fast rule-based pass, and
// optionally via an LLM-backed JSON classification.
package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hubenschmidt/voice-gateway/internal/metrics"
	"github.com/hubenschmidt/voice-gateway/internal/prompts"
)

// JSONChatter is the slice of the LLM adapter Detect needs: a strict JSON
// completion call. Declared locally so this package never imports pipeline
// (the pipeline orchestrator imports intent, not the other way around).
type JSONChatter interface {
	ChatJSON(ctx context.Context, userText, systemPrompt string, maxTokens int, temperature float64) map[string]any
}

// Result is the outcome of a classification pass.
type Result struct {
	Intent       string // music | alarm | other
	SongName     string
	AlarmTime    string // HH:MM, only set when Intent == "alarm"
	AlarmMessage string
}

var triggerWords = []string{"mở", "mơ", "mỡ", "phát", "bật", "nghe", "play"}
var musicWords = []string{"nhạc", "bài", "bài hát", "ca sĩ", "playlist", "music"}
var alarmTriggers = []string{"báo thức", "đặt báo thức", "hẹn giờ", "báo", "báo cho tôi"}

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2}:\d{2})\s*(am|pm)?`),
	regexp.MustCompile(`(\d{1,2})\s*(am|pm)`),
	regexp.MustCompile(`(\d{1,2})h(?:ố?i|ờ)?\s*(\d{1,2})?`),
	regexp.MustCompile(`(\d{1,2})\s*giờ\s*(\d{1,2})?`),
}

var (
	musicFillerRe = regexp.MustCompile(`(?:^|[^\p{L}\p{M}\p{N}])(?:mở|mơ|phát|bật|nghe|cho\s+tôi|giúp\s+tôi|play|bài\s+hát|bài|nhạc|music)(?:[^\p{L}\p{M}\p{N}]|$)`)
	alarmWordsRe  = regexp.MustCompile(`\b(đặt\s+báo\s+thức|báo\s+thức|hẹn\s+giờ|báo|báo\s+cho\s+tôi)\b`)
	daypartRe     = regexp.MustCompile(`\b(sáng|chiều|tối)\b`)
	ampmWordRe    = regexp.MustCompile(`\b(am|pm)\b`)
	timeTokenRe   = regexp.MustCompile(`\d{1,2}(:\d{2})?h?\b`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	leadingDigit  = regexp.MustCompile(`(\d{1,2})`)
)

// DetectFast is the rule-based classifier: checks the trigger and music word
// sets for a music request, then the alarm word set with four time-extraction
// patterns, falling back to "other".
func DetectFast(userText string) Result {
	text := strings.TrimSpace(userText)
	lowered := strings.ToLower(text)

	hasTrigger := containsAny(lowered, triggerWords)
	hasMusic := containsAny(lowered, musicWords)

	if hasTrigger && hasMusic {
		// Adjacent fillers share one separator, so a single pass can skip
		// every other one; repeat until nothing more is removed.
		cleaned := lowered
		for {
			next := musicFillerRe.ReplaceAllString(cleaned, " ")
			if next == cleaned {
				break
			}
			cleaned = next
		}
		cleaned = strings.Trim(whitespaceRe.ReplaceAllString(cleaned, " "), " ,.!?\n\t")
		songName := cleaned
		if songName == "" {
			songName = "nhạc việt"
		}
		metrics.IntentFastPathHits.WithLabelValues("music").Inc()
		return Result{Intent: "music", SongName: songName}
	}

	if containsAny(lowered, alarmTriggers) {
		metrics.IntentFastPathHits.WithLabelValues("alarm").Inc()
		return detectAlarm(lowered)
	}

	metrics.IntentFastPathHits.WithLabelValues("other").Inc()
	return Result{Intent: "other"}
}

func detectAlarm(lowered string) Result {
	timeStr := extractTime(lowered)

	message := alarmWordsRe.ReplaceAllString(lowered, " ")
	message = daypartRe.ReplaceAllString(message, " ")
	message = ampmWordRe.ReplaceAllString(message, " ")
	message = timeTokenRe.ReplaceAllString(message, " ")
	message = strings.Trim(whitespaceRe.ReplaceAllString(message, " "), " ,.!?\n\t")
	if message == "" {
		message = "Báo thức"
	}

	return Result{Intent: "alarm", AlarmTime: timeStr, AlarmMessage: message}
}

func extractTime(lowered string) string {
	for _, pat := range timePatterns {
		m := pat.FindStringSubmatch(lowered)
		if m == nil {
			continue
		}
		if t, ok := normalizeTime(m); ok {
			return t
		}
	}

	switch {
	case strings.Contains(lowered, "sáng"):
		if m := leadingDigit.FindStringSubmatch(lowered); m != nil {
			hh, _ := strconv.Atoi(m[1])
			hh %= 24
			if hh == 12 {
				hh = 0
			}
			return pad2(hh) + ":00"
		}
	case strings.Contains(lowered, "chiều") || strings.Contains(lowered, "tối"):
		if m := leadingDigit.FindStringSubmatch(lowered); m != nil {
			hh, _ := strconv.Atoi(m[1])
			hh = (hh % 12) + 12
			return pad2(hh) + ":00"
		}
	}
	return ""
}

// normalizeTime mirrors the original matcher's group semantics: m[1] is
// always group 1; m[2] (if present) may be an am/pm marker or a minutes group.
func normalizeTime(m []string) (string, bool) {
	g1 := m[1]
	var g2 string
	if len(m) > 2 {
		g2 = m[2]
	}

	if strings.Contains(g1, ":") {
		parts := strings.SplitN(g1, ":", 2)
		hh, err1 := strconv.Atoi(parts[0])
		mm, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return "", false
		}
		hh %= 24
		mm %= 60
		lg2 := strings.ToLower(g2)
		if lg2 == "pm" && hh < 12 {
			hh += 12
		}
		if lg2 == "am" && hh == 12 {
			hh = 0
		}
		return pad2(hh) + ":" + pad2(mm), true
	}

	lg2 := strings.ToLower(g2)
	if lg2 == "am" || lg2 == "pm" {
		hh, err := strconv.Atoi(g1)
		if err != nil {
			return "", false
		}
		hh %= 12
		if lg2 == "pm" {
			hh = (hh % 12) + 12
		}
		return pad2(hh) + ":00", true
	}

	if g2 == "" {
		hh, err := strconv.Atoi(g1)
		if err != nil {
			return "", false
		}
		hh %= 24
		return pad2(hh) + ":00", true
	}

	hh, err1 := strconv.Atoi(g1)
	if err1 != nil {
		return "", false
	}
	hh %= 24
	mm, err2 := strconv.Atoi(g2)
	if err2 != nil {
		mm = 0
	}
	return pad2(hh) + ":" + pad2(mm), true
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Detect is the LLM-backed JSON classifier, using the fixed intent prompt.
// A missing or empty song_name on a "music" verdict is substituted with
// "nhạc việt".
func Detect(ctx context.Context, llm JSONChatter, userText string) Result {
	data := llm.ChatJSON(ctx, userText, prompts.IntentPrompt, 120, 0.0)
	if data == nil {
		return Result{Intent: "other"}
	}

	rawIntent, _ := data["intent"].(string)
	intent := "other"
	if strings.ToLower(strings.TrimSpace(rawIntent)) == "music" {
		intent = "music"
	}

	songName, _ := data["song_name"].(string)
	songName = strings.TrimSpace(songName)
	if intent == "music" && songName == "" {
		songName = "nhạc việt"
	}

	return Result{Intent: intent, SongName: songName}
}
