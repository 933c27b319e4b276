package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

// minEnhanceLen leaves very short fragments alone; they are usually partial
// captions that the next update will replace.
const minEnhanceLen = 50

// corrections fixes the caption engine's most common misfires. Keys are
// matched as whole words, case-insensitively.
var corrections = map[string]string{
	"gonna":    "going to",
	"wanna":    "want to",
	"gotta":    "got to",
	"kinda":    "kind of",
	"sorta":    "sort of",
	"lemme":    "let me",
	"dont":     "don't",
	"cant":     "can't",
	"wont":     "won't",
	"didnt":    "didn't",
	"doesnt":   "doesn't",
	"isnt":     "isn't",
	"wasnt":    "wasn't",
	"couldnt":  "couldn't",
	"wouldnt":  "wouldn't",
	"shouldnt": "shouldn't",
	"thats":    "that's",
	"whats":    "what's",
	"theres":   "there's",
	"im":       "I'm",
	"ive":      "I've",
}

var (
	wordRe       = regexp.MustCompile(`[A-Za-z']+`)
	loneIRe      = regexp.MustCompile(`\bi\b`)
	multiSpaceRe = regexp.MustCompile(` {2,}`)
	spacePunctRe = regexp.MustCompile(` +([,.!?;:])`)
)

// Enhance cleans a raw caption update: whole-word corrections, standalone "i"
// capitalization, doubled-word collapse and spacing repair. Fragments shorter
// than minEnhanceLen pass through untouched.
func Enhance(text string) string {
	if len(strings.TrimSpace(text)) < minEnhanceLen {
		return text
	}
	out := wordRe.ReplaceAllStringFunc(text, func(w string) string {
		if fixed, ok := corrections[strings.ToLower(w)]; ok {
			return matchCase(w, fixed)
		}
		return w
	})
	out = loneIRe.ReplaceAllString(out, "I")
	out = collapseDoubles(out)
	out = spacePunctRe.ReplaceAllString(out, "$1")
	out = multiSpaceRe.ReplaceAllString(out, " ")
	return out
}

// collapseDoubles drops immediately repeated words, a common caption stutter.
// RE2 has no backreferences, so this is a token walk.
func collapseDoubles(text string) string {
	tokens := strings.Split(text, " ")
	out := tokens[:0]
	prev := ""
	for _, tok := range tokens {
		if tok != "" && strings.EqualFold(tok, prev) {
			continue
		}
		out = append(out, tok)
		prev = tok
	}
	return strings.Join(out, " ")
}

// Finalize is applied once when the meeting ends: sentence starts are
// capitalized and a missing terminal period is added.
func Finalize(text string) string {
	text = strings.TrimSpace(Enhance(text))
	if text == "" {
		return ""
	}
	runes := []rune(text)
	capNext := true
	for i, r := range runes {
		if capNext && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			capNext = false
			continue
		}
		switch r {
		case '.', '!', '?', '\n':
			capNext = true
		}
	}
	out := string(runes)
	switch out[len(out)-1] {
	case '.', '!', '?':
	default:
		out += "."
	}
	return out
}

// matchCase carries the original word's leading capitalization onto the
// replacement.
func matchCase(original, replacement string) string {
	if original == "" || replacement == "" {
		return replacement
	}
	first := []rune(original)[0]
	if unicode.IsUpper(first) {
		r := []rune(replacement)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}
	return replacement
}
