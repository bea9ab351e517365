// Package extract pulls email addresses, names and URLs out of free text.
// Every function is pure; absence is reported with ok == false.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}]+`)

	nameIntroPattern  = regexp.MustCompile(`(?i)\b(?:my name is|name is|name\s*:)\s*`)
	selfIntroPattern  = regexp.MustCompile(`(?i)\b(?:i am|i'm|this is|it's)\s*`)
	emailIntroPattern = regexp.MustCompile(`(?i)\b(?:my email address is|my email is|email address is|email is|email address\s*:|email\s*:|my email|you can reach me at|reach me at|contact me at)\s*`)
	nameWordPattern   = regexp.MustCompile(`^\p{L}[\p{L}'’.-]*$`)
)

// Words that can sit next to a name in a reply but are never part of it.
var fillerWords = map[string]bool{
	"and": true, "at": true, "is": true, "my": true, "me": true, "email": true,
	"hi": true, "hello": true, "hey": true, "yes": true, "sure": true, "ok": true,
	"okay": true, "please": true, "thanks": true, "thank": true, "you": true,
	"no": true, "here": true, "it": true, "the": true, "name": true,
}

// Words that show a segment is prose rather than a name, even when
// capitalised at the start of a sentence.
var nonNameWords = map[string]bool{
	"problem": true, "thing": true, "about": true, "what": true, "why": true,
	"how": true, "question": true, "questions": true, "help": true, "not": true,
	"refund": true, "refunds": true, "class": true, "classes": true, "course": true,
	"great": true, "fine": true, "good": true, "sorry": true, "do": true,
}

// Lowercase particles allowed inside a capitalised name.
var nameParticles = map[string]bool{
	"de": true, "del": true, "da": true, "di": true, "du": true, "la": true,
	"le": true, "van": true, "von": true, "der": true, "bin": true, "al": true,
}

const (
	maxNameWords = 4
	introMark    = "\x01"
)

// Email returns the first email-shaped substring of text, as written.
func Email(text string) (string, bool) {
	m := emailPattern.FindString(text)
	return m, m != ""
}

// Name returns a personal name found in text, typically a reply such as
// "Jane Doe, jane@example.com" or "my name is Jane and my email is ...".
// Text after an explicit "my name is" may be lowercase; anywhere else every
// word must be capitalised.
func Name(text string) (string, bool) {
	cleaned := strings.ReplaceAll(text, introMark, "")
	cleaned = emailPattern.ReplaceAllString(cleaned, ",")
	cleaned = emailIntroPattern.ReplaceAllString(cleaned, ",")
	cleaned = nameIntroPattern.ReplaceAllString(cleaned, ","+introMark)
	cleaned = selfIntroPattern.ReplaceAllString(cleaned, ",")

	segments := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '|' || r == '/'
	})
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		introduced := strings.HasPrefix(segment, introMark)
		segment = strings.TrimPrefix(segment, introMark)

		words := trimFiller(strings.Fields(strings.Trim(segment, " .!?:-")))
		if len(words) == 0 || len(words) > maxNameWords {
			continue
		}
		if allNameWords(words) && (introduced || capitalised(words)) {
			return strings.Join(words, " "), true
		}
	}
	return "", false
}

// URLs returns the http(s) URLs in text in order of appearance, without duplicates.
func URLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?*")
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		urls = append(urls, m)
	}
	return urls
}

func trimFiller(words []string) []string {
	for len(words) > 0 && fillerWords[strings.ToLower(strings.Trim(words[0], ".!?"))] {
		words = words[1:]
	}
	for len(words) > 0 && fillerWords[strings.ToLower(strings.Trim(words[len(words)-1], ".!?"))] {
		words = words[:len(words)-1]
	}
	return words
}

func allNameWords(words []string) bool {
	for _, w := range words {
		lower := strings.ToLower(w)
		if fillerWords[lower] || nonNameWords[lower] || !nameWordPattern.MatchString(w) {
			return false
		}
	}
	return true
}

func capitalised(words []string) bool {
	for i, w := range words {
		if i > 0 && nameParticles[w] {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
