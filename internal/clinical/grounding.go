package clinical

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	minTokenLen      = 4
	groundedFraction = 0.5
)

// CheckGrounding returns the paths of populated text fields whose words
// mostly do not occur in source. Numbers and booleans are not checked, nor
// are values without any word of at least four letters. The check is
// advisory.
func CheckGrounding(rec *Record, source string) []string {
	if rec == nil {
		return nil
	}
	vocab := make(map[string]bool)
	for _, tok := range tokens(source) {
		vocab[tok] = true
	}

	var flagged []string
	check := func(path, text string) {
		toks := tokens(text)
		if len(toks) == 0 {
			return
		}
		hits := 0
		for _, tok := range toks {
			if vocab[tok] {
				hits++
			}
		}
		if float64(hits)/float64(len(toks)) < groundedFraction {
			flagged = append(flagged, path)
		}
	}

	for _, g := range Schema {
		if g.IsList() {
			for i, item := range rec.Objetivos {
				check(fmt.Sprintf("%s[%d]", g.Key, i), item)
			}
			continue
		}
		s := rec.Section(g.Key)
		if s == nil {
			continue
		}
		for _, f := range g.Fields {
			switch v := s[f.Key].(type) {
			case string:
				check(g.Key+"."+f.Key, v)
			case []string:
				for i, item := range v {
					check(fmt.Sprintf("%s.%s[%d]", g.Key, f.Key, i), item)
				}
			}
		}
	}
	return flagged
}

// tokens lower-cases and strips accents, then splits on anything that is not
// a letter or digit, keeping words of minTokenLen runes or more.
func tokens(text string) []string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	var out []string
	for _, w := range strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(w) >= minTokenLen {
			out = append(out, w)
		}
	}
	return out
}
