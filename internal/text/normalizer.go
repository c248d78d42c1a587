// Package text cleans recognizer output before translation.
//
// Both passes are pure and deterministic. Dedup collapses recognizer stutter
// ("the the the cat") by keeping only the first occurrence of each whitespace
// token. The vocabulary filter drops alphabetic tokens that are neither in the
// reference vocabulary nor title-cased.
package text

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	wordPattern     = regexp.MustCompile(`[A-Za-z]+`)
	unsafeTextChars = regexp.MustCompile(`[^a-zA-Z0-9.,!?' ]`)
)

// Vocabulary is a set of lowercase reference words
type Vocabulary map[string]struct{}

// NewVocabulary builds a vocabulary from words; entries are lowercased
func NewVocabulary(words ...string) Vocabulary {
	v := make(Vocabulary, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			v[w] = struct{}{}
		}
	}
	return v
}

// Contains reports whether the lowercase form of word is in the vocabulary
func (v Vocabulary) Contains(word string) bool {
	_, ok := v[strings.ToLower(word)]
	return ok
}

// LoadVocabulary reads a word list with one word per line. Blank lines and lines starting with # are ignored.
func LoadVocabulary(path string) (Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer f.Close()

	v := Vocabulary{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Normalizer applies dedup followed by the vocabulary filter.
// A nil vocabulary disables the filter.
type Normalizer struct {
	vocab Vocabulary
}

// NewNormalizer creates a normalizer over vocab
func NewNormalizer(vocab Vocabulary) *Normalizer {
	return &Normalizer{vocab: vocab}
}

// Normalize runs both passes and trims the result
func (n *Normalizer) Normalize(s string) string {
	out := Dedup(s)
	if n != nil && n.vocab != nil {
		out = FilterVocabulary(out, n.vocab)
	}
	return strings.TrimSpace(out)
}

// Dedup removes repeated whitespace tokens, keeping the first occurrence of each in order
func Dedup(s string) string {
	fields := strings.Fields(s)
	seen := make(map[string]struct{}, len(fields))
	kept := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// FilterVocabulary keeps alphabetic tokens that are in vocab or title-cased.
// Punctuation and digits are dropped with the tokenization. The title-case rule admits
// sentence-initial words and rejects lowercase proper nouns; it is a heuristic.
func FilterVocabulary(s string, vocab Vocabulary) string {
	tokens := wordPattern.FindAllString(s, -1)
	kept := tokens[:0]
	for _, tok := range tokens {
		if vocab.Contains(tok) || IsTitle(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// IsTitle reports whether word starts with an upper-case letter followed only by lower-case letters
func IsTitle(word string) bool {
	first, size := utf8.DecodeRuneInString(word)
	if size == 0 || !unicode.IsUpper(first) {
		return false
	}
	for _, r := range word[size:] {
		if unicode.IsLetter(r) && !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// Sanitize strips characters the translation backends choke on, keeping ASCII
// letters, digits, spaces and basic punctuation.
func Sanitize(s string) string {
	return strings.TrimSpace(unsafeTextChars.ReplaceAllString(s, ""))
}
