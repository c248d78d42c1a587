package transcript

import (
	"errors"
	"time"
)

// TimestampLayout is the timestamp format used in transcript files
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one translated utterance
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	UtteranceID string    `json:"utterance_id"`
	SourceLang  string    `json:"source_lang"`
	TargetLang  string    `json:"target_lang"`
	SourceText  string    `json:"source_text"`
	TargetText  string    `json:"target_text"`
}

// Store is an append-only sink for records
type Store interface {
	Append(rec Record) error
}

var languageNames = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"hi": "Hindi",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"zh": "Chinese",
}

// LanguageName returns the English name of a language code, or the code itself when unknown
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

type tee []Store

// Tee returns a store that appends every record to all stores.
// All stores are attempted; their errors are joined.
func Tee(stores ...Store) Store {
	return tee(stores)
}

func (t tee) Append(rec Record) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
