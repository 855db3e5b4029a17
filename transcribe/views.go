package transcribe

import (
	"fmt"
	"strings"
	"time"
)

// Derived views are pure functions of a raw Result. They are computed on
// demand and never persisted separately.

const (
	// DefaultParagraphGap is the inter-word pause that starts a new
	// paragraph when the provider marks no explicit boundaries.
	DefaultParagraphGap = 1500 * time.Millisecond
	// DefaultCueMaxChars bounds the text length of one subtitle cue.
	DefaultCueMaxChars = 80
	// DefaultCueMaxDuration bounds how long one subtitle cue stays on screen.
	DefaultCueMaxDuration = 5 * time.Second
)

// Span is a timed block of text. Start and End are milliseconds from the
// beginning of the audio.
type Span struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Cue is one numbered subtitle.
type Cue struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// PlainText returns the full transcript text, reassembling it from the
// word list when the provider's flat text is absent.
func PlainText(r *Result) string {
	if r.Text != "" {
		return r.Text
	}
	words := make([]string, len(r.Words))
	for i, w := range r.Words {
		words[i] = w.Text
	}
	return strings.Join(words, " ")
}

// Paragraphs groups consecutive words into paragraphs, starting a new one
// whenever the pause between words exceeds gap (DefaultParagraphGap when
// gap is zero or negative).
func Paragraphs(r *Result, gap time.Duration) []Span {
	if gap <= 0 {
		gap = DefaultParagraphGap
	}
	gapMillis := int(gap / time.Millisecond)

	var spans []Span
	var current []Word
	flush := func() {
		if len(current) == 0 {
			return
		}
		spans = append(spans, joinWords(current))
		current = current[:0]
	}

	for _, w := range r.Words {
		if len(current) > 0 && w.Start-current[len(current)-1].End > gapMillis {
			flush()
		}
		current = append(current, w)
	}
	flush()
	return spans
}

// Sentences splits the word stream on terminal punctuation. Each sentence's
// timestamps come from its first and last word.
func Sentences(r *Result) []Span {
	var spans []Span
	var current []Word

	for _, w := range r.Words {
		current = append(current, w)
		if endsSentence(w.Text) {
			spans = append(spans, joinWords(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		spans = append(spans, joinWords(current))
	}
	return spans
}

// CueOptions bounds subtitle cue construction.
type CueOptions struct {
	MaxChars    int
	MaxDuration time.Duration
}

// SubtitleCues groups words into caption-length cues. A cue closes when
// adding the next word would exceed the character bound or the duration
// bound. Cues are numbered from 1.
func SubtitleCues(r *Result, opts CueOptions) []Cue {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultCueMaxChars
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultCueMaxDuration
	}
	maxMillis := int(opts.MaxDuration / time.Millisecond)

	var cues []Cue
	var current []Word
	length := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		span := joinWords(current)
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Text:  span.Text,
			Start: span.Start,
			End:   span.End,
		})
		current = current[:0]
		length = 0
	}

	for _, w := range r.Words {
		if len(current) > 0 {
			tooLong := length+1+len(w.Text) > opts.MaxChars
			tooSlow := w.End-current[0].Start > maxMillis
			if tooLong || tooSlow {
				flush()
			}
		}
		if len(current) > 0 {
			length++ // joining space
		}
		length += len(w.Text)
		current = append(current, w)
	}
	flush()
	return cues
}

// FormatSRT renders cues in SubRip format: sequence number, timing line
// with HH:MM:SS,mmm timestamps, cue text, blank-line delimiter.
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue.Index, formatSRTTime(cue.Start), formatSRTTime(cue.End), cue.Text)
	}
	return b.String()
}

func formatSRTTime(millis int) string {
	if millis < 0 {
		millis = 0
	}
	hours := millis / 3600000
	minutes := (millis % 3600000) / 60000
	seconds := (millis % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis%1000)
}

func joinWords(words []Word) Span {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return Span{
		Text:  strings.Join(texts, " "),
		Start: words[0].Start,
		End:   words[len(words)-1].End,
	}
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')]`)
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}
