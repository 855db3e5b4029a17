package transcribe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func word(text string, start, end int) Word {
	return Word{Text: text, Start: start, End: end, Confidence: 0.95}
}

func TestPlainText(t *testing.T) {
	r := &Result{Text: "Hello world."}
	require.Equal(t, "Hello world.", PlainText(r))

	r = &Result{Words: []Word{word("Hello", 0, 400), word("world.", 500, 900)}}
	require.Equal(t, "Hello world.", PlainText(r))
}

func TestParagraphs_SplitOnPause(t *testing.T) {
	r := &Result{Words: []Word{
		word("First", 0, 300),
		word("thought.", 350, 700),
		// 2s pause.
		word("Second", 2700, 3000),
		word("thought.", 3050, 3400),
	}}

	paras := Paragraphs(r, 0)
	require.Len(t, paras, 2)
	require.Equal(t, "First thought.", paras[0].Text)
	require.Equal(t, 0, paras[0].Start)
	require.Equal(t, 700, paras[0].End)
	require.Equal(t, "Second thought.", paras[1].Text)
	require.Equal(t, 2700, paras[1].Start)
	require.Equal(t, 3400, paras[1].End)
}

func TestParagraphs_SingleParagraphWithinGap(t *testing.T) {
	r := &Result{Words: []Word{
		word("no", 0, 200),
		word("pauses", 300, 600),
		word("here", 700, 1000),
	}}
	paras := Paragraphs(r, time.Second)
	require.Len(t, paras, 1)
	require.Equal(t, "no pauses here", paras[0].Text)
}

func TestSentences_SplitOnTerminalPunctuation(t *testing.T) {
	r := &Result{Words: []Word{
		word("Is", 0, 100),
		word("it?", 150, 400),
		word("Yes!", 500, 800),
		word("Then", 900, 1100),
		word("go.", 1200, 1500),
		word("trailing", 1600, 1900),
	}}

	sents := Sentences(r)
	require.Len(t, sents, 4)
	require.Equal(t, "Is it?", sents[0].Text)
	require.Equal(t, 0, sents[0].Start)
	require.Equal(t, 400, sents[0].End)
	require.Equal(t, "Yes!", sents[1].Text)
	require.Equal(t, "Then go.", sents[2].Text)
	// Words after the last terminator form a final span.
	require.Equal(t, "trailing", sents[3].Text)
}

func TestSentences_QuotedTerminator(t *testing.T) {
	r := &Result{Words: []Word{
		word("She", 0, 100),
		word(`said."`, 150, 400),
		word("Done", 500, 800),
	}}
	sents := Sentences(r)
	require.Len(t, sents, 2)
	require.Equal(t, `She said."`, sents[0].Text)
}

func TestSubtitleCues_TimestampRendering(t *testing.T) {
	r := &Result{Words: []Word{
		word("hello", 1200, 1500),
		word("world", 1600, 2100),
	}}

	cues := SubtitleCues(r, CueOptions{})
	require.Len(t, cues, 1)
	require.Equal(t, 1, cues[0].Index)

	srt := FormatSRT(cues)
	require.Equal(t, "1\n00:00:01,200 --> 00:00:02,100\nhello world\n\n", srt)
}

func TestSubtitleCues_CharacterBound(t *testing.T) {
	r := &Result{Words: []Word{
		word("aaaaa", 0, 500),
		word("bbbbb", 600, 1100),
		word("ccccc", 1200, 1700),
	}}

	cues := SubtitleCues(r, CueOptions{MaxChars: 11})
	require.Len(t, cues, 2)
	require.Equal(t, "aaaaa bbbbb", cues[0].Text)
	require.Equal(t, "ccccc", cues[1].Text)
	require.Equal(t, 1, cues[0].Index)
	require.Equal(t, 2, cues[1].Index)
}

func TestSubtitleCues_DurationBound(t *testing.T) {
	r := &Result{Words: []Word{
		word("one", 0, 400),
		word("two", 3000, 3400),
		word("three", 6000, 6400),
	}}

	cues := SubtitleCues(r, CueOptions{MaxDuration: 4 * time.Second})
	require.Len(t, cues, 2)
	require.Equal(t, "one two", cues[0].Text)
	require.Equal(t, 0, cues[0].Start)
	require.Equal(t, 3400, cues[0].End)
	require.Equal(t, "three", cues[1].Text)
}

func TestFormatSRT_HourBoundaryAndDelimiters(t *testing.T) {
	cues := []Cue{
		{Index: 1, Text: "first", Start: 0, End: 900},
		{Index: 2, Text: "second", Start: 3661001, End: 3662500},
	}
	srt := FormatSRT(cues)
	require.Contains(t, srt, "1\n00:00:00,000 --> 00:00:00,900\nfirst\n\n")
	require.Contains(t, srt, "2\n01:01:01,001 --> 01:01:02,500\nsecond\n\n")
	require.True(t, strings.HasSuffix(srt, "\n\n"))
}
