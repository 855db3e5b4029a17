package youtubetools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKey_Deterministic(t *testing.T) {
	a := NewKey("https://www.youtube.com/watch?v=abc123", KindAudio, "192")
	b := NewKey("https://www.youtube.com/watch?v=abc123", KindAudio, "192")
	require.Equal(t, a, b)
	require.False(t, a.IsZero())
}

func TestNewKey_DistinctInputsDistinctKeys(t *testing.T) {
	url := "https://www.youtube.com/watch?v=abc123"

	base := NewKey(url, KindAudio, "192")
	require.NotEqual(t, base, NewKey(url, KindVideo, "192"), "kind must affect the key")
	require.NotEqual(t, base, NewKey(url, KindAudio, "320"), "quality must affect the key")
	require.NotEqual(t, base, NewKey("https://www.youtube.com/watch?v=xyz789", KindAudio, "192"))

	// Field separators prevent boundary ambiguity between adjacent inputs.
	require.NotEqual(t, NewKey("ab", KindAudio, "192"), NewKey("a", Kind("baudio"), "192"))
}

func TestParseKey_RoundTrip(t *testing.T) {
	k := NewKey("https://example.com/v", KindVideo, "best")

	parsed, err := ParseKey(k.String())
	require.NoError(t, err)
	require.Equal(t, k, parsed)

	_, err = ParseKey("not-a-key")
	require.Error(t, err)

	_, err = ParseKey(k.String()[:10])
	require.Error(t, err)
}

func TestKind_Mappings(t *testing.T) {
	require.Equal(t, ".mp4", KindVideo.Ext())
	require.Equal(t, ".mp3", KindAudio.Ext())
	require.Equal(t, ".json", KindTranscript.Ext())

	require.Equal(t, "video/mp4", KindVideo.ContentType())
	require.Equal(t, "audio/mpeg", KindAudio.ContentType())
	require.Equal(t, "application/json", KindTranscript.ContentType())

	k := NewKey("u", KindAudio, "q")
	require.Equal(t, k.String()+".mp3", KindAudio.Filename(k))
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"video", "audio", "transcript"} {
		kind, err := ParseKind(s)
		require.NoError(t, err)
		require.Equal(t, Kind(s), kind)
	}
	_, err := ParseKind("image")
	require.Error(t, err)
}
