package token

import (
	"strings"
	"testing"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/stretchr/testify/require"
)

var testKey = youtubetools.NewKey("https://youtu.be/abc", youtubetools.KindAudio, "192")

func TestIssueVerify_RoundTrip(t *testing.T) {
	svc, err := New([]byte("test-secret"))
	require.NoError(t, err)

	tok, err := svc.Issue(testKey, youtubetools.KindAudio)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(tok, ".")), "token must have header.payload.signature form")

	key, kind, err := svc.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, testKey, key)
	require.Equal(t, youtubetools.KindAudio, kind)
}

func TestVerify_ExpiredAfterTTL(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	svc, err := New([]byte("test-secret"),
		WithTTL(15*time.Minute),
		WithNow(func() time.Time { return now }),
	)
	require.NoError(t, err)

	tok, err := svc.Issue(testKey, youtubetools.KindAudio)
	require.NoError(t, err)

	// Valid immediately after issuance.
	_, _, err = svc.Verify(tok)
	require.NoError(t, err)

	// Still valid just inside the window.
	now = now.Add(14 * time.Minute)
	_, _, err = svc.Verify(tok)
	require.NoError(t, err)

	// Expired once issued-at + ttl has passed.
	now = now.Add(2 * time.Minute)
	_, _, err = svc.Verify(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_DifferentSecretRejected(t *testing.T) {
	issuer, err := New([]byte("secret-a"))
	require.NoError(t, err)
	verifier, err := New([]byte("secret-b"))
	require.NoError(t, err)

	tok, err := issuer.Issue(testKey, youtubetools.KindVideo)
	require.NoError(t, err)

	_, _, err = verifier.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_TamperedPayloadRejected(t *testing.T) {
	svc, err := New([]byte("test-secret"))
	require.NoError(t, err)

	tok, err := svc.Issue(testKey, youtubetools.KindAudio)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	// Flip a character in the payload segment.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, _, err = svc.Verify(tampered)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	svc, err := New([]byte("test-secret"))
	require.NoError(t, err)

	for _, bad := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, _, err := svc.Verify(bad)
		require.ErrorIs(t, err, ErrMalformed, "input %q", bad)
	}
}

func TestIssueTTL_OverridesDefault(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	svc, err := New([]byte("test-secret"), WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	tok, err := svc.IssueTTL(testKey, youtubetools.KindTranscript, time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, _, err = svc.Verify(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
