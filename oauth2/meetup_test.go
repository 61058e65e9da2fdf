package oauth2

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauth/polyauth"
)

// cannedTransport answers every request with a fixed body and records the
// last request, so fill functions with absolute API URLs are testable.
type cannedTransport struct {
	status int
	body   string
	got    *http.Request
}

func (t *cannedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.got = r
	return &http.Response{
		StatusCode: t.status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(t.body)),
		Request:    r,
	}, nil
}

func TestNewMeetupUsesPostTokenExchange(t *testing.T) {
	p := NewMeetup("ckey", "csecret", nil)

	assert.Equal(t, "meetup", p.ID())
	assert.Equal(t, polyauth.MethodOAuth2, p.Method())
	assert.Equal(t, http.MethodPost, p.cfg.AccessTokenMethod)
	assert.Equal(t, "https://secure.meetup.com/oauth2/access", p.cfg.Endpoint.TokenURL)
}

func TestFillMeetupProfile(t *testing.T) {
	tr := &cannedTransport{
		status: http.StatusOK,
		body: `{
			"id": 12345,
			"name": "John Doe",
			"email": "jdoe@example.com",
			"photo": {"photo_link": "https://photos.meetupstatic.com/member/12345.jpeg"}
		}`,
	}

	p, err := fillMeetupProfile(context.Background(), &http.Client{Transport: tr}, &polyauth.OAuth2Info{AccessToken: "tok"})
	require.NoError(t, err)

	require.NotNil(t, tr.got)
	assert.Equal(t, "api.meetup.com", tr.got.URL.Host)
	assert.Equal(t, "tok", tr.got.URL.Query().Get("access_token"))

	assert.Equal(t, "12345", p.Key.UserID)
	assert.Equal(t, "John Doe", p.DisplayName)
	assert.Equal(t, "jdoe@example.com", p.Email)
	assert.Equal(t, "https://photos.meetupstatic.com/member/12345.jpeg", p.AvatarURL)
}

func TestFillMeetupProfileReportsAPIErrors(t *testing.T) {
	tr := &cannedTransport{
		status: http.StatusOK,
		body:   `{"problem": "Authentication failure", "details": "token is expired"}`,
	}

	_, err := fillMeetupProfile(context.Background(), &http.Client{Transport: tr}, &polyauth.OAuth2Info{AccessToken: "tok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication failure")
}
