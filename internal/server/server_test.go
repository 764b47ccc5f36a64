package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/tabula/internal/catalog"
	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func loadedCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	def := &config.Definition{
		Sheets: map[string]config.SheetDefinition{
			"t": {Columns: []string{"col1", "col2", "col3"}, MockRows: [][]string{{"x", "y", "z"}}},
		},
		Commands: map[string]config.CommandDefinition{
			"abbrev": {
				Sheet:        "t",
				LookupColumn: "col1",
				SlackToken:   "tok",
				Format:       config.FormatDefinition{Title: "Results for %term%", Result: "*%term%* is %col3%"},
			},
		},
	}
	c := catalog.New(catalog.StaticDefinition(def), source.InlineLoader{})
	_, err := c.Reload(context.Background())
	require.NoError(t, err)
	return c
}

func slashForm(command, token, text string) string {
	return url.Values{
		"command":    {command},
		"token":      {token},
		"text":       {text},
		"user_id":    {"U2147483697"},
		"channel_id": {"C2147483705"},
		"team_id":    {"T0001"},
	}.Encode()
}

func sign(req *http.Request, body, secret string, ts time.Time) {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + stamp + ":" + body))
	req.Header.Set("X-Slack-Request-Timestamp", stamp)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func post(t *testing.T, h http.Handler, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, config.DefaultSlackCommandsPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSlashCommand_Answers(t *testing.T) {
	h := NewHandler(Options{Catalog: loadedCatalog(t)})

	rec := post(t, h, slashForm("/abbrev", "tok", "x"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{
		"response_type": "in_channel",
		"attachments": [
			{"mrkdwn_in": ["text"], "color": "#36a64f", "pretext": "", "title": "Results for x", "text": ""},
			{"mrkdwn_in": ["text"], "text": "*x* is z"}
		]
	}`, rec.Body.String())
}

func TestSlashCommand_Errors(t *testing.T) {
	h := NewHandler(Options{Catalog: loadedCatalog(t)})

	cases := []struct {
		name string
		body string
		text string
	}{
		{name: "unknown command", body: slashForm("/nope", "tok", "x"), text: `Command "nope" is not recognized.`},
		{name: "wrong token", body: slashForm("/abbrev", "wrong", "x"), text: `Token is invalid for command "abbrev".`},
		{name: "missing text", body: slashForm("/abbrev", "tok", ""), text: `Expecting a parameter for command "abbrev".`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := post(t, h, c.body, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, "ephemeral", got["response_type"])
			assert.Equal(t, c.text, got["text"])
		})
	}
}

func TestSlashCommand_NotLoaded(t *testing.T) {
	c := catalog.New(catalog.StaticDefinition(&config.Definition{}), source.InlineLoader{})
	h := NewHandler(Options{Catalog: c})

	rec := post(t, h, slashForm("/abbrev", "tok", "x"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "something went wrong")
}

func TestSlashCommand_Signature(t *testing.T) {
	h := NewHandler(Options{Catalog: loadedCatalog(t), SigningSecret: testSecret})
	body := slashForm("/abbrev", "tok", "x")

	rec := post(t, h, body, func(r *http.Request) { sign(r, body, testSecret, time.Now()) })
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "in_channel")

	rec = post(t, h, body, func(r *http.Request) { sign(r, body, "other-secret", time.Now()) })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h, body, func(r *http.Request) { sign(r, body, testSecret, time.Now().Add(-time.Hour)) })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h, body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSlashCommand_MethodAndPath(t *testing.T) {
	h := NewHandler(Options{Catalog: loadedCatalog(t), CommandsPath: "/hooks/slack"})

	req := httptest.NewRequest(http.MethodGet, "/hooks/slack", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/hooks/slack", strings.NewReader(slashForm("/abbrev", "tok", "x")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	h := NewHandler(Options{
		Catalog: loadedCatalog(t),
		Components: func() map[string]ComponentStatus {
			return map[string]ComponentStatus{
				"Catalog":    {Healthy: true},
				"HTTPServer": {Healthy: false, Error: "not started"},
			}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "degraded", report.Status)
	assert.NotEmpty(t, report.Snapshot)
	assert.Equal(t, 1, report.Tables)
	assert.Equal(t, 1, report.Commands)
	assert.Equal(t, "not started", report.Components["HTTPServer"].Error)
}

func TestHealth_Loading(t *testing.T) {
	c := catalog.New(catalog.StaticDefinition(&config.Definition{}), source.InlineLoader{})
	h := NewHandler(Options{Catalog: c})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"loading"`)
}
