package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/auth"
	"github.com/vainnor/fatigue-report/flow"
	"github.com/vainnor/fatigue-report/sheets"
	"github.com/vainnor/fatigue-report/types"
)

func newTestServer(t *testing.T, opts flow.Options, sink sheets.Sink, verifier auth.Verifier) (*httptest.Server, *http.Client, *Handler) {
	t.Helper()
	controller, err := flow.New(opts, verifier, sink, zap.NewNop())
	require.NoError(t, err)

	h := NewHandler(controller, NewSessionStore(time.Hour), zap.NewNop())
	srv := httptest.NewServer(NewRouter(h, "operator-secret"))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}, h
}

func getPage(t *testing.T, c *http.Client, base string) string {
	t.Helper()
	resp, err := c.Get(base + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func post(t *testing.T, c *http.Client, base, path string, form url.Values) string {
	t.Helper()
	resp, err := c.PostForm(base+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "redirected back to the form")
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func entryForm() url.Values {
	return url.Values{
		"pilot_id":     {"P001"},
		"flight_type":  {"First Officer"},
		"flight_phase": {"Pre-Flight"},
		"date":         {"2024-05-01"},
		"kss":          {"5"},
		"sp":           {"3"},
	}
}

func TestDownloadFlow(t *testing.T) {
	cols := types.Columns(types.ColumnOptions{})
	srv, client, _ := newTestServer(t, flow.Options{EnableReview: true}, &sheets.DownloadSink{Columns: cols}, nil)

	body := getPage(t, client, srv.URL)
	assert.Contains(t, body, "Pilot Information")

	body = post(t, client, srv.URL, "/entry", entryForm())
	assert.Contains(t, body, "Review your entry")
	assert.Contains(t, body, "<td>P001</td>")

	body = post(t, client, srv.URL, "/edit", nil)
	assert.Contains(t, body, `value="P001"`, "edit keeps previous values")

	post(t, client, srv.URL, "/entry", entryForm())
	body = post(t, client, srv.URL, "/confirm", nil)
	assert.Contains(t, body, "Your data has been recorded")
	assert.Contains(t, body, "/download")

	resp, err := client.Get(srv.URL + "/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sheets.XLSXMime, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), sheets.DownloadFilename)

	records, err := sheets.Decode(resp.Body)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P001", records[0].PilotID)
	assert.Equal(t, "First Officer", records[0].FlightType)
	assert.Equal(t, types.PreFlight, records[0].FlightPhase)
	assert.Equal(t, 5, records[0].KSS)
	assert.Equal(t, 3, records[0].SP)
}

func TestEntryClampsSliderValues(t *testing.T) {
	sink := &sheets.DownloadSink{Columns: types.Columns(types.ColumnOptions{})}
	srv, client, _ := newTestServer(t, flow.Options{EnableReview: true}, sink, nil)

	form := entryForm()
	form.Set("kss", "12")
	form.Set("sp", "0")
	body := post(t, client, srv.URL, "/entry", form)
	assert.Contains(t, body, "<td>9</td>")
	assert.Contains(t, body, "<td>1</td>")
}

func TestLoginFlow(t *testing.T) {
	hash, err := auth.HashPassword("heli2024")
	require.NoError(t, err)
	verifier, err := auth.NewSharedPassword(hash)
	require.NoError(t, err)

	sink := &sheets.DownloadSink{Columns: types.Columns(types.ColumnOptions{})}
	srv, client, _ := newTestServer(t, flow.Options{RequireLogin: true}, sink, verifier)

	body := getPage(t, client, srv.URL)
	assert.Contains(t, body, `action="/login"`)

	body = post(t, client, srv.URL, "/entry", entryForm())
	assert.Contains(t, body, `action="/login"`, "entry refused before login")

	body = post(t, client, srv.URL, "/login", url.Values{"pilot_id": {"P001"}, "password": {"wrong"}})
	assert.Contains(t, body, "Incorrect password")
	assert.Contains(t, body, `action="/login"`)

	body = post(t, client, srv.URL, "/login", url.Values{"pilot_id": {"P001"}, "password": {"heli2024"}})
	assert.Contains(t, body, "Pilot Information")
	assert.Contains(t, body, `value="P001" disabled`)

	body = post(t, client, srv.URL, "/logout", nil)
	assert.Contains(t, body, `action="/login"`)
}

func TestDuplicateSubmissionAcrossSessions(t *testing.T) {
	cols := types.Columns(types.ColumnOptions{})
	client := sheets.NewMemoryClient("Fatigue")
	book, _ := client.Document("Fatigue")
	ws, err := book.AddWorksheet(context.Background(), "Responses")
	require.NoError(t, err)
	require.NoError(t, ws.AppendRow(context.Background(), cols))

	sink := sheets.NewRemoteSink(client, sheets.RemoteOptions{
		Document:        "Fatigue",
		Worksheet:       "Responses",
		CheckDuplicates: true,
		Columns:         cols,
	}, nil)
	srv, first, _ := newTestServer(t, flow.Options{}, sink, nil)

	body := post(t, first, srv.URL, "/entry", entryForm())
	assert.Contains(t, body, "Your data has been recorded")

	jar, _ := cookiejar.New(nil)
	second := &http.Client{Jar: jar}
	body = post(t, second, srv.URL, "/entry", entryForm())
	assert.Contains(t, body, "already been submitted")

	rows, err := ws.Rows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPVTPageShowsStimulus(t *testing.T) {
	sink := &sheets.DownloadSink{Columns: types.Columns(types.ColumnOptions{PVT: true})}
	srv, client, _ := newTestServer(t, flow.Options{EnablePVT: true}, sink, nil)

	body := post(t, client, srv.URL, "/entry", entryForm())
	assert.Contains(t, body, "Reaction Time Test")
	assert.Contains(t, body, `action="/pvt/start"`)
	assert.NotContains(t, body, `action="/pvt/accept"`)

	body = post(t, client, srv.URL, "/pvt/start", nil)
	assert.Contains(t, body, `class="stimulus"`)
	assert.Contains(t, body, "animation-delay")

	body = post(t, client, srv.URL, "/pvt/react", nil)
	assert.Contains(t, body, `class="stimulus"`, "early click is ignored")

	body = post(t, client, srv.URL, "/pvt/accept", nil)
	assert.Contains(t, body, "Complete the reaction test")
}

func TestStatsRequiresOperatorKey(t *testing.T) {
	sink := &sheets.DownloadSink{Columns: types.Columns(types.ColumnOptions{})}
	srv, client, _ := newTestServer(t, flow.Options{}, sink, nil)
	post(t, client, srv.URL, "/entry", entryForm())

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/stats", nil)
	req.Header.Set("Authorization", "operator-secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats types.SubmissionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.EqualValues(t, 1, stats.Submissions)
	assert.Equal(t, 1, stats.ActiveSessions)
}

func TestDownloadWithoutSubmission(t *testing.T) {
	sink := &sheets.DownloadSink{Columns: types.Columns(types.ColumnOptions{})}
	srv, client, _ := newTestServer(t, flow.Options{}, sink, nil)

	resp, err := client.Get(srv.URL + "/download")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownloadDoesNotCreateSession(t *testing.T) {
	sink := &sheets.DownloadSink{Columns: types.Columns(types.ColumnOptions{})}
	srv, _, h := newTestServer(t, flow.Options{}, sink, nil)

	resp, err := http.Get(srv.URL + "/download")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
	assert.Equal(t, 0, h.store.Len())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/download", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "stale-id"})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, h.store.Len())
}

func TestLoginRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	handler := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(""))
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
