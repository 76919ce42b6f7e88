package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/courtlink/playerfinder/internal/app"
	iauth "github.com/courtlink/playerfinder/internal/auth"
	"github.com/courtlink/playerfinder/internal/database"
	"github.com/courtlink/playerfinder/internal/finder"
	"github.com/courtlink/playerfinder/internal/tracker"
)

type routerFixture struct {
	router *gin.Engine
	jwt    *iauth.JWTService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenAndMigrate(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "api.sqlite"),
	})
	require.NoError(t, err)

	store, err := tracker.NewStore(db, tracker.WithLinkBase("http://tracker.test"))
	require.NoError(t, err)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "playerfinder"})
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(db, store, jwt, cfg)
	require.NoError(t, err)

	return &routerFixture{router: router, jwt: jwt}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) createRequest(t *testing.T, inviteeIDs ...string) (string, map[string]string) {
	t.Helper()

	token, err := f.jwt.GenerateAccessToken("org-1", "olga@club.example")
	require.NoError(t, err)

	invitees := make([]map[string]string, 0, len(inviteeIDs))
	for _, id := range inviteeIDs {
		invitees = append(invitees, map[string]string{"inviteeId": id})
	}

	rec := f.do(t, http.MethodPost, "/tracker/request", token, map[string]any{
		"playTime":      []int{2025, 7, 24, 14, 0},
		"playEndTime":   []int{2025, 7, 24, 15, 0},
		"placeToPlay":   3,
		"playersNeeded": 1,
		"organizerName": "Olga",
		"invitees":      invitees,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			RequestID   string `json:"requestId"`
			Invitations []struct {
				InviteeID string `json:"inviteeId"`
				AcceptURL string `json:"acceptUrl"`
			} `json:"invitations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.RequestID)

	acceptPaths := make(map[string]string, len(envelope.Data.Invitations))
	for _, inv := range envelope.Data.Invitations {
		parsed, err := url.Parse(inv.AcceptURL)
		require.NoError(t, err)
		acceptPaths[inv.InviteeID] = parsed.Path + "?" + parsed.RawQuery
	}
	return envelope.Data.RequestID, acceptPaths
}

func TestCreateRequestRequiresAuth(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/tracker/request", "", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestRowsServeBareArray(t *testing.T) {
	f := newRouterFixture(t)
	requestID, _ := f.createRequest(t, "a", "b")

	rec := f.do(t, http.MethodGet, "/tracker/request?requestId="+requestID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []finder.InviteeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows), "reads are a bare array, not an envelope")
	require.Len(t, rows, 2)
	require.Equal(t, finder.StatusPending, rows[0].Status)
}

func TestUnknownRequestServesEmptyArray(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/tracker/request?requestId=missing", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestAcceptViaCapabilityLink(t *testing.T) {
	f := newRouterFixture(t)
	requestID, accepts := f.createRequest(t, "a")

	rec := f.do(t, http.MethodGet, accepts["a"]+"&comments=see+you", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/tracker/request?requestId="+requestID, "", nil)
	var rows []finder.InviteeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Equal(t, finder.StatusAccepted, rows[0].Status)
	require.Equal(t, "see you", rows[0].Comment)
}

func TestAcceptWithBogusToken(t *testing.T) {
	f := newRouterFixture(t)
	f.createRequest(t, "a")

	rec := f.do(t, http.MethodGet, "/tracker/accept?token=bogus", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptIntoFullRequestAnswersConflict(t *testing.T) {
	f := newRouterFixture(t)
	_, accepts := f.createRequest(t, "a", "b")

	rec := f.do(t, http.MethodGet, accepts["a"], "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, accepts["b"], "", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "REQUEST_FULL", envelope.Error.Code)
}

func TestCancelRequiresMatchingSubject(t *testing.T) {
	f := newRouterFixture(t)
	requestID, accepts := f.createRequest(t, "a")

	rec := f.do(t, http.MethodGet, accepts["a"], "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	imposter, err := f.jwt.GenerateAccessToken("b", "")
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/tracker/cancel", imposter, map[string]string{
		"requestId": requestID,
		"userId":    "a",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	owner, err := f.jwt.GenerateAccessToken("a", "")
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/tracker/cancel", owner, map[string]string{
		"requestId": requestID,
		"userId":    "a",
		"comment":   "injury",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestWithdrawEndsEveryRow(t *testing.T) {
	f := newRouterFixture(t)
	requestID, _ := f.createRequest(t, "a", "b")

	organizer, err := f.jwt.GenerateAccessToken("org-1", "olga@club.example")
	require.NoError(t, err)
	rec := f.do(t, http.MethodPost, "/tracker/withdraw", organizer, map[string]string{
		"requestId":   requestID,
		"organizerId": "org-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/tracker/request?requestId="+requestID, "", nil)
	var rows []finder.InviteeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	for _, row := range rows {
		require.Equal(t, finder.StatusWithdrawn, row.Status)
	}
}

func TestSentUsesHistoricalParameterName(t *testing.T) {
	f := newRouterFixture(t)
	f.createRequest(t, "a")

	rec := f.do(t, http.MethodGet, "/invitations-sent?inviteeEmail=olga@club.example", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []finder.InviteeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
}

func TestIncomingInvitations(t *testing.T) {
	f := newRouterFixture(t)
	f.createRequest(t, "a", "b")
	f.createRequest(t, "a")

	rec := f.do(t, http.MethodGet, "/invitations?userId=a", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []finder.InviteeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)

	var reminder time.Time
	for _, row := range rows {
		reminder = row.Reminder.NextReminderAt
		require.False(t, reminder.IsZero(), "new invitations carry a scheduled reminder")
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
