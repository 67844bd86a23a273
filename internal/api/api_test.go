package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"mutolaa/internal/middleware"
	"mutolaa/internal/model"
	"mutolaa/internal/stats"
)

const testAdminKey = "secret"

var tashkent = time.FixedZone("Asia/Tashkent", 5*60*60)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	now    time.Time
}

func newTestServer(t *testing.T, now time.Time) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := model.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", tashkent, false)
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	server := &testServer{db: db, now: now}
	router := gin.New()
	router.Use(middleware.OptionsMiddleware)
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.StatsMiddleware(stats.NewService(db, func() time.Time { return server.now })))
	apiRouter := router.Group("/api")
	apiRouter.Use(middleware.APIMiddleware())
	Routes(apiRouter, middleware.AdminKeyMiddleware(testAdminKey))
	server.router = router
	return server
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch value := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(value))
	default:
		data, err := json.Marshal(value)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *testServer) register(t *testing.T, telegramID int64, name string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users", map[string]interface{}{"telegram_id": telegramID, "first_name": name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// errorCode returns the status of the first JSON:API error object
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Errors []struct {
			Status string `json:"status"`
			Code   string `json:"code"`
		} `json:"errors"`
	}
	decode(t, rec, &payload)
	require.NotEmpty(t, payload.Errors)
	return payload.Errors[0].Code
}

var wednesday = time.Date(2026, time.January, 7, 8, 0, 30, 0, tashkent)

func TestUserRegistrationIsIdempotent(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")
	s.register(t, 77, "Ali")

	rec := s.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []model.User
	decode(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, int64(77), users[0].TelegramID)

	rec = s.do(t, http.MethodGet, "/api/users/by-telegram/77", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/users/by-telegram/78", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error.not_found", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/users", map[string]interface{}{"first_name": "nobody"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadingLogLifecycle(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")

	rec := s.do(t, http.MethodPost, "/api/reading-logs?telegram_id=77", map[string]interface{}{"date": "2026-01-06", "pages": 40})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/reading-logs?telegram_id=77", map[string]interface{}{"pages": 30})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Date          string `json:"date"`
		Pages         int    `json:"pages"`
		TotalPages    int    `json:"total_pages"`
		CurrentStreak int    `json:"current_streak"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "2026-01-07", created.Date)
	assert.Equal(t, 30, created.Pages)
	assert.Equal(t, 70, created.TotalPages)
	assert.Equal(t, 2, created.CurrentStreak)

	rec = s.do(t, http.MethodPut, "/api/reading-logs/06.01.2026?telegram_id=77", map[string]interface{}{"pages": 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		TotalPages int `json:"total_pages"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, 40, updated.TotalPages)

	rec = s.do(t, http.MethodDelete, "/api/reading-logs/2026-01-06?telegram_id=77", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &updated)
	assert.Equal(t, 30, updated.TotalPages)

	rec = s.do(t, http.MethodDelete, "/api/reading-logs/2026-01-06?telegram_id=77", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	user, err := model.FindUserByTelegramID(s.db, 77)
	require.NoError(t, err)
	assert.Equal(t, 30, user.TotalPages)
}

func TestReadingLogRejections(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"too many pages", "/api/reading-logs?telegram_id=77", map[string]interface{}{"pages": 501}, http.StatusBadRequest},
		{"zero pages", "/api/reading-logs?telegram_id=77", map[string]interface{}{"pages": 0}, http.StatusBadRequest},
		{"fractional pages", "/api/reading-logs?telegram_id=77", `{"pages": 12.5}`, http.StatusBadRequest},
		{"missing pages", "/api/reading-logs?telegram_id=77", map[string]interface{}{}, http.StatusBadRequest},
		{"future date", "/api/reading-logs?telegram_id=77", map[string]interface{}{"date": "2026-01-08", "pages": 5}, http.StatusBadRequest},
		{"malformed date", "/api/reading-logs?telegram_id=77", map[string]interface{}{"date": "Jan 5", "pages": 5}, http.StatusBadRequest},
		{"missing telegram id", "/api/reading-logs", map[string]interface{}{"pages": 5}, http.StatusBadRequest},
		{"unknown user", "/api/reading-logs?telegram_id=78", map[string]interface{}{"pages": 5}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	var count int64
	require.NoError(t, s.db.Model(&model.ReadingLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBannedUserGetsForbidden(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")
	user, err := model.FindUserByTelegramID(s.db, 77)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPut, "/api/users/"+uintString(user.ID)+"/status?status=banned", nil, middleware.AdminKeyHeader, testAdminKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/reading-logs?telegram_id=77", map[string]interface{}{"pages": 5})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "error.forbidden", errorCode(t, rec))
}

func TestAdminKeyIsRequired(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")

	rec := s.do(t, http.MethodPut, "/api/users/1/status?status=admin", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/users/1/status?status=admin", nil, middleware.AdminKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/users/1/status?status=king", nil, middleware.AdminKeyHeader, testAdminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/users/99/status?status=admin", nil, middleware.AdminKeyHeader, testAdminKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/users/1/status?status=admin", nil, middleware.AdminKeyHeader, testAdminKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserFieldsUpdate(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")

	rec := s.do(t, http.MethodPut, "/api/users/77/update", map[string]interface{}{"daily_goal": 30, "reminder_time": "08:00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user model.User
	decode(t, rec, &user)
	assert.Equal(t, 30, user.DailyGoal)
	assert.Equal(t, "08:00", user.ReminderTime)

	for _, body := range []string{
		`{"reminder_time": "8:00"}`,
		`{"daily_goal": 0}`,
		`{"daily_goal": 2.5}`,
		`{"nickname": "x"}`,
		`{"daily_goal": "ten"}`,
	} {
		rec = s.do(t, http.MethodPut, "/api/users/77/update", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec = s.do(t, http.MethodPut, "/api/users/78/update", `{"daily_goal": 5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNeedReminderMatchesCurrentMinute(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")
	s.register(t, 78, "Vali")
	rec := s.do(t, http.MethodPut, "/api/users/77/update", `{"reminder_time": "08:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var targets []reminderTarget
	rec = s.do(t, http.MethodGet, "/api/users/need-reminder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &targets)
	require.Len(t, targets, 1)
	assert.Equal(t, int64(77), targets[0].TelegramID)

	s.now = wednesday.Add(time.Minute)
	rec = s.do(t, http.MethodGet, "/api/users/need-reminder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &targets)
	assert.Empty(t, targets)
}

func TestLeaderboardAndReports(t *testing.T) {
	s := newTestServer(t, wednesday)
	for i, name := range []string{"A", "B", "C"} {
		s.register(t, int64(i+1), name)
	}
	logs := []struct {
		telegramID string
		pages      int
	}{{"1", 120}, {"2", 200}, {"3", 200}}
	for _, l := range logs {
		rec := s.do(t, http.MethodPost, "/api/reading-logs?telegram_id="+l.telegramID, map[string]interface{}{"pages": l.pages})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/leaderboard?period=week&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]interface{}
	decode(t, rec, &entries)
	require.Len(t, entries, 3)
	assert.Equal(t, "B", entries[0]["name"])
	assert.Equal(t, "C", entries[1]["name"])
	assert.Equal(t, "A", entries[2]["name"])
	assert.EqualValues(t, 3, entries[2]["rank"])
	assert.NotContains(t, entries[0], "user_id")

	rec = s.do(t, http.MethodGet, "/api/leaderboard?period=hafta", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/leaderboard?period=decade", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/leaderboard?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/report/week", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]interface{}
	decode(t, rec, &rows)
	require.Len(t, rows, 3)
	assert.Equal(t, false, rows[0]["winner"])

	rec = s.do(t, http.MethodGet, "/api/report/month", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var monthRows []map[string]interface{}
	decode(t, rec, &monthRows)
	require.NotEmpty(t, monthRows)
	for _, row := range monthRows {
		assert.NotContains(t, row, "winner")
	}

	rec = s.do(t, http.MethodGet, "/api/report/all", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var totals stats.Stats
	decode(t, rec, &totals)
	assert.EqualValues(t, 3, totals.TotalUsers)
	assert.Equal(t, 520, totals.TotalPages)

	rec = s.do(t, http.MethodGet, "/api/activity/weekly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var activity []map[string]interface{}
	decode(t, rec, &activity)
	require.Len(t, activity, 7)
	assert.Equal(t, "Wed", activity[6]["day"])
	assert.Equal(t, "2026-01-07", activity[6]["date"])
	assert.EqualValues(t, 520, activity[6]["pages"])
	assert.EqualValues(t, 3, activity[6]["users"])
}

func TestAnnouncements(t *testing.T) {
	s := newTestServer(t, wednesday)

	body := map[string]interface{}{"message": "Yangi challenge!", "message_type": "challenge", "target_audience": "active"}
	rec := s.do(t, http.MethodPost, "/api/announcements?admin_id=1", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/announcements?admin_id=1", body, middleware.AdminKeyHeader, testAdminKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, rec, &created)

	rec = s.do(t, http.MethodPost, "/api/announcements", map[string]interface{}{"message": "x", "target_audience": "vip"},
		middleware.AdminKeyHeader, testAdminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/announcements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Announcement
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.True(t, list[0].NotifyAll)
	assert.Nil(t, list[0].SentAt)
	require.NotNil(t, list[0].CreatedBy)
	assert.Equal(t, int64(1), *list[0].CreatedBy)

	path := "/api/announcements/" + uintString(created.ID) + "/mark-sent"
	rec = s.do(t, http.MethodPut, path, nil, middleware.AdminKeyHeader, testAdminKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first, err := model.FindAnnouncement(s.db, created.ID)
	require.NoError(t, err)
	require.NotNil(t, first.SentAt)

	s.now = wednesday.Add(time.Hour)
	rec = s.do(t, http.MethodPut, path, nil, middleware.AdminKeyHeader, testAdminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	second, err := model.FindAnnouncement(s.db, created.ID)
	require.NoError(t, err)
	assert.True(t, first.SentAt.Equal(*second.SentAt))

	rec = s.do(t, http.MethodPut, "/api/announcements/999/mark-sent", nil, middleware.AdminKeyHeader, testAdminKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserExport(t *testing.T) {
	s := newTestServer(t, wednesday)
	s.register(t, 77, "Ali")
	s.register(t, 78, "Vali")

	rec := s.do(t, http.MethodGet, "/api/users/export", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/export", nil, middleware.AdminKeyHeader, testAdminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(usersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Telegram ID", rows[0][1])
	assert.Equal(t, "78", rows[1][1])
	assert.Equal(t, "Vali", rows[1][3])
}

func TestOptionsPreflight(t *testing.T) {
	s := newTestServer(t, wednesday)
	rec := s.do(t, http.MethodOptions, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "x-admin-key")
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
