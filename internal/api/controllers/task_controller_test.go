package apicontrollers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/planner"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	access := planner.NewOfflineAccess(t.TempDir(), zap.NewNop())

	e := echo.New()
	controller := NewTaskController(zap.NewNop(), access)
	controller.RegisterRoutes(e.Group("/api"))
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateTask(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "my cool task"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryOK), body["code"])
	assert.Equal(t, "OK", body["status"])

	// Planning the same task again changes nothing.
	rec = doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "my cool task"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryUnchanged), body["code"])
	assert.Equal(t, "UNCHANGED", body["status"])
}

func TestCreateTask_RejectedBodies(t *testing.T) {
	e := newTestServer(t)

	bodies := []string{
		`{"date": "2025-07-25"}`,
		`{"task_desc": "my cool task"}`,
		`{"date": "2025-07-25", "task_desc": "my cool task", "extra": "field"}`,
		`{"daet": "2025-07-25", "task-desc": "my cool task"}`,
		`{"date": 20250725, "task_desc": "my cool task"}`,
		`{"date": "2025-07-25", "task_desc": 123}`,
		`{"date": "2025-13-40", "task_desc": "my cool task"}`,
		`{}`,
		`not json`,
	}
	for _, body := range bodies {
		rec := doRequest(e, http.MethodPost, "/api/tasks", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}

	rec := doRequest(e, http.MethodGet, "/api/tasks/2025-07-25", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateTask_EmptyDescription(t *testing.T) {
	e := newTestServer(t)

	// An empty description passes the field check but fails the format check.
	rec := doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryFormatCheckFailed), body["code"])
	assert.Equal(t, "FORMAT_CHECK_FAILED", body["status"])
}

func TestDeleteTask(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "my cool task"}`)

	rec := doRequest(e, http.MethodDelete, "/api/tasks", `{"date": "2025-07-25", "task_desc": "my cool task"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryOK), body["code"])

	// Deleting a task that is not planned changes nothing.
	rec = doRequest(e, http.MethodDelete, "/api/tasks", `{"date": "2025-07-25", "task_desc": "my cool task"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryUnchanged), body["code"])
}

func TestUpdateTask(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "write code"}`)

	rec := doRequest(e, http.MethodPut, "/api/tasks",
		`{"old": {"date": "2025-07-25", "task_desc": "write code"}, "new": {"date": "2025-07-26", "task_desc": "write more code"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryOK), body["code"])

	rec = doRequest(e, http.MethodGet, "/api/tasks/2025-07-26", "")
	var tasks []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "write more code", tasks[0]["task_desc"])

	rec = doRequest(e, http.MethodGet, "/api/tasks/2025-07-25", "")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateTask_MissingTask(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPut, "/api/tasks",
		`{"old": {"date": "2025-07-25", "task_desc": "not planned"}, "new": {"date": "2025-07-26", "task_desc": "still not planned"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryUpdateFailed), body["code"])
	assert.Equal(t, "UPDATE_FAILED", body["status"])
}

func TestUpdateTask_Collision(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "write code"}`)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "review code"}`)

	rec := doRequest(e, http.MethodPut, "/api/tasks",
		`{"old": {"date": "2025-07-25", "task_desc": "write code"}, "new": {"date": "2025-07-25", "task_desc": "review code"}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryUpdateFailed), body["code"])
}

func TestUpdateTask_RejectedBodies(t *testing.T) {
	e := newTestServer(t)

	bodies := []string{
		`{"old": {"date": "2025-07-25"}, "new": {"date": "2025-07-26", "task_desc": "x"}}`,
		`{"old": {"date": "2025-07-25", "task_desc": "x"}}`,
		`{"new": {"date": "2025-07-26", "task_desc": "x"}}`,
		`{"old": {"date": "2025-13-40", "task_desc": "x"}, "new": {"date": "2025-07-26", "task_desc": "x"}}`,
		`{}`,
	}
	for _, body := range bodies {
		rec := doRequest(e, http.MethodPut, "/api/tasks", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestListDayTasks(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "first"}`)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "second"}`)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-26", "task_desc": "other day"}`)

	rec := doRequest(e, http.MethodGet, "/api/tasks/2025-07-25", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var tasks []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0]["task_desc"])
	assert.Equal(t, "second", tasks[1]["task_desc"])
}

func TestListDayTasks_BadDate(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/tasks/not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearDay(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "first"}`)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "second"}`)

	rec := doRequest(e, http.MethodDelete, "/api/days/2025-07-25", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryOK), body["code"])
	assert.Equal(t, float64(2), body["removed"])

	rec = doRequest(e, http.MethodDelete, "/api/days/2025-07-25", "")
	body = decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryUnchanged), body["code"])
	assert.Equal(t, float64(0), body["removed"])
}

func TestCleanup(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "my cool task"}`)

	rec := doRequest(e, http.MethodPost, "/api/cleanup", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryOK), body["code"])

	rec = doRequest(e, http.MethodGet, "/api/stats", "")
	stats := decodeBody(t, rec)
	assert.Equal(t, float64(0), stats["total_tasks"])
}

func TestStats(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "first"}`)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "second"}`)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-26", "task_desc": "other day"}`)

	rec := doRequest(e, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.Equal(t, float64(3), stats["total_tasks"])

	busiest, ok := stats["busiest_day"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-07-25", busiest["date"])
	assert.Equal(t, float64(2), busiest["count"])
}

func TestListChanges(t *testing.T) {
	e := newTestServer(t)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "first"}`)
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": "second"}`)
	doRequest(e, http.MethodDelete, "/api/tasks", `{"date": "2025-07-25", "task_desc": "first"}`)

	rec := doRequest(e, http.MethodGet, "/api/changes?limit=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var changes []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changes))
	require.Len(t, changes, 2)
	assert.Equal(t, string(entities.ChangeDelete), changes[0]["op"])

	rec = doRequest(e, http.MethodGet, "/api/changes?limit=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(entities.InitOK), body["init_code"])
	assert.Equal(t, "OK", body["init_status"])
	assert.Equal(t, string(entities.ModeOffline), body["mode"])
	assert.Equal(t, false, body["online"])

	// The last query code tracks the most recent mutation.
	doRequest(e, http.MethodPost, "/api/tasks", `{"date": "2025-07-25", "task_desc": ""}`)
	rec = doRequest(e, http.MethodGet, "/api/status", "")
	body = decodeBody(t, rec)
	assert.Equal(t, float64(entities.QueryFormatCheckFailed), body["last_query_code"])
	assert.Equal(t, "FORMAT_CHECK_FAILED", body["last_query_status"])
}
