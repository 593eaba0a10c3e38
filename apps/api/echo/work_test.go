package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core/work"
)

var errWorkNotFoundResp = Response{Message: "Work not found"}

func (app *testApp) upsertStatus(t *testing.T, workID, userID, username, state string) WorkStatusResponse {
	t.Helper()
	body := marchallObj(t, work.UpdateStatus{UserID: userID, Username: username, State: state})
	req, rec := newRequest(http.MethodPost, "/api/work/status/"+workID, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data WorkStatusResponse
	decodeData(t, rec, &data)
	return data
}

func (app *testApp) getTotals(t *testing.T) work.Totals {
	t.Helper()
	req, rec := newRequest(http.MethodGet, "/api/work/totals")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var totals work.Totals
	decodeData(t, rec, &totals)
	return totals
}

func Test_workApi_create(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, work.NewWork{Subject: "   "}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors: map[string]string{
					"subject":  "this field is required",
					"work":     "this field is required",
					"deadline": "this field is required",
				},
			}),
		},
		{
			name: "invalid file URL", wantCode: http.StatusBadRequest,
			body: marchallObj(t, work.NewWork{Subject: "Math", Work: "p. 12", Deadline: "monday", FileURL: "lol"}),
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"fileUrl": "fileUrl must be a valid URL"},
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/work/add"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("created", func(t *testing.T) {
		body := marchallObj(t, work.NewWork{
			Subject:  " Math ",
			Work:     "Exercises p. 12",
			Deadline: "monday 8am",
			AddedBy:  "hero",
			FileURL:  testStorageURL + "/works/abc.pdf",
		})
		req, rec := newRequest(http.MethodPost, "/api/work/add", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var w work.Work
		decodeData(t, rec, &w)
		assert.NotEmpty(t, w.ID)
		assert.Equal(t, "Math", w.Subject)
		assert.Equal(t, "hero", w.AddedBy)
		assert.Equal(t, testStorageURL+"/works/abc.pdf", w.FileURL)
		assert.Equal(t, []work.Status{}, w.Statuses)
		assert.Equal(t, work.Counts{}, w.Counts)

		assert.Equal(t, 1, app.getTotals(t).TotalWorks)
	})
}

func Test_workApi_query(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/api/work")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, Response{Success: true, Data: WorkListResponse{Works: []work.Work{}}}),
	}, rec)

	w1 := app.createWork(t, "Math")
	w2 := app.createWork(t, "Physics")
	app.upsertStatus(t, w1.ID, "u1", "hero", work.StateDoing)

	w1, err := app.deps.WorkSvc.Get(context.Background(), w1.ID)
	require.NoError(t, err)
	totals, err := app.deps.WorkSvc.Totals(context.Background())
	require.NoError(t, err)

	req, rec = newRequest(http.MethodGet, "/api/work")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, Response{Success: true, Data: WorkListResponse{Works: []work.Work{w2, w1}, Totals: totals}}),
	}, rec)
	assert.Equal(t, 2, totals.TotalWorks)
	assert.Equal(t, 1, totals.Doing)
}

func Test_workApi_retrieve(t *testing.T) {
	app := setup(t)
	w := app.createWork(t, "Math")

	tests := []httpTest{
		{name: "not found", path: "/api/work/unknown", wantCode: http.StatusNotFound, wantData: marchallObj(t, errWorkNotFoundResp)},
		{name: "found", path: "/api/work/" + w.ID, wantCode: http.StatusOK, wantData: marchallObj(t, Response{Success: true, Data: w})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_workApi_destroy(t *testing.T) {
	app := setup(t)
	w1 := app.createWork(t, "Math")
	w2 := app.createWork(t, "Physics")
	app.upsertStatus(t, w1.ID, "u1", "hero", work.StateCompleted)
	app.upsertStatus(t, w2.ID, "u1", "hero", work.StateDoing)
	require.Equal(t, 1, app.getTotals(t).Completed)

	tests := []httpTest{
		{name: "not found", path: "/api/work/unknown", wantCode: http.StatusNotFound, wantData: marchallObj(t, errWorkNotFoundResp)},
		{name: "deleted", path: "/api/work/" + w1.ID, wantCode: http.StatusOK, wantData: marchallObj(t, Response{Success: true, Message: "Work deleted successfully"})},
		{name: "already deleted", path: "/api/work/" + w1.ID, wantCode: http.StatusNotFound, wantData: marchallObj(t, errWorkNotFoundResp)},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// totals no longer include the deleted work
	totals := app.getTotals(t)
	assert.Equal(t, 1, totals.TotalWorks)
	assert.Equal(t, 0, totals.Completed)
	assert.Equal(t, 1, totals.Doing)

	req, rec := newRequest(http.MethodGet, "/api/work/status/"+w1.ID)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errWorkNotFoundResp)}, rec)
}

func Test_workApi_upsertStatus(t *testing.T) {
	app := setup(t)
	w := app.createWork(t, "Math")

	tests := []httpTest{
		{
			name: "required fields", path: "/api/work/status/" + w.ID, body: marchallObj(t, work.UpdateStatus{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors: map[string]string{
					"userId":   "this field is required",
					"username": "this field is required",
					"state":    "this field is required",
				},
			}),
		},
		{
			name: "missing username", path: "/api/work/status/" + w.ID, wantCode: http.StatusBadRequest,
			body: []byte(`{"userId": "u1", "state": "doing"}`),
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"username": "this field is required"},
			}),
		},
		{
			name: "blank username", path: "/api/work/status/" + w.ID, wantCode: http.StatusBadRequest,
			body: marchallObj(t, work.UpdateStatus{UserID: "u1", Username: "   ", State: work.StateDoing}),
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"username": "this field is required"},
			}),
		},
		{
			name: "invalid state", path: "/api/work/status/" + w.ID, wantCode: http.StatusBadRequest,
			body: marchallObj(t, work.UpdateStatus{UserID: "u1", Username: "hero", State: "done"}),
			wantData: marchallObj(t, Response{
				Message: msgValidationFailed,
				Errors:  map[string]string{"state": `state must be one of "completed", "doing" or "not yet started"`},
			}),
		},
		{
			name: "state is case sensitive", path: "/api/work/status/" + w.ID, wantCode: http.StatusBadRequest,
			body: marchallObj(t, work.UpdateStatus{UserID: "u1", Username: "hero", State: "Completed"}),
		},
		{
			name: "work not found", path: "/api/work/status/unknown", wantCode: http.StatusNotFound,
			body:     marchallObj(t, work.UpdateStatus{UserID: "u1", Username: "hero", State: work.StateDoing}),
			wantData: marchallObj(t, errWorkNotFoundResp),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("same user updates in place", func(t *testing.T) {
		app.upsertStatus(t, w.ID, "u1", "hero", work.StateDoing)
		data := app.upsertStatus(t, w.ID, "u1", "hero2", work.StateCompleted)

		assert.Equal(t, w.ID, data.WorkID)
		require.Len(t, data.Statuses, 1)
		assert.Equal(t, "u1", data.Statuses[0].UserID)
		assert.Equal(t, "hero2", data.Statuses[0].Username)
		assert.Equal(t, work.StateCompleted, data.Statuses[0].State)
		assert.Equal(t, work.Counts{Completed: 1}, data.Counts)
	})

	t.Run("other user appends", func(t *testing.T) {
		data := app.upsertStatus(t, w.ID, "u2", "king", work.StateNotYetStarted)

		require.Len(t, data.Statuses, 2)
		assert.Equal(t, "u2", data.Statuses[1].UserID)
		assert.Equal(t, work.Counts{Completed: 1, NotYetStarted: 1}, data.Counts)

		totals := app.getTotals(t)
		assert.Equal(t, 1, totals.TotalWorks)
		assert.Equal(t, 1, totals.Completed)
		assert.Equal(t, 0, totals.Doing)
		assert.Equal(t, 1, totals.NotYetStarted)
	})

	t.Run("read status", func(t *testing.T) {
		stored, err := app.deps.WorkSvc.Get(context.Background(), w.ID)
		require.NoError(t, err)

		req, rec := newRequest(http.MethodGet, "/api/work/status/"+w.ID)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, Response{Success: true, Data: newWorkStatusResponse(stored)}),
		}, rec)
	})
}

func Test_workApi_upsertStatusConcurrently(t *testing.T) {
	app := setup(t)
	w := app.createWork(t, "Math")

	const users = 25
	var wg sync.WaitGroup
	codes := make(chan int, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := marchallObj(t, work.UpdateStatus{UserID: fmt.Sprintf("u%d", i), Username: fmt.Sprintf("user %d", i), State: work.States[i%len(work.States)]})
			req, rec := newRequest(http.MethodPost, "/api/work/status/"+w.ID, body)
			app.ServeHTTP(rec, req)
			codes <- rec.Code
		}(i)
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	stored, err := app.deps.WorkSvc.Get(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Statuses, users)
	assert.Equal(t, users, stored.Counts.Total())
	assert.Equal(t, work.CountStates(stored.Statuses), stored.Counts)

	totals := app.getTotals(t)
	assert.Equal(t, users, totals.Completed+totals.Doing+totals.NotYetStarted)
}

func Test_workApi_recompute(t *testing.T) {
	app := setup(t)
	w1 := app.createWork(t, "Math")
	w2 := app.createWork(t, "Physics")
	app.upsertStatus(t, w1.ID, "u1", "hero", work.StateCompleted)
	app.upsertStatus(t, w1.ID, "u2", "king", work.StateDoing)
	app.upsertStatus(t, w2.ID, "u1", "hero", work.StateNotYetStarted)

	// drift both cache layers
	_, err := app.repos.Works.UpdateWork(context.Background(), w1.ID, func(w *work.Work) error {
		w.Counts = work.Counts{Completed: 7, Doing: 7, NotYetStarted: 7}
		return nil
	})
	require.NoError(t, err)

	req, rec := newRequest(http.MethodPost, "/api/work/recompute-totals")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var totals work.Totals
	decodeData(t, rec, &totals)
	assert.Equal(t, 2, totals.TotalWorks)
	assert.Equal(t, 1, totals.Completed)
	assert.Equal(t, 1, totals.Doing)
	assert.Equal(t, 1, totals.NotYetStarted)
	assert.Equal(t, totals, app.getTotals(t))

	stored, err := app.deps.WorkSvc.Get(context.Background(), w1.ID)
	require.NoError(t, err)
	assert.Equal(t, work.Counts{Completed: 1, Doing: 1}, stored.Counts)
}
