package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"plp-bookstore/internal/handlers"
	"plp-bookstore/internal/middleware"
	"plp-bookstore/internal/runner"
	"plp-bookstore/internal/utils"
)

type recordedAudit struct {
	action, performedBy, runID string
}

type auditRecorder struct {
	entries []recordedAudit
}

func (a *auditRecorder) Log(ctx context.Context, _, action, performedBy string, _ any) error {
	runID, _ := utils.RunIDFrom(ctx)
	a.entries = append(a.entries, recordedAudit{action: action, performedBy: performedBy, runID: runID})
	return nil
}

func newStepRouter(h *handlers.StepHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/steps", h.ListSteps).Methods("GET")
	router.HandleFunc("/steps/{name}", h.RunStep).Methods("POST")
	router.HandleFunc("/run", h.RunAll).Methods("POST")
	return router
}

func TestStepHandler_ListSteps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("lists the catalog in order", func(mt *mtest.T) {
		h := handlers.NewStepHandler(mt.Coll, runner.New(nil, nil))

		w := httptest.NewRecorder()
		newStepRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/steps", nil))
		require.Equal(mt, http.StatusOK, w.Code)

		var views []struct {
			Step    int            `json:"step"`
			Name    string         `json:"name"`
			Class   string         `json:"class"`
			Command map[string]any `json:"command"`
		}
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &views))
		require.Len(mt, views, 17)
		assert.Equal(mt, 1, views[0].Step)
		assert.Equal(mt, "find-by-genre", views[0].Name)
		assert.Equal(mt, map[string]any{"genre": "Fiction"}, views[0].Command["filter"])
		assert.Equal(mt, "write", views[3].Class)
		assert.Equal(mt, "admin", views[13].Class)
		assert.EqualValues(mt, 5, views[9].Command["skip"])
		assert.Equal(mt, "executionStats", views[16].Command["verbosity"])
	})
}

func TestStepHandler_RunStep(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("runs a single read step", func(mt *mtest.T) {
		h := handlers.NewStepHandler(mt.Coll, runner.New(nil, nil))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch, bson.D{
			{Key: "title", Value: "Homage to Catalonia"},
			{Key: "author", Value: "George Orwell"},
		}))

		w := httptest.NewRecorder()
		newStepRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/steps/find-by-author", nil))
		require.Equal(mt, http.StatusOK, w.Code)

		var res struct {
			Step      int              `json:"step"`
			Documents []map[string]any `json:"documents"`
		}
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(mt, 3, res.Step)
		require.Len(mt, res.Documents, 1)
		assert.Equal(mt, "George Orwell", res.Documents[0]["author"])
	})

	mt.Run("unknown step", func(mt *mtest.T) {
		h := handlers.NewStepHandler(mt.Coll, runner.New(nil, nil))

		w := httptest.NewRecorder()
		newStepRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/steps/drop-books", nil))
		assert.Equal(mt, http.StatusNotFound, w.Code)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("server error", func(mt *mtest.T) {
		h := handlers.NewStepHandler(mt.Coll, runner.New(nil, nil))
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 0},
			{Key: "code", Value: 2},
			{Key: "errmsg", Value: "bad update"},
			{Key: "codeName", Value: "BadValue"},
		})

		w := httptest.NewRecorder()
		newStepRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/steps/update-price", nil))
		assert.Equal(mt, http.StatusInternalServerError, w.Code)
		assert.Contains(mt, w.Body.String(), "step 4 (update-price) failed")
	})
}

func TestStepHandler_RunStepZeroCounts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	tests := []struct {
		step     string
		response bson.D
		want     string
	}{
		{
			step:     "update-price",
			response: mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			want:     `"modified":0`,
		},
		{
			step:     "delete-by-title",
			response: mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			want:     `"deleted":0`,
		},
		{
			step:     "find-by-genre",
			response: mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch),
			want:     `"documents":[]`,
		},
	}
	for _, tt := range tests {
		mt.Run(tt.step, func(mt *mtest.T) {
			h := handlers.NewStepHandler(mt.Coll, runner.New(nil, nil))
			mt.AddMockResponses(tt.response)

			w := httptest.NewRecorder()
			newStepRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/steps/"+tt.step, nil))
			require.Equal(mt, http.StatusOK, w.Code)
			assert.Contains(mt, w.Body.String(), tt.want)
		})
	}
}

func TestStepHandler_AuditCreditsAuthenticatedUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("user id from token, run id from request", func(mt *mtest.T) {
		utils.InitJwtSecret("step-secret")
		token, err := utils.GenerateJWT("u-42")
		require.NoError(mt, err)

		audit := &auditRecorder{}
		r := runner.New(nil, nil)
		r.Audit = audit
		h := handlers.NewStepHandler(mt.Coll, r)

		router := mux.NewRouter()
		router.Use(middleware.RequestID)
		protected := router.PathPrefix("/").Subrouter()
		protected.Use(middleware.JWTAuth(nil))
		protected.HandleFunc("/steps/{name}", h.RunStep).Methods("POST")

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		req := httptest.NewRequest(http.MethodPost, "/steps/delete-by-title", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Request-ID", "req-9")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(mt, http.StatusOK, w.Code)

		require.Len(mt, audit.entries, 1)
		assert.Equal(mt, "DELETE", audit.entries[0].action)
		assert.Equal(mt, "u-42", audit.entries[0].performedBy)
		assert.Equal(mt, "req-9", audit.entries[0].runID)
	})

	mt.Run("falls back to the run id without a user", func(mt *mtest.T) {
		audit := &auditRecorder{}
		r := runner.New(nil, nil)
		r.Audit = audit
		h := handlers.NewStepHandler(mt.Coll, r)

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		req := httptest.NewRequest(http.MethodPost, "/steps/delete-by-title", nil)
		req = req.WithContext(utils.WithRunID(req.Context(), "run-3"))
		w := httptest.NewRecorder()
		newStepRouter(h).ServeHTTP(w, req)
		require.Equal(mt, http.StatusOK, w.Code)

		require.Len(mt, audit.entries, 1)
		assert.Equal(mt, "run-3", audit.entries[0].performedBy)
	})
}

func TestStepHandler_RunAll(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("stops at first failure", func(mt *mtest.T) {
		h := handlers.NewStepHandler(mt.Coll, runner.New(nil, nil))
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch),
			bson.D{
				{Key: "ok", Value: 0},
				{Key: "code", Value: 2},
				{Key: "errmsg", Value: "bad filter"},
				{Key: "codeName", Value: "BadValue"},
			},
		)

		w := httptest.NewRecorder()
		newStepRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", nil))
		assert.Equal(mt, http.StatusInternalServerError, w.Code)

		var resp handlers.RunResponse
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(mt, resp.Results, 1)
		assert.Equal(mt, 2, resp.Step)
		assert.Contains(mt, resp.Error, "find-published-after")
	})
}
