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
	"plp-bookstore/internal/models"
)

func TestMetricsHandler_GetMetrics(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("collection metrics", func(mt *mtest.T) {
		handler := handlers.MetricsHandler{BookCol: mt.Coll}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch, bson.D{{Key: "n", Value: int64(12)}}),
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch, bson.D{{Key: "n", Value: int64(7)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"Fiction", "Dystopian"}}),
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch,
				bson.D{{Key: "v", Value: 2}, {Key: "key", Value: bson.D{{Key: "_id", Value: 1}}}, {Key: "name", Value: "_id_"}},
				bson.D{{Key: "v", Value: 2}, {Key: "key", Value: bson.D{{Key: "title", Value: 1}}}, {Key: "name", Value: "title_1"}},
			),
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch, bson.D{
				{Key: "title", Value: "The Alchemist"},
				{Key: "author", Value: "Paulo Coelho"},
				{Key: "price", Value: 29.99},
				{Key: "in_stock", Value: true},
			}),
		)

		router := mux.NewRouter()
		router.HandleFunc("/admin/metrics", handler.GetMetrics).Methods("GET")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/metrics", nil))
		require.Equal(mt, http.StatusOK, w.Code)

		var body struct {
			TotalBooks int64        `json:"total_books"`
			InStock    int64        `json:"in_stock"`
			Genres     []string     `json:"genres"`
			Indexes    []string     `json:"indexes"`
			Priciest   *models.Book `json:"most_expensive"`
		}
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &body))
		assert.EqualValues(mt, 12, body.TotalBooks)
		assert.EqualValues(mt, 7, body.InStock)
		assert.Equal(mt, []string{"Fiction", "Dystopian"}, body.Genres)
		assert.Equal(mt, []string{"_id_", "title_1"}, body.Indexes)
		require.NotNil(mt, body.Priciest)
		assert.Equal(mt, "The Alchemist", body.Priciest.Title)
		assert.Equal(mt, 29.99, body.Priciest.Price)
	})

	mt.Run("nothing in stock", func(mt *mtest.T) {
		handler := handlers.MetricsHandler{BookCol: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch, bson.D{{Key: "n", Value: int64(3)}}),
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch, bson.D{{Key: "n", Value: int64(0)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"Fiction"}}),
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch,
				bson.D{{Key: "v", Value: 2}, {Key: "key", Value: bson.D{{Key: "_id", Value: 1}}}, {Key: "name", Value: "_id_"}},
			),
			mtest.CreateCursorResponse(0, "plp_bookstore.books", mtest.FirstBatch),
		)

		w := httptest.NewRecorder()
		handler.GetMetrics(w, httptest.NewRequest(http.MethodGet, "/admin/metrics", nil))
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), `"most_expensive":null`)
	})

	mt.Run("count failure", func(mt *mtest.T) {
		handler := handlers.MetricsHandler{BookCol: mt.Coll}
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 0},
			{Key: "code", Value: 13},
			{Key: "errmsg", Value: "not authorized"},
			{Key: "codeName", Value: "Unauthorized"},
		})

		w := httptest.NewRecorder()
		handler.GetMetrics(w, httptest.NewRequest(http.MethodGet, "/admin/metrics", nil))
		assert.Equal(mt, http.StatusInternalServerError, w.Code)
	})
}
