package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plp-bookstore/internal/models"
	"plp-bookstore/internal/utils"
)

type MetricsHandler struct {
	BookCol *mongo.Collection
}

// GET /admin/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. Total books
	totalBooks, err := h.BookCol.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.JSONError(w, "Failed to count books: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// 2. In stock
	inStock, err := h.BookCol.CountDocuments(ctx, bson.M{"in_stock": true})
	if err != nil {
		utils.JSONError(w, "Failed to count in-stock books: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// 3. Genres
	genres, err := h.BookCol.Distinct(ctx, "genre", bson.M{})
	if err != nil {
		utils.JSONError(w, "Failed to list genres: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// 4. Indexes
	cursor, err := h.BookCol.Indexes().List(ctx)
	if err != nil {
		utils.JSONError(w, "Failed to list indexes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var specs []struct {
		Name string `bson:"name"`
	}
	if err := cursor.All(ctx, &specs); err != nil {
		utils.JSONError(w, "Failed to decode indexes", http.StatusInternalServerError)
		return
	}
	indexes := make([]string, 0, len(specs))
	for _, s := range specs {
		indexes = append(indexes, s.Name)
	}

	// 5. Most expensive book in stock
	var priciest *models.Book
	var book models.Book
	opts := options.FindOne().SetSort(bson.D{{Key: "price", Value: -1}})
	err = h.BookCol.FindOne(ctx, bson.M{"in_stock": true}, opts).Decode(&book)
	switch {
	case err == nil:
		priciest = &book
	case err != mongo.ErrNoDocuments:
		utils.JSONError(w, "Failed to find most expensive book: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_books":    totalBooks,
		"in_stock":       inStock,
		"genres":         genres,
		"indexes":        indexes,
		"most_expensive": priciest,
	})
}
