package queries

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const PageSize = 5

func inStockAfter1950() bson.D {
	return bson.D{
		{Key: "in_stock", Value: true},
		{Key: "published_year", Value: bson.D{{Key: "$gt", Value: 1950}}},
	}
}

func titleAuthorPrice() bson.D {
	return bson.D{
		{Key: "title", Value: 1},
		{Key: "author", Value: 1},
		{Key: "price", Value: 1},
		{Key: "_id", Value: 0},
	}
}

func byPrice(direction int) bson.D {
	return bson.D{{Key: "price", Value: direction}}
}

// Page narrows base to the page-th window (1-based) of size documents.
// A page below 1 is treated as page 1.
func Page(base Operation, page, size int64) Operation {
	if page < 1 {
		page = 1
	}
	op := base
	op.Skip = int64Ptr((page - 1) * size)
	op.Limit = int64Ptr(size)
	return op
}

// Catalog returns the bookstore operations in the order they are run.
func Catalog() []Operation {
	sortedInStock := Operation{
		Name:       "sort-price-asc",
		Label:      "Sorting in-stock books after 1950 by price (ascending)",
		Kind:       KindFind,
		Filter:     inStockAfter1950(),
		Projection: titleAuthorPrice(),
		Sort:       byPrice(1),
	}

	page1 := Page(sortedInStock, 1, PageSize)
	page1.Name = "page-1"
	page1.Label = "Paginating in-stock books after 1950 (page 1, 5 books)"

	page2 := Page(sortedInStock, 2, PageSize)
	page2.Name = "page-2"
	page2.Label = "Paginating in-stock books after 1950 (page 2, 5 books)"

	return []Operation{
		{
			Name:   "find-by-genre",
			Label:  "Finding books in genre Fiction",
			Kind:   KindFind,
			Filter: bson.D{{Key: "genre", Value: "Fiction"}},
		},
		{
			Name:   "find-published-after",
			Label:  "Finding books published after 1950",
			Kind:   KindFind,
			Filter: bson.D{{Key: "published_year", Value: bson.D{{Key: "$gt", Value: 1950}}}},
		},
		{
			Name:   "find-by-author",
			Label:  "Finding books by George Orwell",
			Kind:   KindFind,
			Filter: bson.D{{Key: "author", Value: "George Orwell"}},
		},
		{
			Name:   "update-price",
			Label:  "Updating price of book 'The Alchemist' to 29.99",
			Kind:   KindUpdateOne,
			Filter: bson.D{{Key: "title", Value: "The Alchemist"}},
			Update: bson.D{{Key: "$set", Value: bson.D{{Key: "price", Value: 29.99}}}},
		},
		{
			Name:   "delete-by-title",
			Label:  "Deleting book 'Moby Dick'",
			Kind:   KindDeleteOne,
			Filter: bson.D{{Key: "title", Value: "Moby Dick"}},
		},
		{
			Name:       "find-in-stock-projected",
			Label:      "Finding in-stock books after 1950 with projection",
			Kind:       KindFind,
			Filter:     inStockAfter1950(),
			Projection: titleAuthorPrice(),
		},
		sortedInStock,
		{
			Name:       "sort-price-desc",
			Label:      "Sorting in-stock books after 1950 by price (descending)",
			Kind:       KindFind,
			Filter:     inStockAfter1950(),
			Projection: titleAuthorPrice(),
			Sort:       byPrice(-1),
		},
		page1,
		page2,
		{
			Name:  "avg-price-by-genre",
			Label: "Calculating average price by genre",
			Kind:  KindAggregate,
			Pipeline: mongo.Pipeline{
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$genre"},
					{Key: "avgPrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
				}}},
			},
		},
		{
			Name:  "top-author",
			Label: "Finding author with most books",
			Kind:  KindAggregate,
			Pipeline: mongo.Pipeline{
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$author"},
					{Key: "bookCount", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
				{{Key: "$sort", Value: bson.D{{Key: "bookCount", Value: -1}}}},
				{{Key: "$limit", Value: 1}},
			},
		},
		{
			Name:  "books-by-decade",
			Label: "Grouping books by publication decade",
			Kind:  KindAggregate,
			Pipeline: mongo.Pipeline{
				{{Key: "$project", Value: bson.D{
					{Key: "decade", Value: bson.D{{Key: "$multiply", Value: bson.A{
						bson.D{{Key: "$floor", Value: bson.D{{Key: "$divide", Value: bson.A{"$published_year", 10}}}}},
						10,
					}}}},
				}}},
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$decade"},
					{Key: "bookCount", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
				{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
			},
		},
		{
			Name:         "index-title",
			Label:        "Creating index on title",
			Kind:         KindCreateIndex,
			Keys:         bson.D{{Key: "title", Value: 1}},
			Confirmation: "Index on title created",
		},
		{
			Name:  "index-author-year",
			Label: "Creating compound index on author and published_year",
			Kind:  KindCreateIndex,
			Keys: bson.D{
				{Key: "author", Value: 1},
				{Key: "published_year", Value: 1},
			},
			Confirmation: "Compound index created",
		},
		{
			Name:      "explain-title",
			Label:     "Explain query on title with index",
			Kind:      KindExplain,
			Filter:    bson.D{{Key: "title", Value: "specificBookTitle"}},
			Verbosity: DefaultVerbosity,
		},
		{
			Name:  "explain-author-year",
			Label: "Explain query on author and published_year with compound index",
			Kind:  KindExplain,
			Filter: bson.D{
				{Key: "author", Value: "specificAuthor"},
				{Key: "published_year", Value: 2020},
			},
			Verbosity: DefaultVerbosity,
		},
	}
}

// Lookup finds a catalog operation by name and its 1-based step number.
func Lookup(name string) (Operation, int, bool) {
	for i, op := range Catalog() {
		if op.Name == name {
			return op, i + 1, true
		}
	}
	return Operation{}, 0, false
}
