package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Book struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title"`
	Author        string             `json:"author" bson:"author"`
	Genre         string             `json:"genre" bson:"genre"`
	PublishedYear int                `json:"published_year" bson:"published_year"`
	Price         float64            `json:"price" bson:"price"`
	InStock       bool               `json:"in_stock" bson:"in_stock"`
}

const (
	BookEntity  = "book"
	IndexEntity = "index"
)
