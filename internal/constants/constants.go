package constants

// Audit actions.
const (
	Update      = "UPDATE"
	Delete      = "DELETE"
	CreateIndex = "CREATE_INDEX"
)

const (
	DefaultMongoURI   = "mongodb://localhost:27017"
	DefaultDBName     = "plp_bookstore"
	DefaultCollection = "books"
)
