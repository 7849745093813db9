package schema

// Sort order values accepted by the score listing.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Butterfly is the creation shape of a butterfly.
var Butterfly = Shape{
	Name: "butterfly",
	Fields: []Field{
		{Name: "commonName", Kind: String, Required: true},
		{Name: "species", Kind: String, Required: true},
		{Name: "article", Kind: String, Required: true},
	},
}

// User is the creation shape of a user.
var User = Shape{
	Name: "user",
	Fields: []Field{
		{Name: "username", Kind: String, Required: true},
	},
}

// Score is the creation shape of a score. The userId is injected by the
// caller after validation and is therefore not part of the shape.
var Score = Shape{
	Name: "score",
	Fields: []Field{
		{Name: "butterflyId", Kind: String, Required: true},
		{Name: "score", Kind: Integer, Required: true, Min: 0, Max: 5},
	},
}

// SortOrder is the shape of the score listing query.
var SortOrder = Shape{
	Name: "sort order",
	Fields: []Field{
		{Name: "sortOrder", Kind: Enum, Required: true, Values: []string{SortAsc, SortDesc}},
	},
}
