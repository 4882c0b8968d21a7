package merchant

// DefaultCategory is the identity of every unaliased merchant.
const DefaultCategory = "Other"

// DefaultCategoryColor is used for Other and for any category whose
// color was never persisted.
const DefaultCategoryColor = "#9E9E9E"

// defaultCategories seed a fresh preference store.
var defaultCategories = map[string]string{
	"Food & Dining":  "#FF7043",
	"Groceries":      "#66BB6A",
	"Transportation": "#42A5F5",
	"Entertainment":  "#AB47BC",
	"Shopping":       "#FFCA28",
	"Healthcare":     "#EF5350",
	"Utilities":      "#26A69A",
	"Travel":         "#5C6BC0",
	DefaultCategory:  DefaultCategoryColor,
}

// palette supplies colors for categories created implicitly by an
// alias assignment.
var palette = []string{
	"#FF7043", "#66BB6A", "#42A5F5", "#AB47BC", "#FFCA28",
	"#EF5350", "#26A69A", "#5C6BC0", "#8D6E63", "#EC407A",
}
