package reviews

// Store is the call surface the HTTP layer and the stress workload need.
// Every method is total: unknown products read as empty and are never errors.
type Store interface {
	AddProduct(id int)
	RemoveProduct(id int)
	AddReview(id int, text string)
	AllReviews(id int) []string
	LatestReview(id int) (string, bool)
	ProductsWithReviews() []int
	Stats() Stats
}

type Stats struct {
	Products            int `json:"products"`
	ProductsWithReviews int `json:"products_with_reviews"`
	Reviews             int `json:"reviews"`
}
