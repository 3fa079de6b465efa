package sortby

// Criterion is the user-selected ordering policy of a search session.
type Criterion string

// Sort criteria.
const (
	// Relevance orders by reference match, availability, then match score.
	Relevance Criterion = "relevance"
	// Distance orders nearest first; unknown distances sort last.
	Distance Criterion = "distance"
	Rating   Criterion = "rating"
	// Price orders cheapest first; a missing price counts as 0.
	Price Criterion = "price"
)

// Default is used when the client sends no criterion.
const Default = Relevance

// IsValid checks if the criterion is one of the supported values.
func (c Criterion) IsValid() bool {
	return c == Relevance || c == Distance || c == Rating || c == Price
}

// Parse maps an empty string to Default.
func Parse(s string) (Criterion, bool) {
	if s == "" {
		return Default, true
	}
	c := Criterion(s)
	return c, c.IsValid()
}
