package domain

// Drill is one curated training position.
type Drill struct {
	ID    string
	Title string
	FEN   string
	Goal  string
	Hint  string
}
