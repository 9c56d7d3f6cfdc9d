package traindto

// Outward-facing copies of the trainer's structured events, free of internal
// types so presentation layers can depend on this package alone.

type Feedback struct {
	PlayedSAN      string `json:"played_san"`
	PlayedUCI      string `json:"played_uci"`
	BestSAN        string `json:"best_san,omitempty"`
	BestUCI        string `json:"best_uci,omitempty"`
	BeforeCategory string `json:"before_category"`
	AfterCategory  string `json:"after_category"`
	BeforeScore    int    `json:"before_score"`
	AfterScore     int    `json:"after_score"`
}

type PromotionOutcome struct {
	MoveSAN string `json:"move_san"`
	AutoWin bool   `json:"auto_win"`
}

type OpponentMove struct {
	MoveSAN string `json:"move_san"`
	MoveUCI string `json:"move_uci"`
	FEN     string `json:"fen"`
}

type SessionEnd struct {
	Reason       string `json:"reason"`
	GoalAchieved bool   `json:"goal_achieved"`
	FEN          string `json:"fen"`
}
