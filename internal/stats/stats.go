package stats

type UserStats struct {
	XPTotal             int     `json:"xp_total"`
	Level               int     `json:"level"`
	XPToNextLevel       int     `json:"xp_to_next_level"`
	QuestsCompleted     int     `json:"quests_completed"`
	CurrentStreak       int     `json:"current_streak"`
	LongestStreak       int     `json:"longest_streak"`
	BadgesCount         int     `json:"badges_count"`
	ChallengesCompleted int     `json:"challenges_completed"`
	AnnualImpact        float64 `json:"annual_impact"`
	AnnualImpactProven  float64 `json:"annual_impact_proven"`
}
