package models

// LeaderboardEntry is one row of the balance leaderboard
type LeaderboardEntry struct {
	Rank                int
	PlayerID            int64
	Username            string
	Balance             int64
	ChallengesCompleted int
	WeeklyChange        int64 // sum of ledger amounts inside the leaderboard window
}

// BetStats are aggregated bet totals for a player
type BetStats struct {
	TotalBets    int
	WonBets      int
	LostBets     int
	ActiveBets   int
	TotalWagered int64 // stakes of bets that were not cancelled
	TotalWon     int64 // payouts of won bets
	TotalStaked  int64 // stakes of active bets
}

// UserStats is the per-player statistics view
type UserStats struct {
	PlayerID     int64
	Balance      int64
	TotalWagered int64
	TotalWon     int64
	WinRate      float64 // Percentage as 0-100 over settled bets
	ActiveBets   int
	TotalStaked  int64
	Rank         int
	TotalUsers   int

	ChallengesCompleted int
}

// WinRate returns won / (won + lost) as a percentage
func (s *BetStats) WinRate() float64 {
	settled := s.WonBets + s.LostBets
	if settled == 0 {
		return 0
	}
	return float64(s.WonBets) / float64(settled) * 100
}
