package server

import "math/rand"

// Ladder is a grid of horizontal-rung rows. Each row has exactly one rung,
// at one of numPlayers-1 columns. The server never traverses it; clients
// compute their own exit slot and report it back.
type Ladder [][]bool

// Reward labels for the per-exit-slot assignment.
const (
	RewardWin  = "win"
	RewardBomb = "bomb"
)

// generateLadder builds a random ladder for numPlayers. The row count is an
// even number in [2, 20]. Deterministic given rng.
func generateLadder(numPlayers int, rng *rand.Rand) Ladder {
	rows := 2*rng.Intn(10) + 2
	if numPlayers < 2 {
		// A one-player ladder has no columns to place rungs in.
		return make(Ladder, 0)
	}
	ladder := make(Ladder, rows)
	for i := range ladder {
		row := make([]bool, numPlayers-1)
		row[rng.Intn(numPlayers-1)] = true
		ladder[i] = row
	}
	return ladder
}

// generateRewards assigns one uniformly random "win" slot; every other slot
// is "bomb".
func generateRewards(numPlayers int, rng *rand.Rand) []string {
	rewards := make([]string, numPlayers)
	for i := range rewards {
		rewards[i] = RewardBomb
	}
	if numPlayers > 0 {
		rewards[rng.Intn(numPlayers)] = RewardWin
	}
	return rewards
}
