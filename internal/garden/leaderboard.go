package garden

import (
	"cmp"
	"slices"
)

// DefaultLeaderboardSize is the number of entries shown when n <= 0.
const DefaultLeaderboardSize = 5

// Member is a gardener shown on the leaderboard.
type Member struct {
	Name  string
	Seeds int
	Motto string
	Title string
}

// Entry is one ranked leaderboard row.
type Entry struct {
	Rank int
	Member
	// Me marks the row of the requesting gardener.
	Me bool
}

// Leaderboard merges me into community and returns the top n gardeners by
// seeds. Ties keep name order. Ranks start at 1.
func Leaderboard(community []Member, me Member, n int) []Entry {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}
	all := make([]Entry, 0, len(community)+1)
	for _, m := range community {
		all = append(all, Entry{Member: m})
	}
	all = append(all, Entry{Member: me, Me: true})

	slices.SortStableFunc(all, func(a, b Entry) int {
		if c := cmp.Compare(b.Seeds, a.Seeds); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(all) > n {
		all = all[:n]
	}
	for i := range all {
		all[i].Rank = i + 1
	}
	return all
}

// DemoCommunity returns the sample gardeners used when no community source
// is configured.
func DemoCommunity() []Member {
	return []Member{
		{Name: "Sofía Zen", Seeds: 2450, Motto: "Menos es más", Title: "Roble Sabio"},
		{Name: "Marco Prisma", Seeds: 1820, Motto: "Geometría del éxito", Title: "Tallo Fuerte"},
		{Name: "Elena Oasis", Seeds: 1540, Motto: "Paz en el caos digital", Title: "Brote Dorado"},
		{Name: "Julián Bio", Seeds: 1200, Motto: "Sistemas vivos", Title: "Semilla Activa"},
		{Name: "Nora Root", Seeds: 1150, Motto: "Raíces profundas", Title: "Brote Sabio"},
	}
}
