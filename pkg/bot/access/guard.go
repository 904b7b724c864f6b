package access

import "sort"

// Guard is the static allow-list. It never changes after construction.
type Guard struct {
	allowed map[int64]struct{}
	members []int64
}

func NewGuard(userIDs []int64) *Guard {
	g := &Guard{allowed: make(map[int64]struct{}, len(userIDs))}
	for _, id := range userIDs {
		if id == 0 {
			continue
		}
		if _, ok := g.allowed[id]; ok {
			continue
		}
		g.allowed[id] = struct{}{}
		g.members = append(g.members, id)
	}
	sort.Slice(g.members, func(i, j int) bool { return g.members[i] < g.members[j] })
	return g
}

func (g *Guard) IsAuthorized(userID int64) bool {
	if g == nil {
		return false
	}
	_, ok := g.allowed[userID]
	return ok
}

// Members returns the allowed user IDs in ascending order.
func (g *Guard) Members() []int64 {
	if g == nil {
		return nil
	}
	return append([]int64(nil), g.members...)
}
