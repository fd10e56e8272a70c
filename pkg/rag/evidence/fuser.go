package evidence

import "sort"

// Fuser merges the retrieval legs into a single ordered bundle that fits
// the prompt character budget.
type Fuser struct {
	CharBudget int
}

func NewFuser(charBudget int) *Fuser {
	return &Fuser{CharBudget: charBudget}
}

// Fuse orders knowledge items ahead of web items, then trims until the
// combined content fits the budget. Trimming always drops the lowest
// scored item first, regardless of which leg produced it, so a weak web
// hit cannot push out a strong knowledge chunk. The output order is
// fully deterministic for identical inputs.
func (f *Fuser) Fuse(knowledge []Item, web []Item) Bundle {
	items := make([]Item, 0, len(knowledge)+len(web))
	items = append(items, knowledge...)
	items = append(items, web...)

	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := sourcePriority(items[i].Source), sourcePriority(items[j].Source)
		if pi != pj {
			return pi < pj
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Rank < items[j].Rank
	})

	if f.CharBudget > 0 {
		items = f.trim(items)
	}

	return Bundle{Items: items}
}

func (f *Fuser) trim(items []Item) []Item {
	total := 0
	for _, it := range items {
		total += len(it.Content)
	}

	for total > f.CharBudget && len(items) > 0 {
		drop := f.weakestIndex(items)
		total -= len(items[drop].Content)
		items = append(items[:drop], items[drop+1:]...)
	}

	return items
}

// weakestIndex picks the item to evict: lowest score, then web before
// knowledge, then the later rank.
func (f *Fuser) weakestIndex(items []Item) int {
	weakest := 0
	for i := 1; i < len(items); i++ {
		a, b := items[i], items[weakest]
		switch {
		case a.Score != b.Score:
			if a.Score < b.Score {
				weakest = i
			}
		case sourcePriority(a.Source) != sourcePriority(b.Source):
			if sourcePriority(a.Source) > sourcePriority(b.Source) {
				weakest = i
			}
		case a.Rank > b.Rank:
			weakest = i
		}
	}
	return weakest
}
