package library

import "sort"

// Aggregation views: side-effect-free read models over the current book and
// loan collections, recomputed on demand. Nothing here caches, so a view is
// never staler than the snapshot it was computed from.

// Stats are the dashboard headline numbers.
type Stats struct {
	TotalBooks   int `json:"total_books"`
	TotalMembers int `json:"total_members"`
	ActiveLoans  int `json:"active_loans"`
	OverdueLoans int `json:"overdue_loans"`
}

// ActiveLoanCount counts loans that still hold a copy out of stock.
func ActiveLoanCount(loans []*Loan) int {
	n := 0
	for _, l := range loans {
		if l.Active() {
			n++
		}
	}
	return n
}

// OverdueCount counts loans currently overdue.
func OverdueCount(loans []*Loan) int {
	n := 0
	for _, l := range loans {
		if l.Status == LoanOverdue {
			n++
		}
	}
	return n
}

// RankByPopularity returns the books ordered by descending borrow count,
// ties broken by identity order. The input slice is not modified.
func RankByPopularity(books []*Book) []*Book {
	ranked := make([]*Book, len(books))
	copy(ranked, books)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalBorrowed != ranked[j].TotalBorrowed {
			return ranked[i].TotalBorrowed > ranked[j].TotalBorrowed
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// Stats loads the current collections and computes the dashboard numbers.
func (m *Manager) Stats() (Stats, error) {
	books, err := m.store.ListBooks("id")
	if err != nil {
		return Stats{}, err
	}
	members, err := m.store.ListMembers()
	if err != nil {
		return Stats{}, err
	}
	loans, err := m.store.ListLoans("")
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalBooks:   len(books),
		TotalMembers: len(members),
		ActiveLoans:  ActiveLoanCount(loans),
		OverdueLoans: OverdueCount(loans),
	}, nil
}

// PopularBooks returns the top limit books by borrow count. A limit of 0
// or less returns the full ranking.
func (m *Manager) PopularBooks(limit int) ([]*Book, error) {
	books, err := m.store.ListBooks("id")
	if err != nil {
		return nil, err
	}
	ranked := RankByPopularity(books)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
