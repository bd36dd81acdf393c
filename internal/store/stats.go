package store

import "fmt"

const mostFrequentLimit = 10

// CategoryStat is the per-category breakdown for unresolved groups.
type CategoryStat struct {
	Category         string `json:"category"`
	Count            int64  `json:"count"`
	TotalOccurrences int64  `json:"total_occurrences"`
	CategoryLabel    string `json:"category_label"`
}

// Stats is the aggregate view served by the stats endpoint and the
// dashboard header.
type Stats struct {
	TotalErrors      int64             `json:"total_errors"`
	UnresolvedErrors int64             `json:"unresolved_errors"`
	ResolvedErrors   int64             `json:"resolved_errors"`
	ByCategory       []CategoryStat    `json:"by_category"`
	MostFrequent     []ErrorGroup      `json:"most_frequent"`
	Categories       map[string]string `json:"categories"`
}

// Stats computes group counts, the unresolved per-category breakdown
// ordered by summed occurrences, and the ten most frequent unresolved
// groups.
func (s *Store) Stats() (*Stats, error) {
	var total, unresolved int64
	if err := s.db.Model(&ErrorGroup{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count errors: %w", err)
	}
	if err := s.db.Model(&ErrorGroup{}).Where("resolved = ?", false).Count(&unresolved).Error; err != nil {
		return nil, fmt.Errorf("count unresolved: %w", err)
	}

	var byCategory []CategoryStat
	if err := s.db.Model(&ErrorGroup{}).
		Select("category, COUNT(*) AS count, SUM(occurrence_count) AS total_occurrences").
		Where("resolved = ?", false).
		Group("category").
		Order("total_occurrences DESC").
		Scan(&byCategory).Error; err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	for i := range byCategory {
		byCategory[i].CategoryLabel = s.categories.Label(byCategory[i].Category)
	}

	var frequent []ErrorGroup
	if err := s.db.Where("resolved = ?", false).
		Order("occurrence_count DESC").Limit(mostFrequentLimit).
		Find(&frequent).Error; err != nil {
		return nil, fmt.Errorf("most frequent: %w", err)
	}

	return &Stats{
		TotalErrors:      total,
		UnresolvedErrors: unresolved,
		ResolvedErrors:   total - unresolved,
		ByCategory:       byCategory,
		MostFrequent:     frequent,
		Categories:       s.categories.Labels(),
	}, nil
}
