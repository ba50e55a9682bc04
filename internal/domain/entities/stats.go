package entities

// DayCount is the number of tasks planned for one day.
type DayCount struct {
	Date  Date  `json:"date" bson:"_id"`
	Count int64 `json:"count" bson:"count"`
}

// PlannerStats summarizes the stored tasks: how many in total, how they
// spread across days, and which day is fullest.
type PlannerStats struct {
	TotalTasks int64      `json:"total_tasks"`
	Days       []DayCount `json:"days"`
	BusiestDay *DayCount  `json:"busiest_day,omitempty"`
}

// NewPlannerStats assembles stats from per-day counts. Days are expected
// in ascending date order, so ties go to the earlier day.
func NewPlannerStats(total int64, days []DayCount) *PlannerStats {
	stats := &PlannerStats{TotalTasks: total, Days: days}
	for i := range days {
		if stats.BusiestDay == nil || days[i].Count > stats.BusiestDay.Count {
			stats.BusiestDay = &days[i]
		}
	}
	return stats
}
