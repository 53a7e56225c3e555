package gamification

import "github.com/cyclelog/platform/internal/domain"

var dailyQuests = []domain.QuestTemplate{
	{ID: "d_start", Title: "Warm-up", Description: "Record at least 1 cycle.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyEasy, Metric: domain.MetricVolume, Target: 1, RewardXP: 50, Icon: "sword"},
	{ID: "d_vol_5", Title: "Hands On", Description: "Complete 5 cycles today.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyMedium, Metric: domain.MetricVolume, Target: 5, RewardXP: 100, Icon: "zap"},
	{ID: "d_vol_10", Title: "Hard Work", Description: "Record 10 cycles today.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyHard, Metric: domain.MetricVolume, Target: 10, RewardXP: 200, Icon: "fire"},
	{ID: "d_green", Title: "Green Day", Description: "Finish the day in profit.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyMedium, Metric: domain.MetricProfit, Target: 1, RewardXP: 150, Icon: "target"},
	{ID: "d_profit_100", Title: "Centurion", Description: "Make 100.00 profit today.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyMedium, Metric: domain.MetricProfit, Target: 100, RewardXP: 120, Icon: "banknote"},
	{ID: "d_profit_500", Title: "Goal Reached", Description: "Reach 500.00 profit today.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyHard, Metric: domain.MetricProfit, Target: 500, RewardXP: 300, Icon: "star"},
	{ID: "d_no_tilt", Title: "Zero Tilt", Description: "No single loss above 100.00 today.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyMedium, Metric: domain.MetricDiscipline, Target: 1, RewardXP: 150, Icon: "shield"},
	{ID: "d_tags", Title: "Organized", Description: "Tag 3 cycles.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyEasy, Metric: domain.MetricTags, Target: 3, RewardXP: 80, Icon: "star"},
	{ID: "d_morning", Title: "Early Bird", Description: "Record 2 cycles before noon.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyEasy, Metric: domain.MetricTime, Bracket: domain.BracketMorning, Target: 2, RewardXP: 70, Icon: "clock"},
	{ID: "d_night", Title: "Night Shift", Description: "Record 2 cycles after 20:00.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyEasy, Metric: domain.MetricTime, Bracket: domain.BracketNight, Target: 2, RewardXP: 70, Icon: "clock"},
	{ID: "d_streak_3", Title: "Hat-Trick", Description: "3 wins in a row today.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyHard, Metric: domain.MetricStreak, Target: 3, RewardXP: 250, Icon: "zap"},
	{ID: "d_pro_sniper", Title: "Elite Sniper (PRO)", Description: "5 cycles today without a single loss.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyPro, Metric: domain.MetricStreak, Target: 5, RewardXP: 500, ProOnly: true, Icon: "target"},
	{ID: "d_pro_grind", Title: "Pro Grinder (PRO)", Description: "20 cycles in a single day.", Frequency: domain.FrequencyDaily, Difficulty: domain.DifficultyPro, Metric: domain.MetricVolume, Target: 20, RewardXP: 400, ProOnly: true, Icon: "sword"},
}

var weeklyQuests = []domain.QuestTemplate{
	{ID: "w_active_4", Title: "Attendance", Description: "Operate on 4 different days this week.", Frequency: domain.FrequencyWeekly, Difficulty: domain.DifficultyMedium, Metric: domain.MetricConsistency, Target: 4, RewardXP: 400, Icon: "clock"},
	{ID: "w_profit_1k", Title: "Weekly Salary", Description: "Accumulate 1,000 profit this week.", Frequency: domain.FrequencyWeekly, Difficulty: domain.DifficultyHard, Metric: domain.MetricProfit, Target: 1000, RewardXP: 600, Icon: "banknote"},
	{ID: "w_vol_50", Title: "High Volume", Description: "50 cycles this week.", Frequency: domain.FrequencyWeekly, Difficulty: domain.DifficultyHard, Metric: domain.MetricVolume, Target: 50, RewardXP: 500, Icon: "fire"},
	{ID: "w_tags_master", Title: "Analyst", Description: "Tag 20 cycles.", Frequency: domain.FrequencyWeekly, Difficulty: domain.DifficultyMedium, Metric: domain.MetricTags, Target: 20, RewardXP: 300, Icon: "star"},
	{ID: "w_no_red_day", Title: "Unbeaten Week", Description: "No heavy loss all week.", Frequency: domain.FrequencyWeekly, Difficulty: domain.DifficultyHard, Metric: domain.MetricDiscipline, Target: 1, RewardXP: 1000, Icon: "shield"},
	{ID: "w_pro_whale", Title: "Whale (PRO)", Description: "5,000 profit this week.", Frequency: domain.FrequencyWeekly, Difficulty: domain.DifficultyPro, Metric: domain.MetricProfit, Target: 5000, RewardXP: 2000, ProOnly: true, Icon: "star"},
}

var monthlyQuests = []domain.QuestTemplate{
	{ID: "m_marathon", Title: "Marathoner", Description: "Operate on 15 days this month.", Frequency: domain.FrequencyMonthly, Difficulty: domain.DifficultyMedium, Metric: domain.MetricConsistency, Target: 15, RewardXP: 1500, Icon: "clock"},
	{ID: "m_volume_200", Title: "Elite Operator", Description: "200 cycles this month.", Frequency: domain.FrequencyMonthly, Difficulty: domain.DifficultyHard, Metric: domain.MetricVolume, Target: 200, RewardXP: 2000, Icon: "sword"},
	{ID: "m_profit_goal", Title: "Hit the Goal", Description: "Finish the month in profit.", Frequency: domain.FrequencyMonthly, Difficulty: domain.DifficultyHard, Metric: domain.MetricProfit, Target: 1, RewardXP: 2500, Icon: "target"},
	{ID: "m_pro_legend", Title: "Living Legend (PRO)", Description: "A month without a heavy loss.", Frequency: domain.FrequencyMonthly, Difficulty: domain.DifficultyPro, Metric: domain.MetricDiscipline, Target: 1, RewardXP: 5000, ProOnly: true, Icon: "star"},
}

var achievementDefs = []domain.Achievement{
	{ID: "ach_start", Title: "First Step", Description: "Record your first cycle.", Icon: "target", Color: "primary", RewardXP: 50, Target: 1},
	{ID: FirstWinID, Title: "First Green", Description: "Book your first profit.", Icon: "zap", Color: "profit", RewardXP: 100},

	{ID: "ach_vol_10", Title: "Beginner", Description: "10 cycles recorded.", Icon: "rocket", Color: "primary", RewardXP: 100, Target: 10},
	{ID: "ach_vol_50", Title: "Veteran", Description: "50 cycles recorded.", Icon: "rocket", Color: "primary", RewardXP: 300, Target: 50},
	{ID: "ach_vol_100", Title: "Centurion", Description: "100 cycles recorded.", Icon: "rocket", Color: "gold", RewardXP: 500, Target: 100},
	{ID: "ach_vol_500", Title: "Click Master", Description: "500 cycles recorded.", Icon: "crown", Color: "purple", RewardXP: 1000, Target: 500},
	{ID: "ach_vol_1000", Title: "Legend", Description: "1000 cycles recorded.", Icon: "rocket", Color: "purple", RewardXP: 5000, Target: 1000},

	{ID: "ach_prof_1k", Title: "First K", Description: "Total profit of 1,000.", Icon: "banknote", Color: "profit", RewardXP: 200, Target: 1000},
	{ID: "ach_prof_10k", Title: "High Roller", Description: "Total profit of 10,000.", Icon: "gem", Color: "gold", RewardXP: 1000, Target: 10000},
	{ID: "ach_prof_50k", Title: "Whale", Description: "Total profit of 50,000.", Icon: "crown", Color: "purple", RewardXP: 2500, Target: 50000},

	{ID: "ach_str_3", Title: "In the Flow", Description: "3 days in a row operating.", Icon: "zap", Color: "primary", RewardXP: 150, Target: 3},
	{ID: "ach_str_7", Title: "Consistent", Description: "7 days in a row operating.", Icon: "zap", Color: "gold", RewardXP: 400, Target: 7},
	{ID: "ach_str_30", Title: "Iron Discipline", Description: "30 days in a row operating.", Icon: "zap", Color: "purple", RewardXP: 2000, Target: 30},
	{ID: SniperID, Title: "Laser Sight", Description: "10 cycles in a row without a loss.", Icon: "target", Color: "gold", RewardXP: 500, Target: 10},

	// Secret entries have no rule and stay locked.

	{ID: "ach_chest", Title: "Chest Hunter", Description: "5,000 earned from bonuses alone.", Icon: "star", Color: "primary", RewardXP: 600, Target: 5000},

	{ID: "sec_comeback", Title: "The Phoenix", Description: "Recover a 500 daily loss.", Icon: "ghost", Color: "gold", RewardXP: 1000, Secret: true},
	{ID: "sec_insomniac", Title: "Vampire", Description: "Operate 5 nights in a row between 00h and 04h.", Icon: "ghost", Color: "purple", RewardXP: 800, Secret: true},
	{ID: "sec_perfect", Title: "Hand of God", Description: "A perfect week: 7 profitable days, at least 50 cycles.", Icon: "crown", Color: "purple", RewardXP: 5000, Secret: true},
}

var defaultCatalog = NewCatalog(
	append(append(append([]domain.QuestTemplate(nil), dailyQuests...), weeklyQuests...), monthlyQuests...),
	achievementDefs,
)

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}
