package domain

// DefaultPlans returns the built-in catalog used until an administrator
// saves a catalog of their own. The first entry is the fallback plan.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:              "plan_1",
			Name:            "Rice & Grains Bundle",
			Category:        CategoryFoodstuff,
			Amount:          5000,
			Frequency:       FrequencyWeekly,
			DurationInWeeks: 12,
			ImageURL:        "https://picsum.photos/seed/rice/400/300",
		},
		{
			ID:              "plan_2",
			Name:            "Organic Cow Share",
			Category:        CategoryLivestock,
			Amount:          25000,
			Frequency:       FrequencyMonthly,
			DurationInWeeks: 24,
			ImageURL:        "https://picsum.photos/seed/cow/400/300",
		},
		{
			ID:              "plan_3",
			Name:            "Festive Chicken Pack",
			Category:        CategoryMeat,
			Amount:          3500,
			Frequency:       FrequencyWeekly,
			DurationInWeeks: 10,
			ImageURL:        "https://picsum.photos/seed/chicken/400/300",
		},
		{
			ID:              "plan_4",
			Name:            "Family Mixed Foodstuff",
			Category:        CategoryBundle,
			Amount:          15000,
			Frequency:       FrequencyMonthly,
			DurationInWeeks: 12,
			ImageURL:        "https://picsum.photos/seed/mixed/400/300",
		},
	}
}

// DefaultPlan is the plan resolved for unknown ids.
func DefaultPlan() Plan {
	return DefaultPlans()[0]
}
