package selector

import "github.com/eliteGoblin/sleepshield/internal/domain"

// Question categories. Zone weighting keys off these names.
const (
	CategoryHumor          = "humor"
	CategoryMorningPull    = "morning_pull"
	CategoryFutureSelf     = "future_self"
	CategoryIntentionCheck = "intention_check"
	CategoryCostCalculator = "cost_calculator"
)

// DefaultBank returns the built-in question set. Templates may carry
// the placeholders [site], [time], [wake_time], [hours_left], [streak]
// and [attempt_count]; substitution is literal, every occurrence.
func DefaultBank() []domain.Question {
	return []domain.Question{
		// Early: the evening is young, keep it light.
		{ID: "humor_scroll_credits", Category: CategoryHumor, Zone: domain.ZoneEarly,
			Template: "The [site] feed does not roll credits. You could be the first to find the end, or you could sleep."},
		{ID: "humor_tomorrow_you", Category: CategoryHumor, Zone: domain.ZoneEarly,
			Template: "Tomorrow-you called. They would like to file a complaint about tonight-you opening [site] at [time]."},
		{ID: "humor_refresh_twice", Category: CategoryHumor, Zone: domain.ZoneEarly,
			Template: "You already know what is on [site]. It is the same thing that was on [site] twenty minutes ago."},
		{ID: "pull_first_hour", Category: CategoryMorningPull, Zone: domain.ZoneEarly,
			Template: "What would make the first hour after [wake_time] feel good? [site] is probably not on that list."},
		{ID: "pull_morning_plan", Category: CategoryMorningPull, Zone: domain.ZoneEarly,
			Template: "Picture tomorrow morning going well. What is the first thing that happens in that picture?"},
		{ID: "intent_what_for", Category: CategoryIntentionCheck, Zone: domain.ZoneEarly,
			Template: "What were you hoping to find on [site] right now? Name it before you go looking."},
		{ID: "cost_early_hours", Category: CategoryCostCalculator, Zone: domain.ZoneEarly,
			Template: "You have [hours_left] hours before [wake_time]. How many of them is [site] worth?"},

		// Mid: deep in the window, even footing.
		{ID: "humor_algorithm_wins", Category: CategoryHumor, Zone: domain.ZoneMid,
			Template: "A thousand engineers optimized [site] to keep you here. Closing the tab is you beating all of them at once."},
		{ID: "pull_wake_math", Category: CategoryMorningPull, Zone: domain.ZoneMid,
			Template: "It is [time]. Wake time is [wake_time]. The math only gets worse from here."},
		{ID: "future_breakfast", Category: CategoryFutureSelf, Zone: domain.ZoneMid,
			Template: "Tomorrow at breakfast, would you rather remember tonight as the night you slept or the night you scrolled [site]?"},
		{ID: "intent_still_want", Category: CategoryIntentionCheck, Zone: domain.ZoneMid,
			Template: "This is friction screen number [attempt_count] tonight. Is [site] still what you actually want?"},
		{ID: "intent_streak_mid", Category: CategoryIntentionCheck, Zone: domain.ZoneMid,
			Template: "You are [streak] nights into a streak. Does [site] get to end it at [time]?"},
		{ID: "cost_mid_sleep", Category: CategoryCostCalculator, Zone: domain.ZoneMid,
			Template: "[hours_left] hours of sleep left if you stop now. Every minute on [site] comes straight out of that."},

		// Late: close to wake, speak to the morning.
		{ID: "future_alarm", Category: CategoryFutureSelf, Zone: domain.ZoneLate,
			Template: "Your alarm goes off at [wake_time]. That person hitting snooze three times is you, and they know about [site]."},
		{ID: "future_one_sentence", Category: CategoryFutureSelf, Zone: domain.ZoneLate,
			Template: "In one sentence, what will you tell yourself at [wake_time] about why you were on [site] at [time]?"},
		{ID: "future_streak_late", Category: CategoryFutureSelf, Zone: domain.ZoneLate,
			Template: "A [streak]-night streak and [hours_left] hours until wake. Tomorrow-you is begging you to close this."},
		{ID: "intent_worth_it", Category: CategoryIntentionCheck, Zone: domain.ZoneLate,
			Template: "It is [time]. Whatever is on [site], it will still be there after [wake_time]. Will your energy?"},
		{ID: "intent_last_call", Category: CategoryIntentionCheck, Zone: domain.ZoneLate,
			Template: "Attempt [attempt_count]. At this hour there is nothing on [site] you need. What do you need instead?"},
		{ID: "humor_late_ghost", Category: CategoryHumor, Zone: domain.ZoneLate,
			Template: "Nothing good is posted to [site] at [time]. Even the bots are asleep."},
		{ID: "cost_late_sleep", Category: CategoryCostCalculator, Zone: domain.ZoneLate,
			Template: "[hours_left] hours until [wake_time]. That is the whole budget. Spend it on [site] or spend it asleep."},
	}
}
