package domain

// PhaseLabels are the user-facing names for each phase, used by the CSV
// export and any textual rendering of a phase.
var PhaseLabels = map[Phase]string{
	PhasePre:     "旅行前",
	PhaseDuring:  "旅行中",
	PhasePost:    "回國機場消費",
	PhaseSummary: "旅行結算",
}

// CategoriesByPhase partitions categories by the phase they belong to.
// The summary phase carries no categories.
var CategoriesByPhase = map[Phase][]Category{
	PhasePre: {
		CategoryFlight, CategoryAccommodation, CategoryInsurance,
		CategorySIMWifi, CategoryTransportAirport, CategoryExchange,
		CategoryShoppingPre, CategoryHelpBuy, CategoryOther,
	},
	PhaseDuring: {
		CategoryFood, CategoryShopping, CategorySouvenir, CategoryHelpBuy,
		CategoryTransport, CategoryTicket, CategoryExchange, CategoryOther,
	},
	PhasePost: {
		CategoryCosmetics, CategoryElectronics, CategorySouvenir,
		CategoryFashion, CategoryAccessories, CategoryFood,
		CategoryTransportPost, CategoryHelpBuy, CategoryOther,
	},
	PhaseSummary: {},
}

// PhaseForCategory infers the phase a scanned category implies: pre when
// the category appears in the pre list, post when in the post list, and
// during for everything else. The post check runs last so categories shared
// across lists resolve the same way routing historically did.
func PhaseForCategory(c Category) Phase {
	phase := PhaseDuring
	if containsCategory(CategoriesByPhase[PhasePre], c) {
		phase = PhasePre
	}
	if containsCategory(CategoriesByPhase[PhasePost], c) {
		phase = PhasePost
	}
	return phase
}

// FurthestPhase scans expenses for the most advanced phase present
// (post > during > pre), defaulting to pre when none match.
func FurthestPhase(expenses []Expense) Phase {
	hasDuring := false
	for _, e := range expenses {
		switch e.Phase {
		case PhasePost:
			return PhasePost
		case PhaseDuring:
			hasDuring = true
		}
	}
	if hasDuring {
		return PhaseDuring
	}
	return PhasePre
}

func containsCategory(list []Category, c Category) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}
