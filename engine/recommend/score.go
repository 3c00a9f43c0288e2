package recommend

func applyBudgetFilter(scored []*scoredCandidate, budget *Budget) []*scoredCandidate {
	if budget == nil || budget.MaxUnitPrice <= 0 {
		return scored
	}
	out := make([]*scoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if sc.component.Price.Known {
			if sc.component.Price.UnitPrice > budget.MaxUnitPrice {
				continue
			}
		} else {
			sc.combined *= 0.9
		}
		out = append(out, sc)
	}
	return out
}

func applyPriorityAdjustment(scored []*scoredCandidate, priority Priority) {
	for _, sc := range scored {
		costFactor := costFactor(sc)
		availFactor := availabilityFactor(sc)
		const performanceFactor = 1.0

		switch priority {
		case PriorityCost:
			sc.combined *= costFactor
		case PriorityAvailability:
			sc.combined *= availFactor
		case PriorityPerformance:
			// unchanged
		case PriorityBalanced:
			sc.combined *= (costFactor + availFactor + performanceFactor) / 3
		}
	}
}

func costFactor(sc *scoredCandidate) float64 {
	price := sc.component.Price.UnitPrice
	if !sc.component.Price.Known || price < 0 {
		price = 0
	}
	return 1 / (1 + price)
}

func availabilityFactor(sc *scoredCandidate) float64 {
	stock := sc.component.Availability.StockQty
	if !sc.component.Availability.Known || stock < 0 {
		stock = 0
	}
	if stock > 1000 {
		stock = 1000
	}
	return float64(stock) / 1000
}
