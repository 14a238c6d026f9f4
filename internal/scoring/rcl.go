package scoring

// FilterRCL returns the indices forming the restricted candidate list.
//
// Only candidates achieving the best observed N are eligible. Among
// those, a minor-score band is drawn between the best and worst observed
// minor: alpha 0 admits only the best scorer, alpha 1 admits every
// candidate at the best N. Indices are returned in input order.
func FilterRCL(scores []Composite, alpha float64) []int {
	if len(scores) == 0 {
		return nil
	}
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}

	bestN := scores[0].N
	for _, s := range scores[1:] {
		if s.N > bestN {
			bestN = s.N
		}
	}

	first := true
	var minMinor, maxMinor float64
	for _, s := range scores {
		if s.N != bestN {
			continue
		}
		if first {
			minMinor, maxMinor = s.Minor, s.Minor
			first = false
			continue
		}
		if s.Minor < minMinor {
			minMinor = s.Minor
		}
		if s.Minor > maxMinor {
			maxMinor = s.Minor
		}
	}

	threshold := minMinor + alpha*(maxMinor-minMinor)

	var rcl []int
	for i, s := range scores {
		if s.N == bestN && s.Minor <= threshold {
			rcl = append(rcl, i)
		}
	}
	return rcl
}
