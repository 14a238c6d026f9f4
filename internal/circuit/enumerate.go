package circuit

// Enumerate builds the full candidate universe: every circuit over the
// given labels with length in [minLen, maxLen], in increasing length
// order and, within one length, in lexicographic order of label indices.
//
// The ordering matters: downstream duplicate removal favors survivors
// that appear earlier in a length-sorted traversal, so shorter circuits
// win ties against longer ones producing the same transfer matrix.
//
// minLen of 0 includes the empty circuit as the first element.
func Enumerate(labels []string, minLen, maxLen int) []Circuit {
	if minLen < 0 {
		minLen = 0
	}
	if maxLen < minLen || len(labels) == 0 {
		if minLen == 0 {
			return []Circuit{New()}
		}
		return nil
	}

	var out []Circuit
	for n := minLen; n <= maxLen; n++ {
		if n == 0 {
			out = append(out, New())
			continue
		}
		idx := make([]int, n)
		buf := make([]string, n)
		for {
			for i, j := range idx {
				buf[i] = labels[j]
			}
			out = append(out, New(buf...))

			// advance the odometer, least-significant index last
			pos := n - 1
			for pos >= 0 {
				idx[pos]++
				if idx[pos] < len(labels) {
					break
				}
				idx[pos] = 0
				pos--
			}
			if pos < 0 {
				break
			}
		}
	}
	return out
}

// TotalOperations sums the lengths of all circuits in the list. Used by
// tie-breaking rules that prefer fewer total operations.
func TotalOperations(circuits []Circuit) int {
	total := 0
	for _, c := range circuits {
		total += c.Len()
	}
	return total
}

// Keys returns the canonical keys of the circuits, in order.
func Keys(circuits []Circuit) []string {
	keys := make([]string, len(circuits))
	for i, c := range circuits {
		keys[i] = c.Key()
	}
	return keys
}
