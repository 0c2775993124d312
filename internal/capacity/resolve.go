package capacity

import "github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"

// Specificity ranks how precisely an AreaLimit matches a scope. Higher
// wins. A rank of -1 means the limit does not apply to the scope at all.
//
//	3: work line and work area both match exactly
//	2: work line matches, work area unset on the limit
//	1: work line unset on the limit, work area matches
//	0: both unset (department-wide limit)
func Specificity(limit model.AreaLimit, scope Scope) int {
	if limit.Department != scope.Department {
		return -1
	}

	lineSet := limit.WorkLine != ""
	areaSet := limit.WorkArea != ""
	if lineSet && limit.WorkLine != scope.WorkLine {
		return -1
	}
	if areaSet && limit.WorkArea != scope.WorkArea {
		return -1
	}

	switch {
	case lineSet && areaSet:
		return 3
	case lineSet:
		return 2
	case areaSet:
		return 1
	default:
		return 0
	}
}

// ResolveLimit picks the most specific matching AreaLimit for a scope and
// returns its MaxConcurrent. Without any match the default limit is 1.
// Among equally specific rows the first one wins; storage returns rows in
// insertion order so the outcome is deterministic.
func ResolveLimit(limits []model.AreaLimit, scope Scope) int {
	best := -1
	max := DefaultLimit
	for _, l := range limits {
		if l.MaxConcurrent < 1 {
			continue
		}
		if rank := Specificity(l, scope); rank > best {
			best = rank
			max = l.MaxConcurrent
		}
	}
	return max
}
