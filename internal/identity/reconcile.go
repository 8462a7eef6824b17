package identity

import "sort"

// AttributePlan is the minimal set of writes turning one attribute set into another.
type AttributePlan struct {
	Upserts []Attribute
	Deletes []string
}

// Empty reports whether the plan writes nothing.
func (p AttributePlan) Empty() bool {
	return len(p.Upserts) == 0 && len(p.Deletes) == 0
}

// Reconcile diffs stored against the authoritative desired set. Rows that are
// new or whose value changed are upserted; stored fields absent from desired
// are deleted. When desired repeats a field the last occurrence wins.
func Reconcile(stored, desired []Attribute) AttributePlan {
	current := make(map[string]string, len(stored))
	for _, a := range stored {
		current[a.Field] = a.Value
	}
	want := make(map[string]string, len(desired))
	order := make([]string, 0, len(desired))
	for _, a := range desired {
		if _, seen := want[a.Field]; !seen {
			order = append(order, a.Field)
		}
		want[a.Field] = a.Value
	}

	var plan AttributePlan
	for _, field := range order {
		value := want[field]
		if old, ok := current[field]; ok && old == value {
			continue
		}
		plan.Upserts = append(plan.Upserts, Attribute{Field: field, Value: value})
	}
	for field := range current {
		if _, keep := want[field]; !keep {
			plan.Deletes = append(plan.Deletes, field)
		}
	}
	sort.Strings(plan.Deletes)
	return plan
}
