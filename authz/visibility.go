package authz

import "dwn.evalgo.org/index"

// anyFilterRequestsUnpublished reports whether any Filter in the
// disjunction explicitly constrains published to false.
func anyFilterRequestsUnpublished(filters []index.Filter) bool {
	for _, f := range filters {
		if eq, ok := f["published"].(index.EqualFilter); ok {
			if b, ok := eq.Value.(bool); ok && !b {
				return true
			}
		}
	}
	return false
}

// cloneFilter returns a shallow copy of f so callers can add a clause
// without mutating the caller's original filter.
func cloneFilter(f index.Filter) index.Filter {
	out := make(index.Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// restrictToPublished ANDs published==true onto every filter, the
// visibility rule an anonymous caller gets (spec.md §4.8 step 1).
func restrictToPublished(filters []index.Filter) []index.Filter {
	if len(filters) == 0 {
		return []index.Filter{{"published": index.EqualFilter{Value: true}}}
	}
	out := make([]index.Filter, len(filters))
	for i, f := range filters {
		c := cloneFilter(f)
		c["published"] = index.EqualFilter{Value: true}
		out[i] = c
	}
	return out
}

// expandForNonOwner implements spec.md §4.8 step 2: an authenticated
// non-owner sees the union of published records, records addressed to
// them, and records they authored. Each original filter is expanded into
// three OR'd variants rather than attempting to express that union as a
// single AND-conjunction.
func expandForNonOwner(signerDid string, filters []index.Filter) []index.Filter {
	if len(filters) == 0 {
		filters = []index.Filter{{}}
	}
	out := make([]index.Filter, 0, len(filters)*3)
	for _, f := range filters {
		published := cloneFilter(f)
		published["published"] = index.EqualFilter{Value: true}
		out = append(out, published)

		recipient := cloneFilter(f)
		recipient["recipient"] = index.EqualFilter{Value: signerDid}
		out = append(out, recipient)

		author := cloneFilter(f)
		author["author"] = index.EqualFilter{Value: signerDid}
		out = append(out, author)
	}
	return out
}
