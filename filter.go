package zoomout

// Filter selects the records of spec's type whose display distance exceeds the cutoff.
// A record exactly at the cutoff is excluded.
func Filter(records []Record, spec ActivitySpec) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Is(spec.Type) {
			continue
		}
		if spec.DisplayDistance(r.Distance) > spec.MinDistance {
			out = append(out, r)
		}
	}
	return out
}
