package columns

// Resolver finds logical columns in a header row. A header matches a wanted
// label when both normalize to the same text or both belong to the same
// dictionary entry.
type Resolver struct {
	dict *Dictionary
}

// NewResolver creates a resolver. A nil dictionary means plain label matching.
func NewResolver(dict *Dictionary) *Resolver {
	if dict == nil {
		dict = FromEntries(nil)
	}
	return &Resolver{dict: dict}
}

// FindColumns maps each logical name in wanted to the 1-based index of the
// first header matching its label. Names without a match are omitted.
func (r *Resolver) FindColumns(headers []string, wanted map[string]string) map[string]int {
	keys := make([]string, len(headers))
	canon := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = normalize(h)
		canon[i] = r.dict.Canonical(h)
	}

	found := make(map[string]int, len(wanted))
	for name, label := range wanted {
		key := normalize(label)
		if key == "" {
			continue
		}
		c := r.dict.Canonical(label)
		for i := range headers {
			if keys[i] == key || (c != "" && canon[i] == c) {
				found[name] = i + 1
				break
			}
		}
	}
	return found
}
