package sanitizer

// NormalizeStringSlice applies normalizer to every item, dropping empties and
// duplicates while keeping first-seen order.
func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		normalized := normalizer(item)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}
	return result
}

// NormalizeEnumSlice canonicalizes each value against allowed. Unknown values
// are kept verbatim so validation can report them.
func NormalizeEnumSlice(values, allowed []string) []string {
	return NormalizeStringSlice(values, func(v string) string {
		if canonical := NormalizeEnum(v, allowed); canonical != "" {
			return canonical
		}
		return TrimAndNormalize(v)
	})
}

func NormalizeImageURLs(urls []string) []string {
	return NormalizeStringSlice(urls, NormalizeImageURL)
}
