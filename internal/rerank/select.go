package rerank

// BuildProviders orders providers per §4.8's selection priority:
// explicit config name first (if it resolves), then cloud when an API
// key is present and fallback mode isn't active, then local as the
// final safety net so Rerank always has something to try.
func BuildProviders(explicit string, cloud Provider, local Provider, hasCloudKey, fallbackActive bool) []Provider {
	var ordered []Provider

	if explicit != "" {
		switch explicit {
		case cloud.ID():
			if hasCloudKey && !fallbackActive {
				ordered = append(ordered, cloud)
			}
		case local.ID():
			ordered = append(ordered, local)
		}
	}

	if hasCloudKey && !fallbackActive && !contains(ordered, cloud.ID()) {
		ordered = append(ordered, cloud)
	}
	if !contains(ordered, local.ID()) {
		ordered = append(ordered, local)
	}
	return ordered
}

func contains(providers []Provider, id string) bool {
	for _, p := range providers {
		if p.ID() == id {
			return true
		}
	}
	return false
}
