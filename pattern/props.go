package pattern

import "github.com/wyrmwatch/sentinel/kgraph"

func propString(e *kgraph.Entity, key string) (string, bool) {
	p, ok := e.Properties[key]
	if !ok {
		return "", false
	}
	s, ok := p.Value.(string)
	return s, ok
}

func propStringSet(e *kgraph.Entity, key string) map[string]struct{} {
	out := make(map[string]struct{})
	p, ok := e.Properties[key]
	if !ok {
		return out
	}
	switch v := p.Value.(type) {
	case []string:
		for _, s := range v {
			out[s] = struct{}{}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out[s] = struct{}{}
			}
		}
	}
	return out
}

func sentimentField(e *kgraph.Entity, field string) (float64, bool) {
	p, ok := e.Properties["sentiment"]
	if !ok {
		return 0, false
	}
	switch m := p.Value.(type) {
	case map[string]float64:
		v, ok := m[field]
		return v, ok
	case map[string]interface{}:
		v, ok := m[field]
		if !ok {
			return 0, false
		}
		f, ok := v.(float64)
		return f, ok
	default:
		return 0, false
	}
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
