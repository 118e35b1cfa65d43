package golokal

import "sort"

// DiffResult lists the keys that differ between two versions of a translation map.
type DiffResult struct {
	Added     []string // Keys only in the new map
	Removed   []string // Keys only in the old map
	Modified  []string // Keys present in both with different values
	Unchanged int      // Number of keys with identical values
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Modified:  len(d.Modified),
		Unchanged: d.Unchanged,
	}
}

// HasChanges returns true if there are any differences.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// DiffTranslations compares two translation maps. Key lists are sorted.
func DiffTranslations(oldMap, newMap TranslationMap) *DiffResult {
	result := &DiffResult{}

	for key, oldValue := range oldMap {
		newValue, ok := newMap[key]
		switch {
		case !ok:
			result.Removed = append(result.Removed, key)
		case newValue != oldValue:
			result.Modified = append(result.Modified, key)
		default:
			result.Unchanged++
		}
	}
	for key := range newMap {
		if _, ok := oldMap[key]; !ok {
			result.Added = append(result.Added, key)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(result.Modified)
	return result
}
