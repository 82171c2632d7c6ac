package dag

import (
	"sort"

	"crossbind/internal/project"
)

type ModuleID uint32

// ModuleIndex assigns dense IDs to member names, sorted for determinism.
type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

func BuildIndex(members []*project.Module) ModuleIndex {
	uniq := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Name != "" {
			uniq[m.Name] = struct{}{}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]ModuleID, len(names))
	for i, name := range names {
		nameToID[name] = ModuleID(i) //nolint:gosec // bounded by member count
	}

	return ModuleIndex{
		NameToID: nameToID,
		IDToName: names,
	}
}
