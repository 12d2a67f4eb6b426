package router

import (
	"fmt"
	"sort"
	"strings"
)

// Conflict describes two routes whose patterns match the same URLs.
// Resolution still succeeds: the sibling that sorts first wins and the
// other is reached only when the first one's subtree does not resolve.
type Conflict struct {
	Shape  string   `json:"shape"`
	Routes []string `json:"routes"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("routes %s all match %s", strings.Join(c.Routes, ", "), c.Shape)
}

// FindConflicts reports routes that differ only in param names, such as
// /orders/:id/ and /orders/:slug/.
func FindConflicts(routes []Route) []Conflict {
	byShape := make(map[string][]string)
	var shapes []string
	for _, r := range routes {
		shape := shapeOf(r.Dir)
		if _, seen := byShape[shape]; !seen {
			shapes = append(shapes, shape)
		}
		byShape[shape] = append(byShape[shape], r.Pattern)
	}

	var conflicts []Conflict
	for _, shape := range shapes {
		if patterns := byShape[shape]; len(patterns) > 1 {
			sort.Strings(patterns)
			conflicts = append(conflicts, Conflict{Shape: shape, Routes: patterns})
		}
	}
	return conflicts
}

func shapeOf(dir string) string {
	segs := splitDir(dir)
	if len(segs) == 0 {
		return "/"
	}
	for i, seg := range segs {
		if IsDynamic(seg) {
			segs[i] = "*"
		}
	}
	return "/" + strings.Join(segs, "/") + "/"
}

// SortBySpecificity orders routes the way the resolver prefers them:
// segment by segment, static before dynamic, then by name. Shorter routes
// come before their descendants.
func SortBySpecificity(routes []Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := splitDir(routes[i].Dir), splitDir(routes[j].Dir)
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] == b[k] {
				continue
			}
			da, db := IsDynamic(a[k]), IsDynamic(b[k])
			if da != db {
				return !da
			}
			return a[k] < b[k]
		}
		return len(a) < len(b)
	})
}
