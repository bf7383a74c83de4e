package compiler

import (
	"fmt"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

// ReferenceCycleError reports entities that reference each other in a
// loop. Runtime definitions are built one at a time, so a referenced
// entity must exist before the entity that points at it.
type ReferenceCycleError struct {
	Path []string // e.g. ["A", "B", "A"]
}

func (e *ReferenceCycleError) Error() string {
	return fmt.Sprintf("reference cycle: %s", strings.Join(e.Path, " → "))
}

// OrderEntities returns defs ordered so that every referenced entity
// comes before the entities referencing it. Unrelated entities keep
// their declaration order.
//
// The algorithm:
//  1. Build entity → referenced entity graph from column references
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Any SCC with size > 1 or a self-loop is a cycle and fails
//
// Tarjan emits components dependencies first, which is the order Define
// needs.
func OrderEntities(defs []model.Definition) ([]model.Definition, error) {
	byName := make(map[string]model.Definition, len(defs))
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		if _, dup := byName[def.Name]; dup {
			return nil, &CompileError{Field: "entity." + def.Name, Message: "entity declared twice"}
		}
		byName[def.Name] = def
		names = append(names, def.Name)
	}

	// Unknown references are left for Define to report.
	graph := make(referenceGraph, len(defs))
	for _, def := range defs {
		graph[def.Name] = []string{}
		for _, col := range def.Columns {
			if _, ok := byName[col.Reference]; ok {
				graph[def.Name] = append(graph[def.Name], col.Reference)
			}
		}
	}

	ordered := make([]model.Definition, 0, len(defs))
	for _, scc := range tarjanSCC(names, graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return nil, &ReferenceCycleError{Path: reconstructCyclePath(scc, graph)}
		}
		ordered = append(ordered, byName[scc[0]])
	}
	return ordered, nil
}

// referenceGraph maps entity name → referenced entity names.
type referenceGraph map[string][]string

func hasSelfLoop(node string, graph referenceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in the order of nodes.
func tarjanSCC(nodes []string, graph referenceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath follows edges inside scc from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph referenceGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
