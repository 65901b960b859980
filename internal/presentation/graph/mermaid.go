package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	// Failed marks CurrentNode as the node the run failed on.
	Failed bool
}

// OverlayFor builds the overlay of a run.
func OverlayFor(run *domain.Run) *GraphOverlay {
	if run == nil {
		return nil
	}
	return &GraphOverlay{
		VisitedNodes: run.Visited(),
		CurrentNode:  run.CurrentNode,
		Failed:       run.Status == domain.StatusFailed,
	}
}

// GenerateMermaid produces a Mermaid flowchart for g.
// Shapes:
//   - Start node: ((Circle))
//   - Branching node: {Rhombus}
//   - Other nodes: [[Subroutine]], labelled with node and tool
//
// A terminal successor is drawn as an edge to a shared end node.
// Overlay styles (visited/current/failed) are applied if overlay is non-nil.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	usesEnd := false
	edge := func(from, label, to string) {
		target := sanitizeMermaidID(to)
		if to == "" {
			target = "__end__"
			usesEnd = true
		}
		if label == "" {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, target)
			return
		}
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, label, target)
	}

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.Name)

		opener, closer := "[[", "]]"
		switch {
		case node.Name == g.StartNode:
			opener, closer = "((", "))"
		case node.IsBranching():
			opener, closer = "{", "}"
		}

		label := escapeLabel(node.Name)
		if node.Tool != "" && node.Tool != node.Name {
			label = fmt.Sprintf("%s <br/> %s", label, escapeLabel(node.Tool))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		if node.IsBranching() {
			key := escapeLabel(node.ConditionKey)
			edge(safeID, key, node.NextIfTrue)
			edge(safeID, "not "+key, node.NextIfFalse)
			continue
		}
		edge(safeID, "", node.Next)
	}

	if usesEnd {
		sb.WriteString("    __end__((\"end\"))\n")
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			class := "current"
			if overlay.Failed {
				class = "failed"
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(overlay.CurrentNode), class)
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
