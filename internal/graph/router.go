package graph

import (
	"fmt"

	"github.com/fpang/genprompt/internal/session"
)

// Route is the entry decision for a traversal.
type Route int

const (
	// RouteAnalyze starts Stage 1: analyze the uploaded image, then write Prompt A.
	RouteAnalyze Route = iota
	// RouteDirect starts Stage 2: write Prompt B for a generated image.
	RouteDirect
	// RouteRefine applies pending user feedback to an existing prompt.
	RouteRefine
)

func (r Route) String() string {
	switch r {
	case RouteAnalyze:
		return "analyze"
	case RouteDirect:
		return "direct"
	case RouteRefine:
		return "refine"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// Node returns the step a route enters.
func (r Route) Node() Node {
	switch r {
	case RouteRefine:
		return NodeRefine
	case RouteDirect:
		return NodeDirect
	default:
		return NodeAnalyze
	}
}

// Routes lists every entry decision, in priority order.
var Routes = []Route{RouteRefine, RouteDirect, RouteAnalyze}

// Decide picks the entry step for st. Pending feedback always wins, then a
// creative brief; anything else, including an empty state, is a new Stage 1 job.
func Decide(st session.State) Route {
	switch {
	case st.UserFeedback != "":
		return RouteRefine
	case st.VideoCreativeBrief != nil:
		return RouteDirect
	default:
		return RouteAnalyze
	}
}
