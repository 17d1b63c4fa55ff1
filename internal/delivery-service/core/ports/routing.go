package ports

import "context"

// RouteResult is what the routing provider computed. Degraded means the
// provider failed and the caller proceeded with distance 0.
type RouteResult struct {
	DistanceKm float64
	Path       []byte
	Degraded   bool
}

// IRouteProvider computes the driving route between two coordinates. The
// adapter applies a bounded timeout; an error here is never fatal to the
// operation that asked.
type IRouteProvider interface {
	ComputeRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (RouteResult, error)
}
