package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dropx/internal/config"
	"dropx/internal/delivery-service/core/ports"
)

// OSRMProvider computes driving routes against an OSRM-compatible HTTP
// endpoint. Safe for concurrent use.
type OSRMProvider struct {
	session *http.Client
	baseURL string
	profile string
}

func NewOSRMProvider(cfg *config.Routingconfig) *OSRMProvider {
	return &OSRMProvider{
		session: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		profile: "driving",
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64         `json:"distance"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRMProvider) ComputeRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (ports.RouteResult, error) {
	// OSRM takes lng,lat pairs.
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.baseURL, o.profile, originLng, originLat, destLng, destLat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.session.Do(req)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("routing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.RouteResult{}, fmt.Errorf("routing status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.RouteResult{}, fmt.Errorf("decode routing response: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return ports.RouteResult{}, fmt.Errorf("routing returned no route (code %q)", body.Code)
	}

	return ports.RouteResult{
		DistanceKm: body.Routes[0].Distance / 1000,
		Path:       body.Routes[0].Geometry,
	}, nil
}
