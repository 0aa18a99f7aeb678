package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/platform/obs"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// fetchRemaining retrieves road distance and duration for the single
// origin -> destination cell of the matrix endpoint.
func (o *ORSNavigationBackend) fetchRemaining(
	ctx context.Context,
	origin, destination domain.Coordinate,
) (meters, seconds float64, err error) {
	defer obs.Time(ctx, "ors.fetchRemaining")(&err)

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	resp, err := o.postJSON(ctx, endpoint, matrixRequest{
		Locations:    [][]float64{origin.CoordsToList(), destination.CoordsToList()},
		Destinations: []int{1},
		Metrics:      []string{"distance", "duration"},
		Sources:      []int{0},
	})
	if err != nil {
		return 0, 0, unavailable("matrix request", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return 0, 0, unavailable("decode matrix response", err)
	}

	if len(mr.Distances) != 1 || len(mr.Durations) != 1 ||
		len(mr.Distances[0]) != 1 || len(mr.Durations[0]) != 1 {
		return 0, 0, unavailable("matrix response", fmt.Errorf(
			"expected a 1x1 matrix; got distances=%d durations=%d",
			len(mr.Distances), len(mr.Durations),
		))
	}

	metersPtr := mr.Distances[0][0]
	secondsPtr := mr.Durations[0][0]
	if metersPtr == nil || secondsPtr == nil {
		return 0, 0, unavailable("matrix response", fmt.Errorf("no route between %v and %v", origin, destination))
	}

	return *metersPtr, *secondsPtr, nil
}
