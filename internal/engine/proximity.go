package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

// EarthRadiusKm is the mean earth radius used for every distance.
const EarthRadiusKm = 6371.0

// boundPadding widens the SQL pre-filter box; orb's bound uses the WGS84
// equatorial radius (6378.137 km), which draws a slightly tighter box.
const boundPadding = 1.01

// NearbyStatus tells the caller which onboarding prompt, if any, to show.
type NearbyStatus string

const (
	NearbyOK            NearbyStatus = "ok"
	NearbyNeedsOptIn    NearbyStatus = "needs_opt_in"
	NearbyNeedsLocation NearbyStatus = "needs_location"
)

// NearbyItem is one candidate with its distance from the viewer.
type NearbyItem struct {
	Profile    ProfileSummary `json:"profile"`
	DistanceKm float64        `json:"distanceKm"`
	Distance   string         `json:"distance"`
}

// NearbyResult carries either items (NearbyOK) or a precondition status.
type NearbyResult struct {
	Status NearbyStatus `json:"status"`
	Items  []NearbyItem `json:"items"`
}

// HaversineKm returns the great-circle distance in km between two points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// FormatDistance renders km for display: whole meters below 1 km
// ("450m"), otherwise kilometers to one decimal ("3.2km"). A distance that
// rounds to 1000m is shown as "1.0km".
func FormatDistance(km float64) string {
	if m := math.Round(km * 1000); m < 1000 {
		return fmt.Sprintf("%dm", int(m))
	}
	return fmt.Sprintf("%.1fkm", km)
}

// coordinates is validated before any location write.
type coordinates struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
}

// ProximityIndex answers location-based discovery.
type ProximityIndex struct {
	*core
	blocks *BlockFilter
}

var validate = validator.New()

// Nearby lists candidates within maxDistanceKm of viewer, nearest first.
//
// Behavior:
//   - Viewer not opted in → status needs_opt_in; no location → needs_location.
//     These are results, not errors, and are checked in that order.
//   - maxDistanceKm must be in (0, MaxNearbyKm] and gender one of
//     male/female/other or empty, else InvalidInput.
//   - Candidates are public, opted in, located, outside the exclusion set.
//     An orb bound pre-filters in SQL; haversine decides.
//   - Ties on distance are ordered by user id; the list is capped at NearbyLimit.
func (p *ProximityIndex) Nearby(ctx context.Context, viewer uint64, gender string, maxDistanceKm float64) (NearbyResult, error) {
	if !(maxDistanceKm > 0 && maxDistanceKm <= p.opts.MaxNearbyKm) {
		return NearbyResult{}, svcErr.InvalidInput(fmt.Sprintf("maxDistanceKm must be in (0, %g]", p.opts.MaxNearbyKm))
	}
	genders, err := genderFilter(gender)
	if err != nil {
		return NearbyResult{}, err
	}

	me, err := p.repos.Profiles.Get(ctx, viewer)
	if repository.IsNotFound(err) {
		return NearbyResult{}, svcErr.NotFound("profile not found")
	} else if err != nil {
		return NearbyResult{}, err
	}
	if !me.ShowNearby {
		nearbyTotal.WithLabelValues(string(NearbyNeedsOptIn)).Inc()
		return NearbyResult{Status: NearbyNeedsOptIn, Items: []NearbyItem{}}, nil
	}
	if me.Latitude == nil || me.Longitude == nil {
		nearbyTotal.WithLabelValues(string(NearbyNeedsLocation)).Inc()
		return NearbyResult{Status: NearbyNeedsLocation, Items: []NearbyItem{}}, nil
	}
	lat, lon := *me.Latitude, *me.Longitude

	excluded, err := p.blocks.ExclusionSet(ctx, viewer)
	if err != nil {
		return NearbyResult{}, err
	}
	bound := geo.NewBoundAroundPoint(orb.Point{lon, lat}, maxDistanceKm*1000*boundPadding)
	candidates, err := p.repos.Profiles.Nearby(ctx, repository.CandidateFilter{
		Exclude: excluded.IDs(),
		Genders: genders,
	}, bound)
	if err != nil {
		return NearbyResult{}, err
	}

	now := p.clock.Now()
	items := make([]NearbyItem, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if excluded.Contains(c.UserID) || c.Latitude == nil || c.Longitude == nil {
			continue
		}
		d := HaversineKm(lat, lon, *c.Latitude, *c.Longitude)
		if d > maxDistanceKm {
			continue
		}
		items = append(items, NearbyItem{
			Profile:    Summarize(c.UserID, c, now),
			DistanceKm: d,
			Distance:   FormatDistance(d),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DistanceKm != items[j].DistanceKm {
			return items[i].DistanceKm < items[j].DistanceKm
		}
		return items[i].Profile.UserID < items[j].Profile.UserID
	})
	if len(items) > p.opts.NearbyLimit {
		items = items[:p.opts.NearbyLimit]
	}

	nearbyTotal.WithLabelValues(string(NearbyOK)).Inc()
	return NearbyResult{Status: NearbyOK, Items: items}, nil
}

// UpdateLocation stores the viewer's coordinates after range validation.
func (p *ProximityIndex) UpdateLocation(ctx context.Context, userID uint64, lat, lon float64) error {
	if err := validate.Struct(coordinates{Latitude: lat, Longitude: lon}); err != nil {
		return svcErr.InvalidInput("invalid coordinates")
	}
	err := p.repos.Profiles.UpdateLocation(ctx, userID, lat, lon)
	if repository.IsNotFound(err) {
		return svcErr.NotFound("profile not found")
	}
	return err
}

// SetShowNearby toggles the nearby opt-in.
func (p *ProximityIndex) SetShowNearby(ctx context.Context, userID uint64, enabled bool) error {
	err := p.repos.Profiles.SetShowNearby(ctx, userID, enabled)
	if repository.IsNotFound(err) {
		return svcErr.NotFound("profile not found")
	}
	return err
}

// genderFilter validates an optional explicit gender filter.
func genderFilter(gender string) ([]string, error) {
	switch gender {
	case "":
		return nil, nil
	case db.GenderMale, db.GenderFemale, db.GenderOther:
		return []string{gender}, nil
	default:
		return nil, svcErr.InvalidInput("gender must be male, female or other")
	}
}
