package transit

// Route is a read-only reference record loaded once at startup
type Route struct {
	RouteID   string `json:"route_id" csv:"route_id" groups:"basic"`
	ShortName string `json:"short_name" csv:"route_short_name" groups:"basic"`
	LongName  string `json:"long_name" csv:"route_long_name" groups:"basic"`
	Colour    string `json:"colour" csv:"route_color" groups:"basic"`
}

// Stop is a read-only reference record loaded once at startup
type Stop struct {
	StopID    string  `json:"stop_id" csv:"stop_id" groups:"basic"`
	Name      string  `json:"name" csv:"stop_name" groups:"basic"`
	Latitude  float64 `json:"lat" csv:"stop_lat" groups:"basic"`
	Longitude float64 `json:"lon" csv:"stop_lon" groups:"basic"`
}

// ReferenceData holds the static route & stop tables the detection rules
// consult. The pipeline never mutates these after load
type ReferenceData struct {
	Routes map[string]*Route
	Stops  map[string]*Stop
}

func NewReferenceData() *ReferenceData {
	return &ReferenceData{
		Routes: map[string]*Route{},
		Stops:  map[string]*Stop{},
	}
}

// NearStop reports whether the given position is within bufferMeters of any
// known stop
func (r *ReferenceData) NearStop(lat float64, lon float64, bufferMeters float64) bool {
	for _, stop := range r.Stops {
		if DistanceMeters(lat, lon, stop.Latitude, stop.Longitude) <= bufferMeters {
			return true
		}
	}

	return false
}
