package types

// Anchor is a labelled point on a rating scale
type Anchor struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Scale is a closed integer self-rating scale
type Scale struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Min         int      `json:"min"`
	Max         int      `json:"max"`
	Default     int      `json:"default"`
	Anchors     []Anchor `json:"anchors"`
}

var KSS = Scale{
	Code:        "KSS",
	Name:        "Karolinska Sleepiness Scale",
	Description: "A self-rated scale that reflects your current level of sleepiness.",
	Min:         1,
	Max:         9,
	Default:     5,
	Anchors: []Anchor{
		{1, "Extremely alert"},
		{3, "Alert"},
		{5, "Neither alert nor sleepy"},
		{7, "Sleepy, but no effort to stay awake"},
		{9, "Very sleepy, fighting sleep"},
	},
}

var SP = Scale{
	Code:        "SP",
	Name:        "Samn-Perelli Fatigue Scale",
	Description: "Used to rate general fatigue level during operational tasks.",
	Min:         1,
	Max:         7,
	Default:     3,
	Anchors: []Anchor{
		{1, "Fully alert"},
		{3, "Somewhat tired"},
		{5, "Very tired"},
		{7, "Completely exhausted"},
	},
}

// Contains reports whether v lies within the closed range of the scale
func (s Scale) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

// Clamp pins v into the scale range, the same way the slider widget does
func (s Scale) Clamp(v int) int {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Values lists every selectable point on the scale
func (s Scale) Values() []int {
	values := make([]int, 0, s.Max-s.Min+1)
	for v := s.Min; v <= s.Max; v++ {
		values = append(values, v)
	}
	return values
}

// LabelFor returns the anchor text for v, or "" when v is not anchored
func (s Scale) LabelFor(v int) string {
	for _, a := range s.Anchors {
		if a.Value == v {
			return a.Label
		}
	}
	return ""
}

// PVT lapse threshold in milliseconds. Reactions at or above it count as lapses.
const LapseThresholdMs = 500.0

type FlightPhase string

const (
	PreFlight  FlightPhase = "Pre-Flight"
	PostFlight FlightPhase = "Post-Flight"
)

var FlightPhases = []FlightPhase{PreFlight, PostFlight}

// Valid reports whether p is one of the known assessment times
func (p FlightPhase) Valid() bool {
	return p == PreFlight || p == PostFlight
}

// Role label sets used by the different deployments of the form
var (
	CrewFlightTypes     = []string{"Instructor", "First Officer", "Pilot"}
	TrainingFlightTypes = []string{"Ab Initio", "First Officer", "Operational Pilot"}
)
