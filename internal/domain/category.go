package domain

type Category string

const (
	CategoryNoise              Category = "noise"
	CategoryRoadIncident       Category = "road_incident"
	CategoryDisturbance        Category = "disturbance"
	CategoryPropertyDamage     Category = "property_damage"
	CategoryFlyTipping         Category = "fly_tipping"
	CategoryVandalism          Category = "vandalism"
	CategoryTravellersInArea   Category = "travellers_in_area"
	CategoryFire               Category = "fire"
	CategoryOther              Category = "other"
	CategorySuspiciousActivity Category = "suspicious_activity"
)

// Categories is the closed set of report categories in their fixed UI
// order. The order is deliberate: suspicious_activity goes last so the
// form never leads with the most accusatory option. Keep it that way.
var Categories = []Category{
	CategoryNoise,
	CategoryRoadIncident,
	CategoryDisturbance,
	CategoryPropertyDamage,
	CategoryFlyTipping,
	CategoryVandalism,
	CategoryTravellersInArea,
	CategoryFire,
	CategoryOther,
	CategorySuspiciousActivity,
}

var categoryLabels = map[Category]string{
	CategoryNoise:              "Noise",
	CategoryRoadIncident:       "Road incident",
	CategoryDisturbance:        "Disturbance",
	CategoryPropertyDamage:     "Property damage",
	CategoryFlyTipping:         "Fly-tipping",
	CategoryVandalism:          "Vandalism",
	CategoryTravellersInArea:   "Travellers in area",
	CategoryFire:               "Fire",
	CategoryOther:              "Other",
	CategorySuspiciousActivity: "Suspicious activity",
}

// Neutral one-liners used when a report is submitted without free text.
var categoryAutoDescriptions = map[Category]string{
	CategoryNoise:              "Noise reported in this area",
	CategoryRoadIncident:       "Road incident reported in this area",
	CategoryDisturbance:        "Disturbance reported in this area",
	CategoryPropertyDamage:     "Property damage reported in this area",
	CategoryFlyTipping:         "Fly-tipping reported in this area",
	CategoryVandalism:          "Vandalism reported in this area",
	CategoryTravellersInArea:   "Travellers reported in this area",
	CategoryFire:               "Fire reported in this area",
	CategoryOther:              "Incident reported in this area",
	CategorySuspiciousActivity: "Suspicious activity reported in this area",
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

func (c Category) Label() string {
	return categoryLabels[c]
}

func (c Category) AutoDescription() string {
	return categoryAutoDescriptions[c]
}
