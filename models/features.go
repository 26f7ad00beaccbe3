package models

import (
	"fmt"
	"strconv"
)

// FeatureField is one column of a model's input schema.
type FeatureField struct {
	Name        string `json:"name"`
	Categorical bool   `json:"categorical"`
}

// ItemFeatureSchema is the exact field list and order the item-route model
// was trained with. Reordering or renaming a field corrupts predictions, so
// both the feature engine and the scoring facade derive from this slice.
var ItemFeatureSchema = []FeatureField{
	{Name: ColFacility, Categorical: true},
	{Name: ColEventType},
	{Name: ColNextFacility, Categorical: true},
	{Name: "hour"},
	{Name: "day_of_week", Categorical: true},
	{Name: "service_indicator", Categorical: true},
	{Name: "origin_destination", Categorical: true},
	{Name: "month"},
	{Name: "is_weekend"},
	{Name: "first_last_week_day"},
	{Name: "country_service", Categorical: true},
	{Name: "days_since_last_holiday"},
	{Name: "days_until_next_holiday"},
	{Name: "etab_load_1h"},
	{Name: "route_load_1h"},
	{Name: "time_since_first_scan"},
	{Name: "time_since_last_scan"},
}

// ReceptacleFeatureSchema is the receptacle model's input contract. It shares
// the calendar, holiday, load and recency core with the item schema but swaps
// the service-class fields for the flow direction and the per-receptacle
// item count.
var ReceptacleFeatureSchema = []FeatureField{
	{Name: ColFacility, Categorical: true},
	{Name: ColEventType},
	{Name: ColNextFacility, Categorical: true},
	{Name: "hour"},
	{Name: "day_of_week", Categorical: true},
	{Name: "origin_destination", Categorical: true},
	{Name: "month"},
	{Name: "is_weekend"},
	{Name: "first_last_week_day"},
	{Name: "flow_direction", Categorical: true},
	{Name: "days_since_last_holiday"},
	{Name: "days_until_next_holiday"},
	{Name: "etab_load_1h"},
	{Name: "route_load_1h"},
	{Name: "items_per_receptacle"},
	{Name: "time_since_first_scan"},
	{Name: "time_since_last_scan"},
}

// FeatureVector is a single-row record whose values are ordered exactly as
// its schema dictates. Numeric fields live in nums, categorical fields in
// cats; the inactive slot of each pair is zero-valued.
type FeatureVector struct {
	fields []FeatureField
	nums   []float64
	cats   []string
}

// NewFeatureVector builds a vector for schema from a field-name lookup.
// Every field of the schema must be present in nums or cats according to its
// kind; a missing field is a construction bug and returns an error.
func NewFeatureVector(schema []FeatureField, nums map[string]float64, cats map[string]string) (FeatureVector, error) {
	v := FeatureVector{
		fields: schema,
		nums:   make([]float64, len(schema)),
		cats:   make([]string, len(schema)),
	}
	for i, f := range schema {
		if f.Categorical {
			c, ok := cats[f.Name]
			if !ok {
				return FeatureVector{}, fmt.Errorf("feature vector missing categorical field %q", f.Name)
			}
			v.cats[i] = c
			continue
		}
		n, ok := nums[f.Name]
		if !ok {
			return FeatureVector{}, fmt.Errorf("feature vector missing numeric field %q", f.Name)
		}
		v.nums[i] = n
	}
	return v, nil
}

// Fields returns the ordered schema the vector was built against.
func (v FeatureVector) Fields() []FeatureField { return v.fields }

// Len returns the number of fields.
func (v FeatureVector) Len() int { return len(v.fields) }

// Num returns the numeric value at position i.
func (v FeatureVector) Num(i int) float64 { return v.nums[i] }

// Cat returns the categorical value at position i.
func (v FeatureVector) Cat(i int) string { return v.cats[i] }

// NumByName looks a numeric field up by name; ok is false when the field
// does not exist or is categorical.
func (v FeatureVector) NumByName(name string) (float64, bool) {
	for i, f := range v.fields {
		if f.Name == name && !f.Categorical {
			return v.nums[i], true
		}
	}
	return 0, false
}

// Strings renders every value as text in schema order, numeric fields with
// the shortest representation that round-trips.
func (v FeatureVector) Strings() []string {
	out := make([]string, len(v.fields))
	for i, f := range v.fields {
		if f.Categorical {
			out[i] = v.cats[i]
			continue
		}
		out[i] = strconv.FormatFloat(v.nums[i], 'g', -1, 64)
	}
	return out
}

// SameSchema reports whether other lists the same fields, same kinds, in the
// same order.
func SameSchema(a, b []FeatureField) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
