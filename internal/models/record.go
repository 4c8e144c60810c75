package models

// Record is one flattened entry for the analytics data layer.
// Key names are a contract with the tag-manager container and must not be renamed.
type Record map[string]any

// Item describes one product line inside a record's item list.
type Item map[string]any

// Event returns the event name the record was built for.
func (r Record) Event() string {
	s, _ := r["event"].(string)
	return s
}

// EventID returns the delivery id copied from the envelope.
func (r Record) EventID() string {
	s, _ := r["event_id"].(string)
	return s
}

// SetOptional stores *v under key, leaving key unset when v is nil.
func SetOptional[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}
