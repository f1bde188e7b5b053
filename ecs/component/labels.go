package component

import "slices"

// Labels are the string tags of an entity.
type Labels struct {
	Values []string
}

var LabelsComponent = NewComponent[Labels]()

func (l *Labels) Has(label string) bool {
	if l == nil || label == "" {
		return false
	}
	return slices.Contains(l.Values, label)
}

// Add appends label unless it is empty or already present.
func (l *Labels) Add(label string) {
	if label == "" || l.Has(label) {
		return
	}
	l.Values = append(l.Values, label)
}
