package micromag

import (
	"reflect"

	"gonum.org/v1/gonum/floats"
)

// accumulator sums interaction fields into a single buffer in attachment
// order.
type accumulator struct {
	field        []float64
	interactions []Interaction
}

func (a *accumulator) add(it Interaction) {
	a.interactions = append(a.interactions, it)
}

// contains reports whether it is already attached. Values of uncomparable
// dynamic type are never reported as duplicates.
func (a *accumulator) contains(it Interaction) bool {
	if !reflect.TypeOf(it).Comparable() {
		return false
	}
	for _, existing := range a.interactions {
		if existing == it {
			return true
		}
	}
	return false
}

// compose zeroes the field, runs the pin hook, then adds every term.
func (a *accumulator) compose(pin func()) []float64 {
	for i := range a.field {
		a.field[i] = 0
	}
	if pin != nil {
		pin()
	}
	for _, it := range a.interactions {
		floats.Add(a.field, it.ComputeField())
	}
	return a.field
}
