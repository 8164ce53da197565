package engine

import "math/rand"

const (
	InertiaCap     = 30
	InertiaSeedMin = 10
)

// InertiaTracker is a bounded counter in [0, InertiaCap]. It grows while the
// agent has room ahead, shrinks when boxed in, and is spent whenever the
// agent keeps its previous heading.
type InertiaTracker struct {
	value int
}

// NewInertiaTracker seeds the counter uniformly from [InertiaSeedMin, InertiaCap].
func NewInertiaTracker(rng *rand.Rand) *InertiaTracker {
	return &InertiaTracker{value: InertiaSeedMin + rng.Intn(InertiaCap-InertiaSeedMin+1)}
}

// Update adjusts the counter from the best open-space depth seen this tick.
func (t *InertiaTracker) Update(openSpaceMax int) {
	if openSpaceMax < 2 {
		if t.value > 0 {
			t.value--
		}
		return
	}
	if t.value < InertiaCap {
		t.value++
	}
}

// NoteHeld records whether the chosen move repeated the previous heading.
func (t *InertiaTracker) NoteHeld(held bool) {
	if held && t.value > 0 {
		t.value--
	}
}

func (t *InertiaTracker) Value() int { return t.value }
