package wavesim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoles(t *testing.T) {
	tests := []struct {
		step int
		want RoleSet
	}{
		{0, RoleSet{Old: 0, Current: 1, Target: 2}},
		{1, RoleSet{Old: 1, Current: 2, Target: 0}},
		{2, RoleSet{Old: 2, Current: 0, Target: 1}},
		{3, RoleSet{Old: 0, Current: 1, Target: 2}},
		{-1, RoleSet{Old: 2, Current: 0, Target: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Roles(tt.step), "step %d", tt.step)
	}
}

func TestRolesArePermutations(t *testing.T) {
	for step := 0; step < 3*RingSize; step++ {
		r := Roles(step)
		assert.ElementsMatch(t, []int{0, 1, 2}, []int{r.Old, r.Current, r.Target}, "step %d", step)
		// The target of one step is the current state of the next.
		assert.Equal(t, r.Target, Roles(step+1).Current)
		assert.Equal(t, r.Current, Roles(step+1).Old)
	}
}

type fakeTexture struct{ id int }

func (fakeTexture) Size() (int, int) { return 1, 1 }

func TestStateRingRotation(t *testing.T) {
	var r stateRing
	assert.Nil(t, r.rendered())

	var slots [RingSize]slot
	for i := range slots {
		slots[i] = slot{tex: fakeTexture{i}}
	}
	r.reset(slots)
	r.rotate()
	r.rotate()
	r.reset(slots)
	assert.Equal(t, 0, r.step)
	assert.Equal(t, fakeTexture{1}, r.rendered())

	for n := 0; n < 7; n++ {
		old, cur := r.sources()
		assert.Equal(t, fakeTexture{n % 3}, old.tex)
		assert.Equal(t, fakeTexture{(n + 1) % 3}, cur.tex)
		r.rotate()
		assert.Equal(t, fakeTexture{(n + 2) % 3}, r.rendered(), "rendered is the last target")
	}
}
