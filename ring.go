package wavesim

// RingSize is the number of field generations kept in flight.
const RingSize = 3

// RoleSet names the ring slots playing each role for one step.
type RoleSet struct {
	Old     int // t - dt
	Current int // t
	Target  int // t + dt, written by the next step
}

// Roles resolves the role assignment for a role index. It is pure slot
// arithmetic; step is reduced modulo RingSize first.
func Roles(step int) RoleSet {
	step = ((step % RingSize) + RingSize) % RingSize
	return RoleSet{
		Old:     step,
		Current: (step + 1) % RingSize,
		Target:  (step + 2) % RingSize,
	}
}

// slot is one texture with the framebuffer that renders into it.
type slot struct {
	tex Texture
	fb  Framebuffer
}

// stateRing holds the three generations and the role index. Only the
// owning engine mutates it.
type stateRing struct {
	slots  [RingSize]slot
	step   int
	seeded bool
}

func (r *stateRing) reset(slots [RingSize]slot) {
	r.slots = slots
	r.step = 0
	r.seeded = true
}

func (r *stateRing) roles() RoleSet { return Roles(r.step) }

// rotate advances roles so that the generation just written becomes current.
func (r *stateRing) rotate() { r.step = (r.step + 1) % RingSize }

func (r *stateRing) rendered() Texture {
	return r.slots[r.roles().Current].tex
}

func (r *stateRing) sources() (old, cur slot) {
	roles := r.roles()
	return r.slots[roles.Old], r.slots[roles.Current]
}
