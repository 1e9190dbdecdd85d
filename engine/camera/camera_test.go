package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-5

func assertVec3(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], tolerance, msgAndArgs...)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, mgl32.Vec3{}, c.Position)
	assert.Equal(t, float32(0), c.Yaw)
	assert.Equal(t, float32(0), c.Pitch)
	assert.Equal(t, DefaultSpeed, c.Speed)
	assert.Equal(t, DefaultSensitivity, c.Sensitivity)
	assert.Equal(t, DefaultPitchLimit, c.PitchLimit)
}

func TestNewClampsInitialPitch(t *testing.T) {
	c := New(WithYawPitch(0.3, 3))
	assert.Equal(t, DefaultPitchLimit, c.Pitch)
	assert.Equal(t, float32(0.3), c.Yaw)
}

func TestBuilderIgnoresInvalidTunables(t *testing.T) {
	c := New(WithSpeed(-1), WithSensitivity(0), WithPitchLimit(2))
	assert.Equal(t, DefaultSpeed, c.Speed)
	assert.Equal(t, DefaultSensitivity, c.Sensitivity)
	assert.Equal(t, DefaultPitchLimit, c.PitchLimit)

	c = New(WithSpeed(10), WithSensitivity(0.01), WithPitchLimit(1.2), WithPosition(1, 2, 3))
	assert.Equal(t, float32(10), c.Speed)
	assert.Equal(t, float32(0.01), c.Sensitivity)
	assert.Equal(t, float32(1.2), c.PitchLimit)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, c.Position)
}

func TestBasisAtRest(t *testing.T) {
	forward, right, up := New().Basis()
	assertVec3(t, mgl32.Vec3{0, 0, -1}, forward)
	assertVec3(t, mgl32.Vec3{1, 0, 0}, right)
	assertVec3(t, mgl32.Vec3{0, 1, 0}, up)
}

func TestBasisQuarterTurn(t *testing.T) {
	c := New(WithYawPitch(math32.Pi/2, 0))
	forward, right, _ := c.Basis()
	assertVec3(t, mgl32.Vec3{1, 0, 0}, forward)
	assertVec3(t, mgl32.Vec3{0, 0, 1}, right)
}

func TestBasisOrthonormalAcrossGrid(t *testing.T) {
	for yaw := float32(-6.0); yaw <= 6.0; yaw += 0.37 {
		for pitch := -DefaultPitchLimit; pitch <= DefaultPitchLimit; pitch += 0.13 {
			c := New(WithYawPitch(yaw, pitch))
			f, r, u := c.Basis()

			assert.InDelta(t, 1, f.Len(), tolerance, "forward length yaw=%v pitch=%v", yaw, pitch)
			assert.InDelta(t, 1, r.Len(), tolerance, "right length yaw=%v pitch=%v", yaw, pitch)
			assert.InDelta(t, 1, u.Len(), tolerance, "up length yaw=%v pitch=%v", yaw, pitch)
			assert.InDelta(t, 0, f.Dot(r), tolerance, "forward.right yaw=%v pitch=%v", yaw, pitch)
			assert.InDelta(t, 0, f.Dot(u), tolerance, "forward.up yaw=%v pitch=%v", yaw, pitch)
			assert.InDelta(t, 0, r.Dot(u), tolerance, "right.up yaw=%v pitch=%v", yaw, pitch)
			assert.InDelta(t, 0, r[1], tolerance, "right stays horizontal")
		}
	}
}

func TestBasisIsDeterministic(t *testing.T) {
	c := New(WithYawPitch(1.234, -0.5))
	f1, r1, u1 := c.Basis()
	f2, r2, u2 := c.Basis()
	assert.Equal(t, f1, f2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, u1, u2)
}

func TestUpdatePitchClamp(t *testing.T) {
	c := New()
	for range 50 {
		c.Update(0.016, MovementInput{}, 0, -1000)
		assert.LessOrEqual(t, c.Pitch, c.PitchLimit)
	}
	assert.Equal(t, c.PitchLimit, c.Pitch)

	for range 50 {
		c.Update(0.016, MovementInput{}, 0, 1000)
		assert.GreaterOrEqual(t, c.Pitch, -c.PitchLimit)
	}
	assert.Equal(t, -c.PitchLimit, c.Pitch)
}

func TestUpdateYawIsUnbounded(t *testing.T) {
	c := New()
	c.Update(0.016, MovementInput{}, 10000, 0)
	assert.InDelta(t, 20.0, c.Yaw, tolerance)
	assert.Equal(t, float32(0), c.Pitch)
}

func TestUpdateMouseDirection(t *testing.T) {
	c := New()
	c.Update(0, MovementInput{}, 100, 100)
	assert.InDelta(t, 0.2, c.Yaw, tolerance)
	assert.InDelta(t, -0.2, c.Pitch, tolerance, "moving the mouse down looks down")
}

func TestUpdateNoInputKeepsPosition(t *testing.T) {
	c := New(WithPosition(1, 2, 3), WithYawPitch(0.7, 0.2))
	c.Update(0.1, MovementInput{}, 0, 0)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, c.Position)
}

func TestUpdateOpposingKeysCancel(t *testing.T) {
	c := New(WithPosition(1, 2, 3))
	c.Update(0.1, MovementInput{Forward: true, Back: true, Left: true, Right: true, Up: true, Down: true}, 0, 0)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, c.Position)
}

func TestUpdateForwardLeftIsNormalized(t *testing.T) {
	c := New(WithYawPitch(0.4, 0.3))
	forward, right, _ := c.Basis()
	dt := float32(0.5)

	c.Update(dt, MovementInput{Forward: true, Left: true}, 0, 0)

	want := forward.Sub(right).Normalize().Mul(c.Speed * dt)
	assertVec3(t, want, c.Position)
	assert.InDelta(t, c.Speed*dt, c.Position.Len(), tolerance, "diagonal movement is not faster")
}

func TestUpdateVerticalUsesWorldAxis(t *testing.T) {
	c := New(WithYawPitch(0.9, -1.2))
	c.Update(0.25, MovementInput{Up: true}, 0, 0)
	assertVec3(t, mgl32.Vec3{0, 1, 0}, c.Position)

	c.Update(0.5, MovementInput{Down: true}, 0, 0)
	assertVec3(t, mgl32.Vec3{0, -1, 0}, c.Position)
}

func TestUpdateForwardFollowsPitch(t *testing.T) {
	c := New(WithYawPitch(0, 0.5))
	forward, _, _ := c.Basis()
	c.Update(1, MovementInput{Forward: true}, 0, 0)
	assertVec3(t, forward.Mul(DefaultSpeed), c.Position)
	assert.Greater(t, c.Position[1], float32(0))
}

func TestGPUParams(t *testing.T) {
	c := New(WithPosition(0, 1, 5), WithYawPitch(0.2, 0.1))
	p := c.GPUParams()
	f, r, u := c.Basis()
	assert.Equal(t, c.Position, p.Position)
	assert.Equal(t, f, p.Forward)
	assert.Equal(t, r, p.Right)
	assert.Equal(t, u, p.Up)
}
