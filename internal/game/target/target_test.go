package target_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/firingrange/internal/game/target"
	"github.com/cory-johannsen/firingrange/internal/game/world"
)

type countingScorer struct {
	spawned   int
	destroyed int
	points    int
}

func (s *countingScorer) TargetSpawned()                   { s.spawned++ }
func (s *countingScorer) ReportTargetDestroyed(points int) { s.destroyed++; s.points += points }

func dummyDef() *target.Def {
	return &target.Def{
		ID:         "dummy",
		Name:       "Practice Dummy",
		Health:     5,
		PointValue: 10,
		Shape:      target.ShapeSphere,
		Radius:     1,
		Placements: []world.Vec3{{Z: 10}, {X: 4, Z: 10}},
	}
}

func TestApplyDamage_DestroysOnceAtZero(t *testing.T) {
	s := &countingScorer{}
	tg := target.New(dummyDef(), world.Vec3{Z: 10}, s, nil)

	tg.ApplyDamage(2)
	tg.ApplyDamage(2)
	assert.False(t, tg.Destroyed())
	assert.Equal(t, 0, s.destroyed)

	tg.ApplyDamage(2)
	assert.True(t, tg.Destroyed())
	assert.Equal(t, 1, s.destroyed)
	assert.Equal(t, 10, s.points)
	assert.InDelta(t, -1.0, tg.Health(), 1e-12)
	assert.False(t, tg.Body().Enabled())

	tg.ApplyDamage(2)
	tg.HitByProjectile()
	assert.Equal(t, 1, s.destroyed, "destruction is reported exactly once")
}

func TestApplyDamage_ExactlyZeroDestroys(t *testing.T) {
	s := &countingScorer{}
	tg := target.New(dummyDef(), world.Zero, s, nil)
	tg.ApplyDamage(5)
	assert.True(t, tg.Destroyed())
}

func TestHitByProjectile_DestroysOutright(t *testing.T) {
	s := &countingScorer{}
	tg := target.New(dummyDef(), world.Zero, s, nil)
	tg.HitByProjectile()
	assert.True(t, tg.Destroyed())
	assert.Equal(t, 0.0, tg.Health())
	assert.Equal(t, 1, s.destroyed)
}

func TestDestroy_LogsAtInfo(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tg := target.New(dummyDef(), world.Zero, &countingScorer{}, zap.New(core))
	tg.ApplyDamage(100)
	entries := logs.FilterMessage("target destroyed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "dummy", entries[0].ContextMap()["target"])
}

func TestDestroyedTargetLeavesRaycasts(t *testing.T) {
	scene := world.NewScene()
	field := target.NewField(scene, &countingScorer{}, nil)
	tg, err := field.Spawn(dummyDef(), world.Vec3{Z: 10})
	require.NoError(t, err)

	ray := world.Ray{Direction: world.Forward}
	hit, ok := scene.Raycast(ray, 100, world.AllLayers, world.IgnoreTriggers)
	require.True(t, ok)
	assert.Same(t, tg, hit.Body.Owner)

	tg.HitByProjectile()
	_, ok = scene.Raycast(ray, 100, world.AllLayers, world.IgnoreTriggers)
	assert.False(t, ok)
}

func TestField_SpawnAll(t *testing.T) {
	s := &countingScorer{}
	scene := world.NewScene()
	field := target.NewField(scene, s, nil)

	targets, err := field.SpawnAll([]*target.Def{dummyDef()})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, 2, s.spawned)
	assert.Equal(t, 2, field.Len())
	assert.Equal(t, 2, scene.Len())
	assert.NotEqual(t, targets[0].ID, targets[1].ID)

	got, ok := field.Get(targets[1].ID)
	require.True(t, ok)
	assert.Same(t, targets[1], got)

	targets[0].ApplyDamage(10)
	assert.Equal(t, 1, field.Remaining())
	assert.Equal(t, targets, field.All())
}

func TestField_SpawnRejectsInvalidDef(t *testing.T) {
	field := target.NewField(world.NewScene(), &countingScorer{}, nil)
	def := dummyDef()
	def.Health = 0
	_, err := field.Spawn(def, world.Zero)
	assert.Error(t, err)
	_, err = field.Spawn(nil, world.Zero)
	assert.Error(t, err)
}

func TestDefValidate(t *testing.T) {
	cases := map[string]func(d *target.Def){
		"empty id":     func(d *target.Def) { d.ID = "" },
		"empty name":   func(d *target.Def) { d.Name = "" },
		"zero health":  func(d *target.Def) { d.Health = 0 },
		"negative pts": func(d *target.Def) { d.PointValue = -1 },
		"bad shape":    func(d *target.Def) { d.Shape = "cone" },
		"zero radius":  func(d *target.Def) { d.Radius = 0 },
		"flat box":     func(d *target.Def) { d.Shape = target.ShapeBox; d.HalfExtents = world.Vec3{X: 1, Y: 1} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := dummyDef()
			mutate(d)
			assert.Error(t, d.Validate())
		})
	}
	assert.NoError(t, dummyDef().Validate())
}

func TestLoadDefs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plate.yaml"), []byte(`
id: plate
name: Steel Plate
health: 3
point_value: 25
shape: box
half_extents: {x: 0.5, y: 0.5, z: 0.05}
placements:
  - {x: 0, y: 1.5, z: 30}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dummy.yaml"), []byte(`
id: dummy
name: Dummy
health: 5
point_value: 10
radius: 0.5
placements:
  - {z: 12}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	defs, err := target.LoadDefs(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	byID := map[string]*target.Def{}
	for _, d := range defs {
		byID[d.ID] = d
	}
	assert.Equal(t, target.ShapeBox, byID["plate"].Shape)
	assert.Equal(t, world.Vec3{X: 0, Y: 1.5, Z: 30}, byID["plate"].Placements[0])
	assert.Equal(t, target.ShapeSphere, byID["dummy"].Shape, "shape defaults to sphere")
}

func TestLoadDefs_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nname: Bad\nhealth: -1\nradius: 1\n"), 0644))
	_, err := target.LoadDefs(dir)
	assert.Error(t, err)
}

func TestPropertyDestroyedExactlyOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := &countingScorer{}
		def := dummyDef()
		def.Health = rapid.Float64Range(0.5, 50).Draw(rt, "health")
		tg := target.New(def, world.Zero, s, nil)

		hits := rapid.SliceOfN(rapid.Float64Range(0, 10), 1, 40).Draw(rt, "hits")
		var total float64
		for _, h := range hits {
			tg.ApplyDamage(h)
			total += h
		}
		wantDestroyed := total >= def.Health
		if math.Abs(total-def.Health) > 1e-9 && tg.Destroyed() != wantDestroyed {
			rt.Fatalf("destroyed=%v after %g damage against %g health", tg.Destroyed(), total, def.Health)
		}
		if s.destroyed > 1 {
			rt.Fatalf("destroyed reported %d times", s.destroyed)
		}
		if tg.Destroyed() != (s.destroyed == 1) {
			rt.Fatalf("destroyed=%v but reported %d times", tg.Destroyed(), s.destroyed)
		}
	})
}
