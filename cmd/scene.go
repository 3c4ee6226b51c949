package cmd

import (
	"math"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

// Build the built-in demo scene: a box room lit by a sphere light, a
// procedurally tessellated sphere and a nested assembly of boxes
// instanced twice, one of them motion blurred.
func demoScene() (*scene.Scene, error) {
	sc := scene.NewScene("demo")

	white := scene.NewLambert(spectral.XYZ{X: 0.7, Y: 0.7, Z: 0.7})
	red := scene.NewLambert(spectral.XYZ{X: 0.5, Y: 0.25, Z: 0.2})
	green := scene.NewLambert(spectral.XYZ{X: 0.2, Y: 0.5, Z: 0.25})

	root := sc.Root

	// Room: floor, ceiling, back wall, two colored side walls.
	room := []scene.Triangle{}
	room = append(room, quad(
		types.XYZ(-2, 0, 2), types.XYZ(2, 0, 2),
		types.XYZ(2, 0, -2), types.XYZ(-2, 0, -2))...)
	room = append(room, quad(
		types.XYZ(-2, 4, -2), types.XYZ(2, 4, -2),
		types.XYZ(2, 4, 2), types.XYZ(-2, 4, 2))...)
	room = append(room, quad(
		types.XYZ(-2, 0, -2), types.XYZ(2, 0, -2),
		types.XYZ(2, 4, -2), types.XYZ(-2, 4, -2))...)
	roomIndex := root.AddMesh(scene.NewMesh("room", room, white))
	root.InstanceObject(roomIndex, scene.StaticTransform(types.Ident4()))

	leftIndex := root.AddMesh(scene.NewMesh("left wall", quad(
		types.XYZ(-2, 0, 2), types.XYZ(-2, 0, -2),
		types.XYZ(-2, 4, -2), types.XYZ(-2, 4, 2)), red))
	root.InstanceObject(leftIndex, scene.StaticTransform(types.Ident4()))

	rightIndex := root.AddMesh(scene.NewMesh("right wall", quad(
		types.XYZ(2, 0, -2), types.XYZ(2, 0, 2),
		types.XYZ(2, 4, 2), types.XYZ(2, 4, -2)), green))
	root.InstanceObject(rightIndex, scene.StaticTransform(types.Ident4()))

	// Sphere light near the ceiling.
	lightIndex := root.AddLight(scene.NewSphereLight(0.3, spectral.XYZ{X: 40, Y: 40, Z: 40}))
	root.InstanceObject(lightIndex, scene.StaticTransform(types.Translate4(0, 3.4, 0)))

	// A procedurally tessellated sphere; its triangles are generated the
	// first time a ray batch reaches its bounds.
	sphereIndex := root.AddMesh(scene.NewProceduralMesh(
		"sphere",
		sphereSource{segments: 32, rings: 16},
		types.NewAABB(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1)),
		white,
	))
	root.InstanceObject(sphereIndex, scene.NewMotionTransform([]types.Mat4{
		types.Translate4(-0.9, 0.6, -0.6).Mul4(types.Scale4(0.6, 0.6, 0.6)),
		types.Translate4(-0.7, 0.6, -0.6).Mul4(types.Scale4(0.6, 0.6, 0.6)),
	}, scene.InterpLinear))

	// A nested assembly of two small boxes, instanced twice.
	boxes := scene.NewAssembly()
	boxIndex := boxes.AddMesh(scene.NewMesh("box", box(0.3), white))
	boxes.InstanceObject(boxIndex, scene.StaticTransform(types.Translate4(0, 0.3, 0)))
	boxes.InstanceObject(boxIndex, scene.StaticTransform(types.Translate4(0, 0.95, 0).Mul4(types.Scale4(0.6, 0.6, 0.6))))

	boxesIndex := root.AddAssembly(boxes)
	root.InstanceAssembly(boxesIndex, scene.StaticTransform(types.Translate4(0.9, 0, 0.2)))
	root.InstanceAssembly(boxesIndex, scene.StaticTransform(types.Translate4(-0.2, 0, 1.0)))

	camera := scene.NewCamera(float32(50 * math.Pi / 180))
	camera.LookAt(types.XYZ(0, 2, 7), types.XYZ(0, 1.4, 0), types.XYZ(0, 1, 0))
	sc.SetCamera(camera)

	sc.Background = spectral.XYZ{X: 0.02, Y: 0.02, Z: 0.03}
	return sc, sc.Validate()
}

// Two triangles covering a quad; vertices given counter clockwise.
func quad(v0, v1, v2, v3 types.Vec3) []scene.Triangle {
	return []scene.Triangle{
		{V: [3]types.Vec3{v0, v1, v2}},
		{V: [3]types.Vec3{v0, v2, v3}},
	}
}

// An axis aligned box of the given half size centered at the origin.
func box(half float32) []scene.Triangle {
	min := types.XYZ(-half, -half, -half)
	max := types.XYZ(half, half, half)
	var tris []scene.Triangle
	tris = append(tris, quad(
		types.XYZ(min[0], min[1], max[2]), types.XYZ(max[0], min[1], max[2]),
		types.XYZ(max[0], max[1], max[2]), types.XYZ(min[0], max[1], max[2]))...)
	tris = append(tris, quad(
		types.XYZ(max[0], min[1], min[2]), types.XYZ(min[0], min[1], min[2]),
		types.XYZ(min[0], max[1], min[2]), types.XYZ(max[0], max[1], min[2]))...)
	tris = append(tris, quad(
		types.XYZ(min[0], min[1], min[2]), types.XYZ(min[0], min[1], max[2]),
		types.XYZ(min[0], max[1], max[2]), types.XYZ(min[0], max[1], min[2]))...)
	tris = append(tris, quad(
		types.XYZ(max[0], min[1], max[2]), types.XYZ(max[0], min[1], min[2]),
		types.XYZ(max[0], max[1], min[2]), types.XYZ(max[0], max[1], max[2]))...)
	tris = append(tris, quad(
		types.XYZ(min[0], max[1], max[2]), types.XYZ(max[0], max[1], max[2]),
		types.XYZ(max[0], max[1], min[2]), types.XYZ(min[0], max[1], min[2]))...)
	tris = append(tris, quad(
		types.XYZ(min[0], min[1], min[2]), types.XYZ(max[0], min[1], min[2]),
		types.XYZ(max[0], min[1], max[2]), types.XYZ(min[0], min[1], max[2]))...)
	return tris
}

// A lat/long tessellated unit sphere source.
type sphereSource struct {
	segments int
	rings    int
}

func (s sphereSource) Generate(bounds types.AABB) ([]scene.Triangle, error) {
	radius := bounds.Size().MaxComponent() * 0.5

	point := func(ring, segment int) types.Vec3 {
		theta := math.Pi * float64(ring) / float64(s.rings)
		phi := 2 * math.Pi * float64(segment) / float64(s.segments)
		return types.XYZ(
			radius*float32(math.Sin(theta)*math.Cos(phi)),
			radius*float32(math.Cos(theta)),
			radius*float32(math.Sin(theta)*math.Sin(phi)),
		)
	}

	var tris []scene.Triangle
	for ring := 0; ring < s.rings; ring++ {
		for segment := 0; segment < s.segments; segment++ {
			p00 := point(ring, segment)
			p01 := point(ring, segment+1)
			p10 := point(ring+1, segment)
			p11 := point(ring+1, segment+1)
			if ring > 0 {
				tris = append(tris, scene.Triangle{V: [3]types.Vec3{p00, p11, p01}})
			}
			if ring < s.rings-1 {
				tris = append(tris, scene.Triangle{V: [3]types.Vec3{p00, p10, p11}})
			}
		}
	}
	return tris, nil
}
