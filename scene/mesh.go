package scene

import (
	"fmt"

	"github.com/cessen/psychopath/types"
)

// A triangle primitive. Vertices are in object space.
type Triangle struct {
	V [3]types.Vec3
}

// Get the triangle bounding box.
func (t Triangle) BBox() types.AABB {
	return types.EmptyAABB().Include(t.V[0]).Include(t.V[1]).Include(t.V[2])
}

// Get the triangle centroid.
func (t Triangle) Center() types.Vec3 {
	return t.V[0].Add(t.V[1]).Add(t.V[2]).Mul(1.0 / 3.0)
}

// Get the geometric normal. Vertices are specified counter-clockwise.
func (t Triangle) Normal() types.Vec3 {
	e1 := t.V[1].Sub(t.V[0])
	e2 := t.V[2].Sub(t.V[0])
	return e1.Cross(e2).Normalize()
}

// A ProceduralSource generates concrete triangle data for a mesh on
// demand. Generation may be expensive or blocking; it is invoked at most
// once per mesh, the first time a traversal step needs the content.
type ProceduralSource interface {
	// Generate primitives covering the given bounding region.
	Generate(bounds types.AABB) ([]Triangle, error)
}

// A triangle mesh. Meshes are shared by reference between instances and
// are immutable once rendering starts.
type Mesh struct {
	Name     string
	Material *Material

	// Concrete triangle data. Nil for procedural meshes until generated.
	Triangles []Triangle

	// Procedural content source, if any. Procedural meshes must declare
	// conservative bounds up front so they can be placed in the spatial
	// index before generation.
	Procedural ProceduralSource
	ProcBounds types.AABB
}

// Create a mesh from concrete triangle data.
func NewMesh(name string, tris []Triangle, material *Material) *Mesh {
	return &Mesh{
		Name:      name,
		Triangles: tris,
		Material:  material,
	}
}

// Create a procedural mesh with conservative bounds.
func NewProceduralMesh(name string, src ProceduralSource, bounds types.AABB, material *Material) *Mesh {
	return &Mesh{
		Name:       name,
		Material:   material,
		Procedural: src,
		ProcBounds: bounds,
	}
}

// Whether the mesh content must be generated on demand.
func (m *Mesh) IsProcedural() bool {
	return m.Procedural != nil && m.Triangles == nil
}

// Get the object-space mesh bounding box.
func (m *Mesh) BBox() types.AABB {
	if m.IsProcedural() {
		return m.ProcBounds
	}
	bbox := types.EmptyAABB()
	for _, tri := range m.Triangles {
		bbox = bbox.Union(tri.BBox())
	}
	return bbox
}

// Check mesh validity before rendering starts.
func (m *Mesh) Validate() error {
	if m.Material == nil {
		return ErrMissingMaterial
	}
	if !m.IsProcedural() && len(m.Triangles) == 0 {
		return fmt.Errorf("scene: mesh %q has no primitives", m.Name)
	}
	if !m.BBox().IsValid() {
		return fmt.Errorf("scene: mesh %q: %v", m.Name, ErrDegenerateBounds)
	}
	return nil
}
