package scene

import (
	"sync"

	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

// Bvh nodes are comprised of two Vec3 extents and two multipurpose int32
// parameters whose value depends on the node type:
//
// - For non-leaf nodes they are both >0 and point to the L/R child nodes.
// - For assembly BVH leafs the left value is <=0 and its negation is the
//   first index into the assembly's LeafInstances list; the right value
//   holds the instance count.
// - For mesh BVH leafs the left value is <=0 and its negation is the
//   first triangle index; the right value holds the triangle count.
//
// For motion blurred content Min/Max are the union of the content bounds
// over all build time samples.
type BvhNode struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox types.AABB) {
	n.Min = bbox.Min
	n.Max = bbox.Max
}

// Get bounding box.
func (n *BvhNode) BBox() types.AABB {
	return types.AABB{Min: n.Min, Max: n.Max}
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Get left and right child node indices.
func (n *BvhNode) ChildNodes() (left, right int32) {
	return n.LData, n.RData
}

// Whether this node is a leaf.
func (n *BvhNode) IsLeaf() bool {
	return n.LData <= 0
}

// Set leaf payload range: the first primitive index and count for mesh
// leafs, or the first LeafInstances index and count for assembly leafs.
func (n *BvhNode) SetPrimitives(firstPrimIndex, count uint32) {
	n.LData = -int32(firstPrimIndex)
	n.RData = int32(count)
}

// Get the leaf payload range.
func (n *BvhNode) Primitives() (firstPrimIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// Add offset to indices of child nodes.
func (n *BvhNode) OffsetChildNodes(offset int32) {
	// Ignore leafs
	if n.LData <= 0 {
		return
	}

	n.LData += offset
	n.RData += offset
}

// A compiled triangle mesh: reordered triangle data plus its own BVH.
// Meshes are compiled once per unique scene mesh and shared by all
// instances. Procedural meshes stay empty until the first traversal step
// that needs them; Materialize generates the content exactly once.
type CompiledMesh struct {
	Name     string
	Material *Material

	Tris  []Triangle
	Nodes []BvhNode

	once     sync.Once
	buildFn  func() ([]Triangle, []BvhNode, error)
	buildErr error
}

// Whether the mesh content still needs to be generated.
func (cm *CompiledMesh) Deferred() bool {
	return cm.buildFn != nil && cm.Nodes == nil
}

// Install the deferred build function for a procedural mesh. Called by
// the scene compiler.
func (cm *CompiledMesh) SetDeferredBuild(fn func() ([]Triangle, []BvhNode, error)) {
	cm.buildFn = fn
}

// Generate and index deferred content. Safe for concurrent use; the
// build runs at most once and every caller observes its result. A
// generation failure is sticky and fatal for the affected region.
func (cm *CompiledMesh) Materialize() error {
	if cm.buildFn == nil {
		return nil
	}
	cm.once.Do(func() {
		cm.Tris, cm.Nodes, cm.buildErr = cm.buildFn()
	})
	return cm.buildErr
}

// A compiled instance. Exactly one of Mesh, Light or Assembly is set
// depending on Type.
type CompiledInstance struct {
	Type     InstanceType
	Mesh     *CompiledMesh
	Light    *Light
	Assembly *CompiledAssembly

	// Object-to-parent transform.
	Xform MotionTransform

	// Parent-space bounds, unioned over the scene's time samples.
	Bounds types.AABB
}

// A node of the hierarchical light importance tree. Nodes are stored in
// a flat arena; interior nodes hold their children by index and an
// aggregate energy equal to the sum of their descendants' energies.
// The tree is built once per assembly and immutable during rendering.
type LightTreeNode struct {
	Bounds types.AABB
	Energy float32

	// Child node indices; -1 for leafs.
	Left, Right int32

	// Leaf payload: the light instance index within the assembly.
	Instance int32

	// The ordinal range [Start, End) of light leaves under this node,
	// used to recover selection probabilities for arbitrary lights.
	Start, End int32
}

// Whether the node is a leaf.
func (n *LightTreeNode) IsLeaf() bool {
	return n.Left < 0
}

// A compiled assembly: flattened instances, a BVH over their bounds and
// a light tree over the light-carrying instances. Compiled assemblies
// are shared by reference wherever the source assembly was shared; all
// fields are read-only after compilation.
type CompiledAssembly struct {
	Instances []CompiledInstance
	Nodes     []BvhNode

	// Instance indices referenced by assembly BVH leaf ranges. Leaves
	// can hold several instances when their bounds cannot be split
	// apart, so a leaf stores a [first, first+count) range into this
	// list rather than a single instance.
	LeafInstances []int32

	LightTree []LightTreeNode

	// Light instance indices in light tree leaf ordinal order.
	LightOrdinals []int32
}

// Total approximate light energy inside the assembly, including nested
// assemblies.
func (ca *CompiledAssembly) LightEnergy() float32 {
	if len(ca.LightTree) == 0 {
		return 0
	}
	return ca.LightTree[0].Energy
}

// The output of scene compilation: an immutable, shareable structure
// that traversal reads without synchronization.
type CompiledScene struct {
	Root       *CompiledAssembly
	Camera     *Camera
	Background spectral.XYZ

	// Distant lights live outside the spatial index.
	DistantLights []*Light

	TimeSamples []float32
}

// Compose the object-to-world transform along a chain of instance
// indices starting at the scene root, interpolated at the given time.
func (cs *CompiledScene) ChainTransform(chain []int32, time float32) types.Mat4 {
	m := types.Ident4()
	asm := cs.Root
	for _, index := range chain {
		inst := &asm.Instances[index]
		m = m.Mul4(inst.Xform.InterpolateAt(time))
		if inst.Type == AssemblyInstance {
			asm = inst.Assembly
		}
	}
	return m
}
