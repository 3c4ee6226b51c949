package tracer

import (
	"github.com/cessen/psychopath/log"
	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/types"
)

// The GeometryProvider interface is implemented by scene content whose
// geometry may be generated on demand. Materialize is fetched at most
// once; a generation failure is fatal for the affected region and is
// propagated to the caller, never silently substituted.
type GeometryProvider interface {
	Deferred() bool
	Materialize() error
}

var _ GeometryProvider = (*scene.CompiledMesh)(nil)

// The scheduler traces ray batches against a compiled scene using
// breadth-first BVH traversal: at every node the batch's active rays
// are partitioned against the node bounds and only the hitting prefix
// descends. Traversal keeps explicit node and ray-count stacks instead
// of recursing, so instancing depth is unbounded.
//
// A scheduler is stateless between calls and safe for concurrent use by
// multiple batches.
type Scheduler struct {
	scene  *scene.CompiledScene
	logger log.Logger
}

// Create a scheduler for a compiled scene.
func NewScheduler(cs *scene.CompiledScene) *Scheduler {
	return &Scheduler{
		scene:  cs,
		logger: log.New("scheduler"),
	}
}

// Trace a batch to its closest hits. On return every ray's hit record
// (indexed by enqueue order) is final and every ray has been restored
// to the space it was enqueued in.
func (s *Scheduler) TraceBatch(b *RayBatch) error {
	return s.trace(b, false)
}

// Trace a batch in occlusion mode: hit records only report whether
// anything lies within each ray's max distance. Rays are deactivated at
// the first confirmed hit.
func (s *Scheduler) OccludeBatch(b *RayBatch) error {
	return s.trace(b, true)
}

type frameKind uint8

const (
	assemblyFrame frameKind = iota
	meshFrame
	instanceFrame
	popFrame
)

// A traversal stack frame. Node frames carry a BVH node and the count
// of rays that hit the parent; the rays themselves always live in the
// batch prefix of that length. Instance frames enter a single instance
// of an assembly leaf; deferring the entry to its own frame keeps ray
// transforms applied one instance at a time when a leaf holds several.
// Pop frames undo an instance transform when its subtree has been fully
// visited.
type frame struct {
	kind frameKind

	asm  *scene.CompiledAssembly
	mesh *scene.CompiledMesh

	// Node frames: the BVH node index. Instance frames: the instance
	// index within asm.
	node     int32
	rayCount int

	// Pop frames: the instance whose transform is undone.
	inst *scene.CompiledInstance
}

func (s *Scheduler) trace(b *RayBatch, occlude bool) error {
	rays := b.rays
	if len(rays) == 0 || len(s.scene.Root.Nodes) == 0 {
		return nil
	}

	// The instance index chain from the root to the subtree currently
	// being visited. Stack nesting keeps it in sync: every instance
	// entry pushes a pop frame above its subtree frames.
	chain := make([]int32, 0, 8)

	stack := make([]frame, 0, 64)
	stack = append(stack, frame{kind: assemblyFrame, asm: s.scene.Root, node: 0, rayCount: len(rays)})

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch f.kind {
		case popFrame:
			for i := range rays[:f.rayCount] {
				r := &rays[i]
				m := f.inst.Xform.InterpolateAt(r.Time)
				r.Origin = m.MulPoint(r.Origin)
				r.Dir = m.MulDir(r.Dir)
				r.InvDir = invDir(r.Dir)
			}
			chain = chain[:len(chain)-1]

		case assemblyFrame:
			node := &f.asm.Nodes[f.node]
			active := partitionRays(rays[:f.rayCount], node.BBox())
			if active == 0 {
				continue
			}

			if !node.IsLeaf() {
				stack = s.pushChildren(stack, f, rays[:active], active)
				continue
			}

			// One frame per leaf instance, pushed in reverse so they
			// are visited in list order.
			first, count := node.Primitives()
			for i := int32(first+count) - 1; i >= int32(first); i-- {
				stack = append(stack, frame{
					kind:     instanceFrame,
					asm:      f.asm,
					node:     f.asm.LeafInstances[i],
					rayCount: active,
				})
			}

		case instanceFrame:
			instIndex := uint32(f.node)
			inst := &f.asm.Instances[instIndex]

			switch {
			case inst.Light != nil:
				// Lights intersect analytically; no subtree to push.
				sub := rays[:f.rayCount]
				for i := range sub {
					r := &sub[i]
					m := inst.Xform.InverseAt(r.Time)
					origin := m.MulPoint(r.Origin)
					dir := m.MulDir(r.Dir)
					t, ok := inst.Light.Intersect(origin, dir, r.Time)
					if !ok || t < rayEpsilon || t > r.MaxDist {
						continue
					}
					s.recordLightHit(b, r, inst.Light, t, chain, instIndex, occlude)
				}

			case inst.Mesh != nil:
				if err := inst.Mesh.Materialize(); err != nil {
					return err
				}
				if len(inst.Mesh.Nodes) == 0 {
					continue
				}
				stack = s.enterInstance(stack, rays[:f.rayCount], inst)
				chain = append(chain, int32(instIndex))
				stack = append(stack, frame{kind: meshFrame, mesh: inst.Mesh, node: 0, rayCount: f.rayCount})

			default:
				if len(inst.Assembly.Nodes) == 0 {
					continue
				}
				stack = s.enterInstance(stack, rays[:f.rayCount], inst)
				chain = append(chain, int32(instIndex))
				stack = append(stack, frame{kind: assemblyFrame, asm: inst.Assembly, node: 0, rayCount: f.rayCount})
			}

		case meshFrame:
			node := &f.mesh.Nodes[f.node]
			active := partitionRays(rays[:f.rayCount], node.BBox())
			if active == 0 {
				continue
			}

			if !node.IsLeaf() {
				stack = s.pushChildren(stack, f, rays[:active], active)
				continue
			}

			first, count := node.Primitives()
			sub := rays[:active]
			for i := range sub {
				r := &sub[i]
				for prim := first; prim < first+count; prim++ {
					t, u, v, ok := intersectTriangle(&f.mesh.Tris[prim], r)
					if !ok || t > r.MaxDist {
						continue
					}
					s.recordMeshHit(b, r, f.mesh, prim, t, u, v, chain, occlude)
					if occlude {
						break
					}
				}
			}
		}
	}

	return nil
}

// Transform the active rays into the instance's object space and push
// the pop frame that will undo it.
func (s *Scheduler) enterInstance(stack []frame, sub []Ray, inst *scene.CompiledInstance) []frame {
	for i := range sub {
		r := &sub[i]
		m := inst.Xform.InverseAt(r.Time)
		r.Origin = m.MulPoint(r.Origin)
		// Directions stay unnormalized so hit distances remain valid
		// ray parameters across object spaces.
		r.Dir = m.MulDir(r.Dir)
		r.InvDir = invDir(r.Dir)
	}
	return append(stack, frame{kind: popFrame, inst: inst, rayCount: len(sub)})
}

// Push both children of an interior node, nearer sibling on top so it
// is visited first. The entry distance of the partitioned prefix's
// first ray picks the order for the whole batch.
func (s *Scheduler) pushChildren(stack []frame, f frame, sub []Ray, active int) []frame {
	var left, right int32
	var lBox, rBox types.AABB
	if f.kind == assemblyFrame {
		left, right = f.asm.Nodes[f.node].ChildNodes()
		lBox = f.asm.Nodes[left].BBox()
		rBox = f.asm.Nodes[right].BBox()
	} else {
		left, right = f.mesh.Nodes[f.node].ChildNodes()
		lBox = f.mesh.Nodes[left].BBox()
		rBox = f.mesh.Nodes[right].BBox()
	}

	rep := &sub[0]
	lDist, lOk := lBox.Intersect(rep.Origin, rep.InvDir, rep.MaxDist)
	rDist, rOk := rBox.Intersect(rep.Origin, rep.InvDir, rep.MaxDist)

	near, far := left, right
	if rOk && (!lOk || rDist < lDist) {
		near, far = right, left
	}

	stack = append(stack, frame{kind: f.kind, asm: f.asm, mesh: f.mesh, node: far, rayCount: active})
	stack = append(stack, frame{kind: f.kind, asm: f.asm, mesh: f.mesh, node: near, rayCount: active})
	return stack
}

// Partition rays so that the ones whose interval [0, MaxDist] overlaps
// the box form the slice prefix. Returns the prefix length. Rays only
// ever move within the prefix they arrived in, so every enclosing
// frame's ray count stays valid.
func partitionRays(rays []Ray, bbox types.AABB) int {
	active := 0
	for i := range rays {
		if _, ok := bbox.Intersect(rays[i].Origin, rays[i].InvDir, rays[i].MaxDist); ok {
			rays[active], rays[i] = rays[i], rays[active]
			active++
		}
	}
	return active
}

func (s *Scheduler) recordLightHit(b *RayBatch, r *Ray, light *scene.Light, t float32, chain []int32, instIndex uint32, occlude bool) {
	hit := &b.hits[r.hitIndex]
	if occlude {
		hit.Ok = true
		r.MaxDist = -1
		return
	}

	hit.Ok = true
	hit.T = t
	hit.Mesh = nil
	hit.Light = light
	hit.Chain = append(append(hit.Chain[:0], chain...), int32(instIndex))
	r.MaxDist = t
}

func (s *Scheduler) recordMeshHit(b *RayBatch, r *Ray, mesh *scene.CompiledMesh, prim uint32, t, u, v float32, chain []int32, occlude bool) {
	hit := &b.hits[r.hitIndex]
	if occlude {
		hit.Ok = true
		r.MaxDist = -1
		return
	}

	hit.Ok = true
	hit.T = t
	hit.Mesh = mesh
	hit.Prim = prim
	hit.U = u
	hit.V = v
	hit.Light = nil
	hit.Chain = append(hit.Chain[:0], chain...)
	r.MaxDist = t
}

// Möller-Trumbore ray/triangle intersection in the triangle's space.
// The ray direction does not need to be normalized.
func intersectTriangle(tri *scene.Triangle, r *Ray) (t, u, v float32, ok bool) {
	e1 := tri.V[1].Sub(tri.V[0])
	e2 := tri.V[2].Sub(tri.V[0])

	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if types.Absf32(det) < 1e-12 {
		return 0, 0, 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(tri.V[0])
	u = s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(e1)
	v = r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(q) * inv
	if t < rayEpsilon {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
