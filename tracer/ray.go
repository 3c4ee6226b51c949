package tracer

import (
	"errors"
	"math"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

var (
	// Returned by RayBatch.Add when the batch is at capacity. The caller
	// must flush the batch before enqueueing more rays.
	ErrBatchFull = errors.New("tracer: ray batch is full")

	// Returned when enqueueing a ray whose origin is not finite or whose
	// direction is zero or not finite.
	ErrMalformedRay = errors.New("tracer: malformed ray")
)

// Minimum hit distance; hits closer than this are treated as
// self-intersections and skipped.
const rayEpsilon float32 = 1e-4

// A single path tracing ray. Rays are owned by the scheduler while a
// batch is in flight; the scheduler permutes and transforms them during
// traversal but always restores origin and direction to the space they
// were enqueued in.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3

	// Precomputed per-component direction inverse for slab tests.
	InvDir types.Vec3

	// Scene time in [0, 1] that transforms are interpolated at.
	Time float32

	// Max parameter distance; updated with the closest hit so far.
	MaxDist float32

	// The hero wavelength sample carried by the path.
	Lambdas spectral.Sample

	// Caller back-reference (pixel/path id). Never interpreted by the
	// scheduler.
	PathID uint32

	// Index of this ray's hit record inside its batch.
	hitIndex int32
}

func invDir(dir types.Vec3) types.Vec3 {
	var inv types.Vec3
	for i := 0; i < 3; i++ {
		if dir[i] != 0 {
			inv[i] = 1 / dir[i]
		} else {
			inv[i] = float32(math.Inf(1))
		}
	}
	return inv
}

func finiteVec(v types.Vec3) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func validDir(dir types.Vec3) bool {
	if dir[0] == 0 && dir[1] == 0 && dir[2] == 0 {
		return false
	}
	return finiteVec(dir)
}

// The result of tracing a single ray.
type Hit struct {
	// Whether anything was hit.
	Ok bool

	// Parameter distance along the ray.
	T float32

	// Mesh hits: the mesh, the triangle index within it and the
	// barycentric hit coordinates.
	Mesh *scene.CompiledMesh
	Prim uint32
	U, V float32

	// Light hits (rays that strike a light surface directly).
	Light *scene.Light

	// The instance index chain from the scene root to the hit instance.
	// Used to recover the composed object-to-world transform and, for
	// light hits, the light tree selection probability.
	Chain []int32
}

// An ordered, bounded collection of in-flight rays. A batch and its hit
// records are owned by a single worker; batches are never shared.
type RayBatch struct {
	rays []Ray
	hits []Hit
	cap  int
}

// Create a ray batch with the given capacity.
func NewRayBatch(capacity int) *RayBatch {
	return &RayBatch{
		rays: make([]Ray, 0, capacity),
		hits: make([]Hit, 0, capacity),
		cap:  capacity,
	}
}

// Enqueue a ray. Returns ErrBatchFull at capacity and ErrMalformedRay
// for non-finite origins and zero or non-finite directions; in both
// cases the batch is left unchanged.
func (b *RayBatch) Add(origin, dir types.Vec3, time, maxDist float32, lambdas spectral.Sample, pathID uint32) error {
	if len(b.rays) == b.cap {
		return ErrBatchFull
	}
	if !finiteVec(origin) || !validDir(dir) {
		return ErrMalformedRay
	}

	b.rays = append(b.rays, Ray{
		Origin:   origin,
		Dir:      dir,
		InvDir:   invDir(dir),
		Time:     time,
		MaxDist:  maxDist,
		Lambdas:  lambdas,
		PathID:   pathID,
		hitIndex: int32(len(b.hits)),
	})
	b.hits = append(b.hits, Hit{})
	return nil
}

// Number of enqueued rays.
func (b *RayBatch) Len() int {
	return len(b.rays)
}

// The hit record for the ray enqueued at the given position.
func (b *RayBatch) Hit(index int) *Hit {
	return &b.hits[index]
}

// The ray enqueued at the given position. Traversal permutes rays; use
// Hit indices, not ray positions, to correlate results after a trace.
func (b *RayBatch) Ray(index int) *Ray {
	return &b.rays[index]
}

// Clear the batch for reuse.
func (b *RayBatch) Reset() {
	b.rays = b.rays[:0]
	hits := b.hits[:cap(b.hits)]
	for i := range hits {
		hits[i] = Hit{}
	}
	b.hits = b.hits[:0]
}
