package integrator

import (
	"math"
	"math/rand"

	"github.com/cessen/psychopath/log"
	"github.com/cessen/psychopath/sampling"
	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/tracer"
	"github.com/cessen/psychopath/types"
)

const (
	// Offset applied along the surface normal when spawning secondary
	// rays to avoid self-intersection.
	surfaceOffset float32 = 1e-4

	// Paths whose throughput drops below this are terminated.
	throughputCutoff float32 = 1e-4
)

// Integrator tuning knobs.
type Options struct {
	// Hard cap on the number of path segments.
	NumBounces int

	// Bounce count after which Russian roulette may terminate paths.
	MinBouncesForRR int

	// Ray batch capacity used for wavefront tracing.
	BatchSize int
}

// A camera sample: a film point in [-0.5, 0.5], a scene time and a lens
// aperture sample.
type CameraSample struct {
	X, Y         float32
	Time         float32
	LensU, LensV float32
}

// A spectral Monte Carlo path integrator. Each path carries a hero
// wavelength sample of four wavelengths whose throughput is tracked
// independently; paths are traced in wavefront batches through the ray
// scheduler and direct lighting is sampled from the scene's light tree
// with multiple importance sampling.
//
// An integrator holds no mutable state across calls; workers share one.
type Integrator struct {
	scene     *scene.CompiledScene
	scheduler *tracer.Scheduler
	opts      Options
	logger    log.Logger

	distantEnergy float32
}

// Create an integrator for a compiled scene.
func New(cs *scene.CompiledScene, sch *tracer.Scheduler, opts Options) *Integrator {
	if opts.NumBounces <= 0 {
		opts.NumBounces = 5
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}

	var distantEnergy float32
	for _, l := range cs.DistantLights {
		distantEnergy += l.Power()
	}

	return &Integrator{
		scene:         cs,
		scheduler:     sch,
		opts:          opts,
		logger:        log.New("integrator"),
		distantEnergy: distantEnergy,
	}
}

// Per-path integration state. The pending bounce ray's MIS context
// (solid angle pdf, origin and surface normal of the previous bounce)
// rides along so light hits can be weighted against next event
// estimation.
type pathState struct {
	lambdas    spectral.Sample
	throughput [spectral.NumSamples]float32
	energy     [spectral.NumSamples]float32
	bounces    int

	pdf     float32
	prevNrm types.Vec3
}

// A ray waiting to be traced for a path.
type pendingRay struct {
	path   int
	origin types.Vec3
	dir    types.Vec3
	time   float32
}

// A shadow ray's potential contribution, applied if the ray is not
// occluded.
type shadowItem struct {
	path    int
	contrib [spectral.NumSamples]float32
}

// Trace a full light path for every camera sample and return the
// resulting XYZ radiance estimates, one per sample.
func (in *Integrator) TraceSamples(samples []CameraSample, rng *rand.Rand) ([]spectral.XYZ, error) {
	paths := make([]pathState, len(samples))
	pending := make([]pendingRay, 0, len(samples))

	for i, s := range samples {
		origin, dir := in.scene.Camera.GenerateRay(s.X, s.Y, s.Time, s.LensU, s.LensV)
		paths[i].lambdas = spectral.NewSample(rng.Float32())
		for k := range paths[i].throughput {
			paths[i].throughput[k] = 1
		}
		pending = append(pending, pendingRay{path: i, origin: origin, dir: dir, time: s.Time})
	}

	batch := tracer.NewRayBatch(in.opts.BatchSize)
	shadowBatch := tracer.NewRayBatch(in.opts.BatchSize)
	var shadowItems []shadowItem

	for len(pending) > 0 {
		chunkLen := len(pending)
		if chunkLen > in.opts.BatchSize {
			chunkLen = in.opts.BatchSize
		}
		chunk := pending[:chunkLen]
		pending = pending[chunkLen:]

		batch.Reset()
		traced := chunk[:0]
		for _, pr := range chunk {
			st := &paths[pr.path]
			err := batch.Add(pr.origin, pr.dir, pr.time, float32(math.MaxFloat32), st.lambdas, uint32(pr.path))
			if err != nil {
				// Malformed rays are dropped; the path simply ends.
				in.logger.Warningf("dropping ray for path %d: %v", pr.path, err)
				continue
			}
			traced = append(traced, pr)
		}

		if err := in.scheduler.TraceBatch(batch); err != nil {
			return nil, err
		}

		shadowItems = shadowItems[:0]
		shadowBatch.Reset()

		for i, pr := range traced {
			hit := batch.Hit(i)
			st := &paths[pr.path]

			if !hit.Ok {
				in.shadeEscape(st)
				continue
			}
			if hit.Light != nil {
				in.shadeLightHit(st, &pr, hit)
				continue
			}

			bounce, ok := in.shadeSurface(st, &pr, hit, rng, shadowBatch, &shadowItems)
			if ok {
				pending = append(pending, bounce)
			}
		}

		if err := in.resolveShadows(paths, shadowBatch, shadowItems); err != nil {
			return nil, err
		}
	}

	out := make([]spectral.XYZ, len(samples))
	for i := range paths {
		out[i] = paths[i].lambdas.ToXYZ(paths[i].energy)
	}
	return out, nil
}

// A ray that left the scene picks up the background radiance.
func (in *Integrator) shadeEscape(st *pathState) {
	for k := 0; k < spectral.NumSamples; k++ {
		st.energy[k] += st.throughput[k] * spectral.SpectrumAt(in.scene.Background, st.lambdas.Lambda[k])
	}
}

// A path ray struck a light surface directly. Camera rays see the full
// emission; bounce rays weight it against the probability that next
// event estimation would have sampled the same light.
func (in *Integrator) shadeLightHit(st *pathState, pr *pendingRay, hit *tracer.Hit) {
	emission := hit.Light.Outgoing(st.lambdas, pr.time)

	var weight float32 = 1
	if st.bounces > 0 {
		toWorld := in.scene.ChainTransform(hit.Chain, pr.time)
		dir := pr.dir.Normalize()
		samplePdf := hit.Light.SamplePdf(toWorld, pr.origin, dir, pr.time)
		selPdf := in.scene.Root.SelectionPdf(hit.Chain, pr.origin, st.prevNrm, pr.time)
		lightPdf := selPdf * samplePdf * in.treeProb()
		weight = sampling.PowerHeuristic(st.pdf, lightPdf)
	}

	for k := 0; k < spectral.NumSamples; k++ {
		st.energy[k] += st.throughput[k] * emission[k] * weight
	}
}

// Shade a surface hit: accumulate emission, run next event estimation
// and sample the BSDF for the next path segment. Returns the bounce ray
// if the path survives.
func (in *Integrator) shadeSurface(st *pathState, pr *pendingRay, hit *tracer.Hit, rng *rand.Rand, shadowBatch *tracer.RayBatch, items *[]shadowItem) (pendingRay, bool) {
	mat := hit.Mesh.Material

	toWorld := in.scene.ChainTransform(hit.Chain, pr.time)
	pos := pr.origin.Add(pr.dir.Mul(hit.T))
	nrm := toWorld.Inv().Transpose().MulDir(hit.Mesh.Tris[hit.Prim].Normal()).Normalize()
	if nrm.Dot(pr.dir) > 0 {
		nrm = nrm.Neg()
	}

	if mat.IsEmissive() {
		// Emissive meshes are not part of the light tree, so their
		// emission is picked up only when a path finds them.
		for k := 0; k < spectral.NumSamples; k++ {
			st.energy[k] += st.throughput[k] * spectral.SpectrumAt(mat.Radiance, st.lambdas.Lambda[k])
		}
		return pendingRay{}, false
	}

	in.sampleDirectLight(st, pr, pos, nrm, mat, rng, shadowBatch, items)

	// BSDF bounce.
	if st.bounces+1 >= in.opts.NumBounces {
		return pendingRay{}, false
	}

	tx, ty, tz := types.CoordinateSystem(nrm)
	local := sampling.CosineSampleHemisphere(rng.Float32(), rng.Float32())
	dir := tx.Mul(local[0]).Add(ty.Mul(local[1])).Add(tz.Mul(local[2]))
	pdf := sampling.CosineSampleHemispherePdf(local[2])
	if pdf <= 0 {
		return pendingRay{}, false
	}

	// For a Lambert surface the cosine weighted sample cancels down to
	// the plain reflectance.
	var maxThroughput float32
	for k := 0; k < spectral.NumSamples; k++ {
		st.throughput[k] *= spectral.ReflectanceAt(mat.Reflectance, st.lambdas.Lambda[k])
		if st.throughput[k] > maxThroughput {
			maxThroughput = st.throughput[k]
		}
	}
	if maxThroughput < throughputCutoff {
		return pendingRay{}, false
	}

	// Russian roulette, unbiased: survivors pay for the terminated.
	if st.bounces >= in.opts.MinBouncesForRR {
		q := maxThroughput
		if q > 1 {
			q = 1
		}
		if rng.Float32() >= q {
			return pendingRay{}, false
		}
		for k := 0; k < spectral.NumSamples; k++ {
			st.throughput[k] /= q
		}
	}

	st.bounces++
	st.pdf = pdf
	st.prevNrm = nrm

	return pendingRay{
		path:   pr.path,
		origin: pos.Add(nrm.Mul(surfaceOffset)),
		dir:    dir,
		time:   pr.time,
	}, true
}

// Next event estimation: pick a light (splitting between the light tree
// and the distant light set by energy), sample it and queue a shadow
// ray carrying the prospective contribution.
func (in *Integrator) sampleDirectLight(st *pathState, pr *pendingRay, pos, nrm types.Vec3, mat *scene.Material, rng *rand.Rand, shadowBatch *tracer.RayBatch, items *[]shadowItem) {
	treeEnergy := in.scene.Root.LightEnergy()
	total := treeEnergy + in.distantEnergy
	if total <= 0 {
		return
	}
	pDistant := in.distantEnergy / total

	var light *scene.Light
	var toWorld types.Mat4
	var selPdf float32
	if rng.Float32() < pDistant {
		index := rng.Intn(len(in.scene.DistantLights))
		light = in.scene.DistantLights[index]
		toWorld = types.Ident4()
		selPdf = pDistant / float32(len(in.scene.DistantLights))
	} else {
		sel, ok := in.scene.Root.SelectLight(pos, nrm, rng.Float32(), pr.time, types.Ident4())
		if !ok {
			return
		}
		light = sel.Light
		toWorld = sel.ToWorld
		selPdf = sel.Pdf * (1 - pDistant)
	}

	ls := light.Sample(toWorld, pos, rng.Float32(), rng.Float32(), st.lambdas, pr.time)
	if ls.Pdf <= 0 || selPdf <= 0 {
		return
	}

	var dir types.Vec3
	var maxDist float32
	if ls.Distant {
		dir = ls.ShadowVec
		maxDist = float32(math.MaxFloat32)
	} else {
		dir = ls.ShadowVec
		maxDist = 1 - surfaceOffset
	}
	cos := nrm.Dot(dir.Normalize())
	if cos <= 0 {
		return
	}

	lightPdf := selPdf * ls.Pdf
	bsdfPdf := sampling.CosineSampleHemispherePdf(cos)
	weight := sampling.PowerHeuristic(lightPdf, bsdfPdf)

	var item shadowItem
	item.path = pr.path
	for k := 0; k < spectral.NumSamples; k++ {
		brdf := spectral.ReflectanceAt(mat.Reflectance, st.lambdas.Lambda[k]) / math.Pi
		item.contrib[k] = st.throughput[k] * ls.Energy[k] * brdf * cos * weight / lightPdf
	}

	origin := pos.Add(nrm.Mul(surfaceOffset))
	if err := shadowBatch.Add(origin, dir, pr.time, maxDist, st.lambdas, uint32(len(*items))); err != nil {
		// A full shadow batch drops the estimate; the path stays valid.
		return
	}
	*items = append(*items, item)
}

// Trace queued shadow rays and apply the contributions of the
// unoccluded ones.
func (in *Integrator) resolveShadows(paths []pathState, shadowBatch *tracer.RayBatch, items []shadowItem) error {
	if shadowBatch.Len() == 0 {
		return nil
	}
	if err := in.scheduler.OccludeBatch(shadowBatch); err != nil {
		return err
	}
	for i, item := range items {
		if shadowBatch.Hit(i).Ok {
			continue
		}
		st := &paths[item.path]
		for k := 0; k < spectral.NumSamples; k++ {
			st.energy[k] += item.contrib[k]
		}
	}
	return nil
}

// The probability that next event estimation routes through the light
// tree rather than the distant light set.
func (in *Integrator) treeProb() float32 {
	total := in.scene.Root.LightEnergy() + in.distantEnergy
	if total <= 0 {
		return 0
	}
	return in.scene.Root.LightEnergy() / total
}
