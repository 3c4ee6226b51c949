package scene

import (
	"math"

	"github.com/cessen/psychopath/types"
)

// The result of descending a light tree: a concrete light source, the
// composed object-to-world transform for it at the query time, and the
// exact probability with which this light was selected.
type LightSelection struct {
	Light   *Light
	ToWorld types.Mat4
	Pdf     float32

	// Instance index path from the root assembly to the light. Used to
	// recover the selection pdf of this light for MIS.
	Chain []int32
}

// Select a light for the shading point p with surface normal nrm, using
// the uniform random number n. The descent chooses children with
// probability proportional to their aggregate energy attenuated by a
// distance/orientation importance heuristic, re-scaling n at every
// branch so the returned pdf is exact for the traversal policy. Light
// selection cost is O(log n) in the number of lights.
//
// Returns ok=false when the assembly holds no lights: a "no
// contribution" outcome, not an error.
func (ca *CompiledAssembly) SelectLight(p, nrm types.Vec3, n, time float32, toWorld types.Mat4) (LightSelection, bool) {
	sel, ok := ca.selectLight(p, nrm, n, time, toWorld, nil)
	return sel, ok
}

func (ca *CompiledAssembly) selectLight(p, nrm types.Vec3, n, time float32, toWorld types.Mat4, chain []int32) (LightSelection, bool) {
	if len(ca.LightTree) == 0 {
		return LightSelection{}, false
	}

	var nodeIndex int32 = 0
	var totProb float32 = 1.0

	for !ca.LightTree[nodeIndex].IsLeaf() {
		node := &ca.LightTree[nodeIndex]
		p1 := nodeImportance(&ca.LightTree[node.Left], p, nrm)
		p2 := nodeImportance(&ca.LightTree[node.Right], p, nrm)
		total := p1 + p2
		if total <= 0 {
			p1, p2 = 0.5, 0.5
		} else {
			p1, p2 = p1/total, p2/total
		}

		// Re-scale ("whittle") n so it remains uniform for the chosen
		// subtree.
		if n <= p1 {
			totProb *= p1
			nodeIndex = node.Left
			if p1 > 0 {
				n /= p1
			}
		} else {
			totProb *= p2
			nodeIndex = node.Right
			n = (n - p1) / p2
		}
	}

	instIndex := ca.LightTree[nodeIndex].Instance
	inst := &ca.Instances[instIndex]
	chain = append(chain, instIndex)

	instXform := inst.Xform.InterpolateAt(time)

	if inst.Type == AssemblyInstance {
		// Descend into the nested assembly's light tree with the point
		// transformed into its space; selection pdfs compose by product.
		inv := instXform.Inv()
		sub, ok := inst.Assembly.selectLight(
			inv.MulPoint(p),
			inv.MulDir(nrm),
			n, time,
			toWorld.Mul4(instXform),
			chain,
		)
		if !ok {
			return LightSelection{}, false
		}
		sub.Pdf *= totProb
		return sub, true
	}

	return LightSelection{
		Light:   inst.Light,
		ToWorld: toWorld.Mul4(instXform),
		Pdf:     totProb,
		Chain:   chain,
	}, true
}

// The selection pdf that SelectLight would report for the light
// identified by the given instance chain, from the same shading point.
// Used to weight BSDF samples that hit a light.
func (ca *CompiledAssembly) SelectionPdf(chain []int32, p, nrm types.Vec3, time float32) float32 {
	if len(chain) == 0 || len(ca.LightTree) == 0 {
		return 0
	}

	ordinal := int32(-1)
	for ord, instIndex := range ca.LightOrdinals {
		if instIndex == chain[0] {
			ordinal = int32(ord)
			break
		}
	}
	if ordinal < 0 {
		return 0
	}

	var nodeIndex int32 = 0
	var totProb float32 = 1.0
	for !ca.LightTree[nodeIndex].IsLeaf() {
		node := &ca.LightTree[nodeIndex]
		left := &ca.LightTree[node.Left]
		right := &ca.LightTree[node.Right]

		p1 := nodeImportance(left, p, nrm)
		p2 := nodeImportance(right, p, nrm)
		total := p1 + p2
		if total <= 0 {
			p1, p2 = 0.5, 0.5
		} else {
			p1, p2 = p1/total, p2/total
		}

		if ordinal < left.End && ordinal >= left.Start {
			totProb *= p1
			nodeIndex = node.Left
		} else {
			totProb *= p2
			nodeIndex = node.Right
		}
	}

	inst := &ca.Instances[ca.LightTree[nodeIndex].Instance]
	if inst.Type == AssemblyInstance {
		if len(chain) < 2 {
			return 0
		}
		inv := inst.Xform.InverseAt(time)
		return totProb * inst.Assembly.SelectionPdf(chain[1:], inv.MulPoint(p), inv.MulDir(nrm), time)
	}
	return totProb
}

// Importance of a light tree node as seen from a shading point: the
// node's aggregate energy scaled by the solid angle its bounds subtend
// and a widened cosine estimate of the surface orientation.
func nodeImportance(node *LightTreeNode, p, nrm types.Vec3) float32 {
	d := node.Bounds.Centroid().Sub(p)
	dist2 := d.Len2()
	r := node.Bounds.Size().Len() * 0.5
	r2 := r * r

	if dist2 <= r2 {
		// The node bounds surround the point; every direction matters.
		return node.Energy
	}

	sinThetaMax2 := r2 / dist2
	cosThetaMax := float32(math.Sqrt(float64(1.0 - sinThetaMax2)))
	solidAngle := float32(2.0 * math.Pi * (1.0 - float64(cosThetaMax)))

	cosEstimate := float32(1.0)
	if nrm.Len2() > 0 {
		sinThetaMax := float32(math.Sqrt(float64(sinThetaMax2)))
		// Widen the cosine by the subtended angle so glancing clusters
		// that still peek over the horizon keep non-zero importance.
		cosEstimate = nrm.Normalize().Dot(d.Normalize()) + sinThetaMax
		if cosEstimate <= 0 {
			return 0
		}
		if cosEstimate > 1 {
			cosEstimate = 1
		}
	}

	return node.Energy * solidAngle * cosEstimate
}
