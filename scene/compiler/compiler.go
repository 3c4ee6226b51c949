package compiler

import (
	"fmt"
	"time"

	"github.com/cessen/psychopath/log"
	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/types"
)

const (
	minPrimitivesPerLeaf = 10
)

type sceneCompiler struct {
	source   *scene.Scene
	compiled *scene.CompiledScene
	logger   log.Logger

	// Compilation caches. Shared meshes and assemblies compile once and
	// every instance points at the shared compiled form.
	meshCache     map[*scene.Mesh]*scene.CompiledMesh
	assemblyCache map[*scene.Assembly]*scene.CompiledAssembly

	// Distant lights collected from the entire hierarchy.
	distantLights map[*scene.Light]bool
}

// Compile a scene description into the flattened, immutable form that
// ray traversal operates on: per-mesh BVH trees, per-assembly instance
// BVH trees and light importance trees. The input scene is not modified
// and the compiled output can be shared by any number of workers.
func Compile(src *scene.Scene) (*scene.CompiledScene, error) {
	compiler := &sceneCompiler{
		source:        src,
		compiled:      &scene.CompiledScene{},
		logger:        log.New("scene compiler"),
		meshCache:     make(map[*scene.Mesh]*scene.CompiledMesh),
		assemblyCache: make(map[*scene.Assembly]*scene.CompiledAssembly),
		distantLights: make(map[*scene.Light]bool),
	}

	start := time.Now()
	compiler.logger.Noticef(`compiling scene "%s"`, src.Name)

	if err := src.Validate(); err != nil {
		return nil, err
	}

	root, err := compiler.compileAssembly(src.Root)
	if err != nil {
		return nil, err
	}

	compiler.compiled.Root = root
	compiler.compiled.Camera = src.Camera
	compiler.compiled.Background = src.Background
	compiler.compiled.TimeSamples = src.TimeSamples
	for light := range compiler.distantLights {
		compiler.compiled.DistantLights = append(compiler.compiled.DistantLights, light)
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.compiled, nil
}

// Compile an assembly and everything below it. Assemblies shared by
// multiple instances compile exactly once.
func (sc *sceneCompiler) compileAssembly(src *scene.Assembly) (*scene.CompiledAssembly, error) {
	if ca, exists := sc.assemblyCache[src]; exists {
		return ca, nil
	}

	ca := &scene.CompiledAssembly{}
	sc.assemblyCache[src] = ca

	for srcIndex, inst := range src.Instances {
		var compiledInst scene.CompiledInstance
		switch inst.Type {
		case scene.ObjectInstance:
			obj := src.Objects[inst.DataIndex]
			if obj.Light != nil && obj.Light.IsDistant() {
				// Distant lights live outside the spatial hierarchy.
				sc.distantLights[obj.Light] = true
				continue
			}

			compiledInst.Type = scene.ObjectInstance
			if obj.Mesh != nil {
				cm, err := sc.compileMesh(obj.Mesh)
				if err != nil {
					return nil, err
				}
				compiledInst.Mesh = cm
			} else {
				compiledInst.Light = obj.Light
			}
		case scene.AssemblyInstance:
			sub, err := sc.compileAssembly(src.Assemblies[inst.DataIndex])
			if err != nil {
				return nil, err
			}
			compiledInst.Type = scene.AssemblyInstance
			compiledInst.Assembly = sub
		}

		compiledInst.Xform = inst.Transform
		compiledInst.Bounds = src.InstanceBounds(srcIndex, sc.source.TimeSamples)
		ca.Instances = append(ca.Instances, compiledInst)
	}

	// Partition instances into BVH leaves. The builder keeps instances
	// together when no split improves the surface area score (coincident
	// centroids, degenerate extents), so leaves reference a range of
	// LeafInstances rather than a single instance.
	sc.logger.Infof("building assembly BVH tree (%d instances)", len(ca.Instances))
	volList := make([]BoundedVolume, len(ca.Instances))
	for index := range ca.Instances {
		volList[index] = instanceVolume{assembly: ca, index: index}
	}
	ca.Nodes = BuildBVH(volList, 1, func(node *scene.BvhNode, workList []BoundedVolume) {
		first := uint32(len(ca.LeafInstances))
		for _, vol := range workList {
			ca.LeafInstances = append(ca.LeafInstances, int32(vol.(instanceVolume).index))
		}
		node.SetPrimitives(first, uint32(len(workList)))
	})

	buildLightTree(ca)

	return ca, nil
}

// Compile a mesh into its flattened form. Static meshes are partitioned
// immediately; procedural meshes get a deferred build hook and stay
// empty until traversal first reaches their bounds.
func (sc *sceneCompiler) compileMesh(src *scene.Mesh) (*scene.CompiledMesh, error) {
	if cm, exists := sc.meshCache[src]; exists {
		return cm, nil
	}

	cm := &scene.CompiledMesh{
		Name:     src.Name,
		Material: src.Material,
	}
	sc.meshCache[src] = cm

	if src.IsProcedural() {
		logger := sc.logger
		cm.SetDeferredBuild(func() ([]scene.Triangle, []scene.BvhNode, error) {
			logger.Infof(`generating deferred content for "%s"`, src.Name)
			tris, err := src.Procedural.Generate(src.ProcBounds)
			if err != nil {
				return nil, nil, fmt.Errorf(`generating mesh "%s": %v`, src.Name, err)
			}
			orderedTris, nodes := partitionTriangles(tris)
			return orderedTris, nodes, nil
		})
		return cm, nil
	}

	sc.logger.Infof(`building BVH tree for "%s" (%d primitives)`, src.Name, len(src.Triangles))
	cm.Tris, cm.Nodes = partitionTriangles(src.Triangles)
	return cm, nil
}

// Partition a triangle list into a BVH, reordering the triangles so
// that each leaf references a contiguous range.
func partitionTriangles(tris []scene.Triangle) ([]scene.Triangle, []scene.BvhNode) {
	volList := make([]BoundedVolume, len(tris))
	for index, tri := range tris {
		volList[index] = tri
	}

	ordered := make([]scene.Triangle, 0, len(tris))
	nodes := BuildBVH(volList, minPrimitivesPerLeaf, func(node *scene.BvhNode, workList []BoundedVolume) {
		node.SetPrimitives(uint32(len(ordered)), uint32(len(workList)))
		for _, workItem := range workList {
			ordered = append(ordered, workItem.(scene.Triangle))
		}
	})

	return ordered, nodes
}

// Adapter exposing a compiled instance's parent-space bounds to the BVH
// builder.
type instanceVolume struct {
	assembly *scene.CompiledAssembly
	index    int
}

func (iv instanceVolume) BBox() types.AABB {
	return iv.assembly.Instances[iv.index].Bounds
}

func (iv instanceVolume) Center() types.Vec3 {
	return iv.assembly.Instances[iv.index].Bounds.Centroid()
}
