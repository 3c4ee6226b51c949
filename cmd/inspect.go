package cmd

import (
	"bytes"
	"fmt"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/scene/compiler"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Compile the built-in demo scene and print a summary of the compiled
// structures.
func InspectScene(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := demoScene()
	if err != nil {
		return err
	}

	compiled, err := compiler.Compile(sc)
	if err != nil {
		return err
	}

	var stats inspectStats
	visited := make(map[*scene.CompiledAssembly]bool)
	collectStats(compiled.Root, visited, &stats)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Assemblies", fmt.Sprintf("%d", stats.assemblies)})
	table.Append([]string{"Instances", fmt.Sprintf("%d", stats.instances)})
	table.Append([]string{"BVH nodes", fmt.Sprintf("%d", stats.bvhNodes)})
	table.Append([]string{"Triangles", fmt.Sprintf("%d", stats.triangles)})
	table.Append([]string{"Deferred meshes", fmt.Sprintf("%d", stats.deferred)})
	table.Append([]string{"Light tree nodes", fmt.Sprintf("%d", stats.lightTreeNodes)})
	table.Append([]string{"Distant lights", fmt.Sprintf("%d", len(compiled.DistantLights))})
	table.Append([]string{"Root light energy", fmt.Sprintf("%.3f", compiled.Root.LightEnergy())})
	table.Render()

	logger.Noticef("compiled scene summary\n%s", buf.String())
	return nil
}

type inspectStats struct {
	assemblies     int
	instances      int
	bvhNodes       int
	triangles      int
	deferred       int
	lightTreeNodes int
}

func collectStats(ca *scene.CompiledAssembly, visited map[*scene.CompiledAssembly]bool, stats *inspectStats) {
	if visited[ca] {
		return
	}
	visited[ca] = true

	stats.assemblies++
	stats.instances += len(ca.Instances)
	stats.bvhNodes += len(ca.Nodes)
	stats.lightTreeNodes += len(ca.LightTree)

	seenMeshes := make(map[*scene.CompiledMesh]bool)
	for i := range ca.Instances {
		inst := &ca.Instances[i]
		switch {
		case inst.Mesh != nil:
			if seenMeshes[inst.Mesh] {
				continue
			}
			seenMeshes[inst.Mesh] = true
			if inst.Mesh.Deferred() {
				stats.deferred++
				continue
			}
			stats.bvhNodes += len(inst.Mesh.Nodes)
			stats.triangles += len(inst.Mesh.Tris)
		case inst.Assembly != nil:
			collectStats(inst.Assembly, visited, stats)
		}
	}
}
