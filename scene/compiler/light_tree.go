package compiler

import (
	"sort"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/types"
)

// A single light tree build item: an instance that either carries a
// light directly or is a nested assembly with non-zero light energy.
type lightTreeItem struct {
	instance int32
	bounds   types.AABB
	energy   float32
}

// Construct the hierarchical light importance tree for a compiled
// assembly. The tree is a flat preorder arena of binary nodes; interior
// node energy is the sum of its children and leaf ordinals are assigned
// left to right so that each node covers the contiguous ordinal range
// [Start, End).
//
// Distant lights never enter the tree; the caller routes them through
// the scene-level distant light list instead.
func buildLightTree(ca *scene.CompiledAssembly) {
	var items []lightTreeItem
	for index, inst := range ca.Instances {
		switch inst.Type {
		case scene.ObjectInstance:
			if inst.Light == nil || inst.Light.IsDistant() {
				continue
			}
			items = append(items, lightTreeItem{
				instance: int32(index),
				bounds:   inst.Bounds,
				energy:   inst.Light.Power(),
			})
		case scene.AssemblyInstance:
			energy := inst.Assembly.LightEnergy()
			if energy <= 0 {
				continue
			}
			items = append(items, lightTreeItem{
				instance: int32(index),
				bounds:   inst.Bounds,
				energy:   energy,
			})
		}
	}

	if len(items) == 0 {
		return
	}

	b := &lightTreeBuilder{
		nodes:    make([]scene.LightTreeNode, 0, 2*len(items)-1),
		ordinals: make([]int32, 0, len(items)),
	}
	b.partition(items)

	ca.LightTree = b.nodes
	ca.LightOrdinals = b.ordinals
}

type lightTreeBuilder struct {
	nodes    []scene.LightTreeNode
	ordinals []int32
}

// Partition items into a subtree and return its root node index.
func (b *lightTreeBuilder) partition(items []lightTreeItem) int32 {
	nodeIndex := int32(len(b.nodes))
	b.nodes = append(b.nodes, scene.LightTreeNode{Left: -1, Right: -1, Instance: -1})

	if len(items) == 1 {
		ordinal := int32(len(b.ordinals))
		b.ordinals = append(b.ordinals, items[0].instance)
		b.nodes[nodeIndex] = scene.LightTreeNode{
			Bounds:   items[0].bounds,
			Energy:   items[0].energy,
			Left:     -1,
			Right:    -1,
			Instance: items[0].instance,
			Start:    ordinal,
			End:      ordinal + 1,
		}
		return nodeIndex
	}

	// Median split over item centroids along the widest axis.
	centroidBounds := types.EmptyAABB()
	for _, item := range items {
		centroidBounds = centroidBounds.Include(item.bounds.Centroid())
	}
	axis := centroidBounds.LongestAxis()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].bounds.Centroid()[axis] < items[j].bounds.Centroid()[axis]
	})
	mid := len(items) / 2

	start := int32(len(b.ordinals))
	left := b.partition(items[:mid])
	right := b.partition(items[mid:])
	end := int32(len(b.ordinals))

	b.nodes[nodeIndex] = scene.LightTreeNode{
		Bounds:   b.nodes[left].Bounds.Union(b.nodes[right].Bounds),
		Energy:   b.nodes[left].Energy + b.nodes[right].Energy,
		Left:     left,
		Right:    right,
		Instance: -1,
		Start:    start,
		End:      end,
	}
	return nodeIndex
}
