package compiler

import (
	"testing"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/types"
)

type boxVolume struct {
	bbox types.AABB
}

func (b boxVolume) BBox() types.AABB {
	return b.bbox
}

func (b boxVolume) Center() types.Vec3 {
	return b.bbox.Centroid()
}

func TestBVHLeafCallback(t *testing.T) {
	type primSpec struct {
		min types.Vec3
		max types.Vec3
	}

	primSpecs := []primSpec{
		{types.XYZ(-2, 0, -2), types.XYZ(-1, 1, -1)},
		{types.XYZ(1, 0, -2), types.XYZ(2, 1, -1)},
		{types.XYZ(-2, 0, 1), types.XYZ(-1, 1, 2)},
		{types.XYZ(1, 0, 1), types.XYZ(2, 1, 2)},
	}

	itemList := make([]BoundedVolume, len(primSpecs))
	for idx, ps := range primSpecs {
		itemList[idx] = boxVolume{bbox: types.NewAABB(ps.min, ps.max)}
	}

	var cbCount = 0
	var expItemListCount = 0
	cb := func(leaf *scene.BvhNode, itemList []BoundedVolume) {
		cbCount++
		if len(itemList) != expItemListCount {
			t.Fatalf("expected leaf callback to be called with %d items; got %d", expItemListCount, len(itemList))
		}
	}

	var expCount = 0

	// Partition each item in a single leaf
	cbCount = 0
	expItemListCount = 1
	treeNodes := BuildBVH(itemList, 1, cb)

	expCount = 4
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 7
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}

	// Partition two items in a single leaf
	cbCount = 0
	expItemListCount = 2
	treeNodes = BuildBVH(itemList, 2, cb)

	expCount = 2
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 3
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}
}

func TestBVHNodeContainment(t *testing.T) {
	itemList := make([]BoundedVolume, 0)
	for x := float32(-4); x <= 4; x += 2 {
		for z := float32(-4); z <= 4; z += 2 {
			itemList = append(itemList, boxVolume{
				bbox: types.NewAABB(types.XYZ(x, 0, z), types.XYZ(x+1, 1, z+1)),
			})
		}
	}

	nodes := BuildBVH(itemList, 1, func(leaf *scene.BvhNode, workList []BoundedVolume) {
		leaf.SetPrimitives(0, uint32(len(workList)))
	})

	for index := range nodes {
		node := &nodes[index]
		if node.IsLeaf() {
			continue
		}
		left, right := node.ChildNodes()
		parent := node.BBox()
		for _, child := range []types.AABB{nodes[left].BBox(), nodes[right].BBox()} {
			union := parent.Union(child)
			if union.Min != parent.Min || union.Max != parent.Max {
				t.Fatalf("node %d does not contain its children: parent %v child %v", index, parent, child)
			}
		}
	}
}

func TestBVHEmptyWorkList(t *testing.T) {
	nodes := BuildBVH(nil, 1, func(leaf *scene.BvhNode, workList []BoundedVolume) {
		t.Fatal("leaf callback invoked for empty work list")
	})
	if len(nodes) != 0 {
		t.Fatalf("expected no nodes; got %d", len(nodes))
	}
}
