package gallery

import (
	"math/rand"
	"testing"
)

func pictures(n, w, h int) []*item {
	out := make([]*item, n)
	for i := range out {
		out[i] = &item{kind: KindFile, meta: &Meta{Width: w, Height: h}, valid: true}
	}
	return out
}

func folders(n int) []*item {
	out := make([]*item, n)
	for i := range out {
		out[i] = &item{kind: KindDirectory, valid: true}
	}
	return out
}

func runToEnd(t *testing.T, f *FlowLayout, children []*item) int {
	t.Helper()
	steps := 1
	for !f.step(children) {
		steps++
		if steps > 1000 {
			t.Fatal("layout never finished")
		}
	}
	return steps
}

func TestShrinkRow_ThreeItemOverflow(t *testing.T) {
	// Natural widths sum to 330 for a 300 wide row.
	got := shrinkRow([]int{100, 110, 120}, 300)
	want := []int{91, 100, 109}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
	// Proportional share of the last item would be 120-10.9; it takes the remainder instead.
	if got[2] != 300-got[0]-got[1] {
		t.Errorf("Last item should absorb the remainder, got %v", got)
	}
}

func TestShrinkRow_ConservesWidth(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 1 + r.Intn(8)
		widths := make([]int, n)
		total := 0
		for j := range widths {
			widths[j] = 1 + r.Intn(400)
			total += widths[j]
		}
		maxWidth := 1 + r.Intn(total)
		got := shrinkRow(widths, maxWidth)
		sum := 0
		for _, w := range got {
			sum += w
		}
		if sum != maxWidth {
			t.Fatalf("widths %v max %d: got %v summing to %d", widths, maxWidth, got, sum)
		}
	}
}

func TestShrinkRow_NoOverflowUnchanged(t *testing.T) {
	got := shrinkRow([]int{50, 60}, 200)
	if got[0] != 50 || got[1] != 60 {
		t.Errorf("Expected untouched widths, got %v", got)
	}
}

func TestFlow_PictureRowsFillWidth(t *testing.T) {
	f := NewFlowLayout(FlowOptions{MaxWidth: 1000, RowHeight: 100})
	// Each picture is 300 wide at row height 100: rows of 4 overflow to 1200.
	children := pictures(10, 3, 1)
	runToEnd(t, f, children)

	rows := map[int]int{}
	for _, c := range children {
		if !c.placed {
			t.Fatal("Expected every child placed")
		}
		rows[c.box.Y] += c.box.W
	}
	if rows[0] != 1000 || rows[100] != 1000 {
		t.Errorf("Expected full rows to sum to 1000, got %v", rows)
	}
	// Last row: 2 pictures left aligned at natural width.
	if rows[200] != 600 {
		t.Errorf("Expected final row at natural width 600, got %d", rows[200])
	}
	if !children[0].box.RowStart || !children[4].box.RowStart || !children[8].box.RowStart {
		t.Error("Expected row starts at 0, 4 and 8")
	}
	if children[1].box.RowStart {
		t.Error("Second child should not start a row")
	}
	if f.Height() != 300 {
		t.Errorf("Expected height 300, got %d", f.Height())
	}
}

func TestFlow_FoldersAndFilesNeverShareRow(t *testing.T) {
	f := NewFlowLayout(FlowOptions{MaxWidth: 400, RowHeight: 100, FoldersPerRow: 4})
	children := append(folders(6), pictures(2, 1, 1)...)
	runToEnd(t, f, children)

	// Four folders fill the first row exactly.
	sum := 0
	for _, c := range children[:4] {
		if c.box.Y != 0 || c.box.W != 100 || c.box.H != 100 {
			t.Errorf("Unexpected folder box %+v", c.box)
		}
		sum += c.box.W
	}
	if sum != 400 {
		t.Errorf("Expected folder row to sum to 400, got %d", sum)
	}
	// Two leftover folders are a short row, then pictures start a new one.
	if children[4].box.Y != 100 || children[5].box.Y != 100 {
		t.Error("Expected second folder row at y=100")
	}
	if children[6].box.Y != 200 || !children[6].box.RowStart {
		t.Errorf("Expected pictures to start a new row at y=200, got %+v", children[6].box)
	}
}

func TestFlow_UnknownMetaIsSquare(t *testing.T) {
	f := NewFlowLayout(FlowOptions{MaxWidth: 1000, RowHeight: 120})
	children := []*item{{kind: KindFile, valid: true}}
	runToEnd(t, f, children)
	if children[0].box.W != 120 || children[0].box.H != 120 {
		t.Errorf("Expected 120x120 box, got %+v", children[0].box)
	}
}

func TestFlow_SlicesStopAtRowBoundary(t *testing.T) {
	f := NewFlowLayout(FlowOptions{MaxWidth: 1000, RowHeight: 100, SliceSize: 10})
	// 3 pictures per row (3*400 >= 1000).
	children := pictures(30, 4, 1)

	if f.step(children) {
		t.Fatal("Expected first slice to stop early")
	}
	// 10 processed ends mid row, so the slice runs to the end of row 4 (12 children).
	for i, c := range children {
		if i < 12 && !c.placed {
			t.Fatalf("Child %d should be placed after first slice", i)
		}
		if i >= 12 && c.placed {
			t.Fatalf("Child %d should not be placed yet", i)
		}
	}
	if !f.Running() {
		t.Error("Expected layout to report running between slices")
	}
	steps := runToEnd(t, f, children)
	if steps != 2 {
		t.Errorf("Expected two more slices, got %d", steps)
	}
	if children[29].box.Y != 900 {
		t.Errorf("Expected last row at y=900, got %d", children[29].box.Y)
	}
	if f.Running() {
		t.Error("Expected layout to be idle once finished")
	}
}

func TestFlow_AppendRefillsLastRow(t *testing.T) {
	f := NewFlowLayout(FlowOptions{MaxWidth: 1000, RowHeight: 100})
	children := pictures(4, 4, 1) // one full row of 3, one partial row
	runToEnd(t, f, children)
	if children[3].box.W != 400 {
		t.Fatalf("Expected partial row at natural width, got %d", children[3].box.W)
	}

	children = append(children, pictures(2, 4, 1)...)
	runToEnd(t, f, children)
	if children[3].box.Y != 100 || children[5].box.Y != 100 {
		t.Error("Expected appended children to join the second row")
	}
	sum := children[3].box.W + children[4].box.W + children[5].box.W
	if sum != 1000 {
		t.Errorf("Expected refilled row to sum to 1000, got %d", sum)
	}
}

func TestFlow_InvalidateAfterRemoval(t *testing.T) {
	f := NewFlowLayout(FlowOptions{MaxWidth: 1000, RowHeight: 100})
	children := pictures(9, 4, 1)
	runToEnd(t, f, children)

	// Drop child 4 from the middle row.
	children = append(children[:4], children[5:]...)
	f.Invalidate(4)
	runToEnd(t, f, children)

	if children[3].box.Y != 100 || !children[3].box.RowStart {
		t.Errorf("Expected child 3 to still start row 2, got %+v", children[3].box)
	}
	if children[6].box.Y != 200 || !children[6].box.RowStart {
		t.Errorf("Expected child 6 to start row 3, got %+v", children[6].box)
	}
	if f.Height() != 300 {
		t.Errorf("Expected height 300, got %d", f.Height())
	}
}

func TestFlow_WidthChangeRestarts(t *testing.T) {
	f := NewFlowLayout(FlowOptions{MaxWidth: 1000, RowHeight: 100})
	children := pictures(6, 4, 1)
	runToEnd(t, f, children)

	if !f.SetMaxWidth(800) {
		t.Fatal("Expected width change to be reported")
	}
	if f.SetMaxWidth(800) {
		t.Error("Same width should not be a change")
	}
	runToEnd(t, f, children)
	// 2*400 >= 800, so rows of two.
	if children[2].box.Y != 100 || !children[2].box.RowStart {
		t.Errorf("Expected child 2 to start row 2 after resize, got %+v", children[2].box)
	}
	if children[0].box.W+children[1].box.W != 800 {
		t.Error("Expected first row to fill the new width")
	}
}

func TestFlow_ZeroWidthPlacesNothing(t *testing.T) {
	f := NewFlowLayout(FlowOptions{})
	children := pictures(3, 1, 1)
	if !f.step(children) {
		t.Fatal("Expected zero width step to finish")
	}
	for _, c := range children {
		if c.placed {
			t.Fatal("Nothing should be placed without a width")
		}
	}
}
