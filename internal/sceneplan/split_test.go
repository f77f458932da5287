package sceneplan

import "testing"

func TestSplitMaxNoOp(t *testing.T) {
	out, exact := SplitMax([]uint64{0, 30, 60}, 100, 0, nil)
	assertUint64Slice(t, out, []uint64{0, 30, 60})
	if len(exact) != 0 {
		t.Errorf("expected no exact cuts, got %v", exact)
	}
}

func TestSplitMaxEverySpanUnderLimit(t *testing.T) {
	// scenario 3: boundaries [0,30,60], total=100, max=25, source kfs = [0,30,60]
	out, _ := SplitMax([]uint64{0, 30, 60}, 100, 25, []uint64{0, 30, 60})

	ends := nextBoundaries(out, 100)
	for i, b := range out {
		length := ends[i] - b
		if length > 25 {
			t.Errorf("piece starting at %d has length %d, want <= 25 (boundaries=%v)", b, length, out)
		}
	}
	if len(out) < 4 {
		t.Errorf("expected at least 4 aom-scenes, got %d: %v", len(out), out)
	}
}

func TestSplitMaxSnapsToNearbySourceKeyframe(t *testing.T) {
	// span [0,30) max=20 -> ideal cut at 20; source keyframe at 18 is within snapTolerance
	out, exact := SplitMax([]uint64{0}, 30, 20, []uint64{0, 18})
	assertUint64Slice(t, out, []uint64{0, 18})
	if exact[18] {
		t.Errorf("expected snapped cut at 18, not marked exact: %v", exact)
	}
}

func TestSplitMaxExactCutWithoutNearbyKeyframe(t *testing.T) {
	out, exact := SplitMax([]uint64{0}, 40, 20, nil)
	assertUint64Slice(t, out, []uint64{0, 20})
	if !exact[20] {
		t.Errorf("expected frame 20 marked as an exact (re-encode) cut, got %v", exact)
	}
}
