package drivers_test

import (
	"testing"

	"github.com/nuln/jobfs"
	"github.com/nuln/jobfs/drivers"
)

func TestList(t *testing.T) {
	drivers.Init()
	got := drivers.List()
	want := []jobfs.Kind{jobfs.KindLocal, jobfs.KindDFS}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
