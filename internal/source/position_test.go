package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPositionRelativeViews(t *testing.T) {
	p := &Position{
		Offset:        10,
		Begin:         12,
		CmdBegin:      15,
		CmdArgBegin:   18,
		CmdEnd:        20,
		End:           22,
		EndBlockBegin: 30,
		EndBlockEnd:   39,
	}

	tests := []struct {
		name string
		get  func() int
		set  func(int)
		abs  *int
		want int
	}{
		{"begin", p.RelativeBegin, p.SetRelativeBegin, &p.Begin, 2},
		{"cmdBegin", p.RelativeCmdBegin, p.SetRelativeCmdBegin, &p.CmdBegin, 5},
		{"cmdArgBegin", p.RelativeCmdArgBegin, p.SetRelativeCmdArgBegin, &p.CmdArgBegin, 8},
		{"cmdEnd", p.RelativeCmdEnd, p.SetRelativeCmdEnd, &p.CmdEnd, 10},
		{"end", p.RelativeEnd, p.SetRelativeEnd, &p.End, 12},
		{"endBlockBegin", p.RelativeEndBlockBegin, p.SetRelativeEndBlockBegin, &p.EndBlockBegin, 20},
		{"endBlockEnd", p.RelativeEndBlockEnd, p.SetRelativeEndBlockEnd, &p.EndBlockEnd, 29},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.get(); got != test.want {
				t.Errorf("relative view: want %d, got %d", test.want, got)
			}
			// writing the relative view must re-add the offset
			test.set(test.want + 1)
			if got := *test.abs; got != test.want+1+p.Offset {
				t.Errorf("absolute after relative write: want %d, got %d", test.want+1+p.Offset, got)
			}
			if got := test.get(); got != test.want+1 {
				t.Errorf("relative view after write: want %d, got %d", test.want+1, got)
			}
		})
	}
}

func TestPositionCopyIndependent(t *testing.T) {
	p := &Position{Offset: 3, Begin: 5, CmdBegin: 8, CmdArgBegin: 10, CmdEnd: 12, End: 14}
	q := p.Copy()
	if diff := cmp.Diff(p, q); diff != "" {
		t.Fatalf("copy differs from original (-want +got):\n%s", diff)
	}
	q.SetRelativeBegin(100)
	q.Offset = 0
	if p.Begin != 5 || p.Offset != 3 {
		t.Errorf("mutating copy changed original: %+v", p)
	}
}

func TestPositionCheck(t *testing.T) {
	valid := &Position{Begin: 0, CmdBegin: 3, CmdArgBegin: 6, CmdEnd: 8, End: 10, EndBlockBegin: 20, EndBlockEnd: 29}
	valid.Check(true)
	valid.Check(false)

	// out-of-order offsets are a programming error, not a user error
	bad := &Position{Begin: 5, CmdBegin: 3, CmdArgBegin: 6, CmdEnd: 8, End: 10}
	defer func() {
		e := recover()
		if e == nil {
			t.Fatal("want panic on out-of-order position, got none")
		}
		if _, ok := e.(InvalidPosition); !ok {
			t.Fatalf("want InvalidPosition panic value, got %T", e)
		}
	}()
	bad.Check(false)
}

func TestPositionCheckBlockOrdering(t *testing.T) {
	p := &Position{Begin: 0, CmdBegin: 3, CmdArgBegin: 6, CmdEnd: 8, End: 10, EndBlockBegin: 7, EndBlockEnd: 9}
	// fine when block markers are meaningless
	p.Check(false)
	defer func() {
		if recover() == nil {
			t.Fatal("want panic on end block before end, got none")
		}
	}()
	p.Check(true)
}
