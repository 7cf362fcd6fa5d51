package stages

import (
	"fmt"
	"io"
	"strings"

	"github.com/bft-labs/framegraph/pkg/arbiter"
	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/graph"
)

// Display renders every FrameSet as a line of text. Writes go through an
// arbiter so that several displays on different goroutines share one
// output without interleaving.
type Display struct {
	graph.BaseProcessor

	window  string
	arb     *arbiter.Arbiter
	out     io.Writer
	streams []string
	lines   int
}

// NewDisplay returns a display writing to out through arb. Its window name
// comes from ctx, so displays sharing a context are numbered in creation order.
func NewDisplay(ctx *graph.Context, arb *arbiter.Arbiter, out io.Writer) *Display {
	return &Display{
		window: ctx.NextID("window"),
		arb:    arb,
		out:    out,
	}
}

// Window returns the display's window name.
func (d *Display) Window() string { return d.window }

// Lines returns the number of lines written.
func (d *Display) Lines() int { return d.lines }

func (d *Display) OpenStreams(set *frame.StreamSet) error {
	d.streams = set.Names()
	return nil
}

func (d *Display) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	line := d.render(in)
	err := d.arb.Do(func() {
		fmt.Fprintln(d.out, line)
	})
	if err != nil {
		// The arbiter is gone; keep the graph running without output.
		d.Unit().Logger().Warn("display dropped frame")
		return []frame.FrameSet{in}
	}
	d.lines++
	return []frame.FrameSet{in}
}

func (d *Display) render(in frame.FrameSet) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(d.window)
	b.WriteString("]")
	for i, f := range in {
		name := fmt.Sprintf("#%d", i)
		if i < len(d.streams) {
			name = d.streams[i]
		}
		fmt.Fprintf(&b, " %s=%s", name, describe(f))
	}
	return b.String()
}

func describe(f frame.Frame) string {
	switch v := f.(type) {
	case nil:
		return "-"
	case *frame.ValueFrame[int64]:
		return fmt.Sprint(v.Value())
	case *frame.ValueFrame[float64]:
		return fmt.Sprintf("%.3f", v.Value())
	case *frame.ValueFrame[string]:
		return v.Value()
	default:
		return fmt.Sprintf("%s(%dB)", f.TypeName(), f.Size())
	}
}
