package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/cartpole/internal/integrators"
)

type Point struct{ X, Y float64 }

// Portrait holds the points of a 2D projection of a trajectory.
type Portrait struct {
	XIndex, YIndex int
	Points         []Point
}

// PhasePortrait projects tr onto components xIdx and yIdx. It returns nil
// when either index is out of range.
func PhasePortrait(tr *integrators.Trajectory, xIdx, yIdx int) *Portrait {
	if tr == nil || len(tr.Samples) == 0 {
		return nil
	}
	if !inRange(len(tr.Samples[0].State), xIdx, yIdx) {
		return nil
	}

	p := &Portrait{XIndex: xIdx, YIndex: yIdx, Points: make([]Point, len(tr.Samples))}
	for i, s := range tr.Samples {
		p.Points[i] = Point{X: s.State[xIdx], Y: s.State[yIdx]}
	}
	return p
}

// ASCII draws the portrait on a width×height character grid, with axes
// where zero is in view.
func (p *Portrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := 0; r < height; r++ {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := 0; c < width; c++ {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}

	for _, pt := range p.Points {
		r, c := row(pt.Y), col(pt.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			canvas[r][c] = '•'
		}
	}
	first, last := p.Points[0], p.Points[len(p.Points)-1]
	canvas[row(first.Y)][col(first.X)] = 'o'
	canvas[row(last.Y)][col(last.X)] = 'x'

	var sb strings.Builder
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PhasePlot writes the phase portrait of each plotted trajectory to W.
type PhasePlot struct {
	W              io.Writer
	XIndex, YIndex int
	Width, Height  int
	Title          string
}

func (pp *PhasePlot) Plot(tr *integrators.Trajectory) error {
	p := PhasePortrait(tr, pp.XIndex, pp.YIndex)
	if p == nil {
		return fmt.Errorf("phase plot: components %d,%d not in trajectory", pp.XIndex, pp.YIndex)
	}
	if pp.Title != "" {
		if _, err := fmt.Fprintln(pp.W, pp.Title); err != nil {
			return err
		}
	}
	_, err := io.WriteString(pp.W, p.ASCII(pp.Width, pp.Height))
	return err
}

// PoincareSection records, for each upward crossing of level by component
// crossIdx, the (recordX, recordY) components linearly interpolated to the
// crossing.
func PoincareSection(tr *integrators.Trajectory, crossIdx int, level float64, recordX, recordY int) []Point {
	if tr == nil || len(tr.Samples) < 2 {
		return nil
	}
	if !inRange(len(tr.Samples[0].State), crossIdx, recordX, recordY) {
		return nil
	}

	var pts []Point
	for i := 1; i < len(tr.Samples); i++ {
		prev, curr := tr.Samples[i-1].State, tr.Samples[i].State
		if prev[crossIdx] < level && curr[crossIdx] >= level {
			frac := (level - prev[crossIdx]) / (curr[crossIdx] - prev[crossIdx])
			pts = append(pts, Point{
				X: prev[recordX] + frac*(curr[recordX]-prev[recordX]),
				Y: prev[recordY] + frac*(curr[recordY]-prev[recordY]),
			})
		}
	}
	return pts
}

func inRange(dim int, idx ...int) bool {
	for _, i := range idx {
		if i < 0 || i >= dim {
			return false
		}
	}
	return true
}
