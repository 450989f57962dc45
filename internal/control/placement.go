package control

import "github.com/hazyhaar/domtuner/internal/dom"

// Margin keeps the popover off the viewport edges.
const Margin = 8

// PopoverPosition computes the popover's top-left corner: centred
// horizontally on the button and clamped into the viewport, preferring
// placement above the button, falling back below when there is not enough
// room, then clamping vertically if still off-screen.
func PopoverPosition(l dom.Layout) (x, y float64) {
	x = l.Button.X + l.Button.W/2 - l.Popover.W/2
	if max := l.Viewport.W - l.Popover.W - Margin; x > max {
		x = max
	}
	if x < Margin {
		x = Margin
	}

	y = l.Button.Y - l.Popover.H - Margin
	if y < Margin {
		// Not enough room above: place below the button.
		y = l.Button.Y + l.Button.H + Margin
	}
	if max := l.Viewport.H - l.Popover.H - Margin; y > max {
		y = max
	}
	return x, y
}
