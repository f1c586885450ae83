// Package viz renders simulations in the terminal.
//
// The live view is a Bubble Tea program: the chain is drawn on a Braille
// pixel [Canvas] next to a stats panel with energy and constraint
// diagnostics. [PlotSeries] and [Summary] format non-interactive run output.
//
// # Key Bindings
//
//	Space - pause/resume
//	R     - reset to the initial state
//	Q     - quit
package viz
