package engine

// palette is a fixed set of at least MaxPlayers visually distinct colors,
// assigned to snakes in join order (spec.md §4.1.2). Grounded on the
// teacher's ColorIdx/NumColors scheme, rebased to CSS color names since this
// wire protocol is JSON text rather than a color-index byte.
var palette = [...]string{
	"crimson",
	"dodgerblue",
	"limegreen",
	"gold",
	"darkorchid",
	"darkorange",
	"turquoise",
	"hotpink",
}

func colorForSlot(joinIndex int) string {
	return palette[joinIndex%len(palette)]
}
