package protocol

// Color is a cosmetic player color. The numeric values match the
// client's palette indices.
type Color byte

const (
	ColorRed    Color = 0
	ColorBlue   Color = 1
	ColorGreen  Color = 2
	ColorPink   Color = 3
	ColorOrange Color = 4
	ColorYellow Color = 5
	ColorBlack  Color = 6
	ColorWhite  Color = 7
	ColorPurple Color = 8
	ColorBrown  Color = 9
	ColorCyan   Color = 10
	ColorLime   Color = 11
)

var colorStrings = map[Color]string{
	ColorRed:    "red",
	ColorBlue:   "blue",
	ColorGreen:  "green",
	ColorPink:   "pink",
	ColorOrange: "orange",
	ColorYellow: "yellow",
	ColorBlack:  "black",
	ColorWhite:  "white",
	ColorPurple: "purple",
	ColorBrown:  "brown",
	ColorCyan:   "cyan",
	ColorLime:   "lime",
}

func (c Color) String() string {
	if s, ok := colorStrings[c]; ok {
		return s
	}
	return "unknown"
}
