package discord

// Color is a 24-bit RGB display colour.
type Color int32

const (
	ColorDefault    Color = 0
	ColorAqua       Color = 1752220
	ColorGreen      Color = 3066993
	ColorBlue       Color = 3447003
	ColorPurple     Color = 10181046
	ColorGold       Color = 15844367
	ColorOrange     Color = 15105570
	ColorRed        Color = 15158332
	ColorGrey       Color = 9807270
	ColorDarkerGrey Color = 8359053
	ColorNavy       Color = 3426654
	ColorDarkAqua   Color = 1146986
	ColorDarkGreen  Color = 2067276
	ColorDarkBlue   Color = 2123412
	ColorDarkPurple Color = 7419530
	ColorDarkGold   Color = 12745742
	ColorDarkOrange Color = 11027200
	ColorDarkRed    Color = 10038562
	ColorDarkGrey   Color = 9936031
	ColorLightGrey  Color = 12370112
	ColorDarkNavy   Color = 2899536
)
