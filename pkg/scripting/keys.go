package scripting

// namedKeySequences maps the script-facing key names send_key accepts to
// the VT100/ANSI byte sequences a BBS server expects, per spec §4.7
// ("send named keys, mapped per active emulation"). This is the ANSI/VT100
// table; other emulations remap at the caller if they need different
// bytes for the same name.
var namedKeySequences = map[string][]byte{
	"ENTER":     {'\r'},
	"ESCAPE":    {0x1b},
	"TAB":       {'\t'},
	"BACKSPACE": {0x7f},
	"UP":        {0x1b, '[', 'A'},
	"DOWN":      {0x1b, '[', 'B'},
	"RIGHT":     {0x1b, '[', 'C'},
	"LEFT":      {0x1b, '[', 'D'},
	"HOME":      {0x1b, '[', 'H'},
	"END":       {0x1b, '[', 'F'},
	"PAGEUP":    {0x1b, '[', '5', '~'},
	"PAGEDOWN":  {0x1b, '[', '6', '~'},
	"INSERT":    {0x1b, '[', '2', '~'},
	"DELETE":    {0x1b, '[', '3', '~'},
	"F1":        {0x1b, 'O', 'P'},
	"F2":        {0x1b, 'O', 'Q'},
	"F3":        {0x1b, 'O', 'R'},
	"F4":        {0x1b, 'O', 'S'},
}
