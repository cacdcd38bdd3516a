package htmlstrip

// namedEntities is a small superset of HTML named character references
// beyond the XML basic five (which xmlscan.Unescape already decodes
// without consulting this table): the ones that actually show up in EPUB
// prose — typography, whitespace, and a handful of Latin-1 letters.
var namedEntities = map[string]string{
	"nbsp":    " ",
	"mdash":   "—",
	"ndash":   "–",
	"hellip":  "…",
	"ldquo":   "“",
	"rdquo":   "”",
	"lsquo":   "‘",
	"rsquo":   "’",
	"copy":    "©",
	"reg":     "®",
	"trade":   "™",
	"eacute":  "é",
	"egrave":  "è",
	"agrave":  "à",
	"ccedil":  "ç",
	"uuml":    "ü",
	"ouml":    "ö",
	"auml":    "ä",
	"szlig":   "ß",
	"deg":     "°",
	"plusmn":  "±",
	"times":   "×",
	"divide":  "÷",
	"laquo":   "«",
	"raquo":   "»",
	"middot":  "·",
	"sect":    "§",
	"para":    "¶",
	"shy":     "­",
	"euro":    "€",
	"pound":   "£",
	"cent":    "¢",
	"yen":     "¥",
}

func htmlEntityLookup(name string) (string, bool) {
	v, ok := namedEntities[name]
	return v, ok
}
