// Package ent reads and rewrites entity text: the brace-delimited blocks of quoted
// key/value pairs stored in a map's entity lump.
//
//	{
//	"classname" "info_team_start"
//	"message" "allies"
//	"nextmap" "dust"
//	}
//
// Blocks are never nested. A block runs from an opening brace to the next closing
// brace, and text between blocks is carried through rewrites untouched.
package ent

// Classnames and keys read by this package.
const (
	ClassWorldspawn    = "worldspawn"
	ClassInfoTeamStart = "info_team_start"

	KeyClassname = "classname"
	KeyMessage   = "message"
	KeyNextmap   = "nextmap"

	TeamAllies = "allies"
	TeamAxis   = "axis"
)
