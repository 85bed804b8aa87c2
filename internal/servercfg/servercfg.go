// Package servercfg renders the server-side files that drive a map rotation:
// maplist.txt and server.cfg.
package servercfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	MaplistFile = "maplist.txt"
	ConfigFile  = "server.cfg"
)

var ErrNoMaps = errors.New("no maps to write")

// Settings are the server.cfg values that are not derived from the rotation.
// Deathmatch, MaxClients and Public are nil when unset, so an explicit 0
// survives Merge.
type Settings struct {
	Game             string   `yaml:"game" json:"game"`
	GameDir          string   `yaml:"gamedir" json:"gamedir"`
	Hostname         string   `yaml:"hostname" json:"hostname"`
	Website          string   `yaml:"website" json:"website"`
	Deathmatch       *int     `yaml:"deathmatch" json:"deathmatch"`
	TimeLimit        int      `yaml:"timelimit" json:"timelimit"`
	MaxClients       *int     `yaml:"maxclients" json:"maxclients"`
	Public           *int     `yaml:"public" json:"public"`
	Masters          []string `yaml:"masters" json:"masters"`
	Password         string   `yaml:"password" json:"password"`
	RconPassword     string   `yaml:"rcon_password" json:"rcon_password"`
	ObserverPassword string   `yaml:"observer_password" json:"observer_password"`
	// MaplistMode is 0 to play maps in sequence and 1 to pick them at random.
	MaplistMode int `yaml:"maplist_mode" json:"maplist_mode"`
	// Cvars are written verbatim before the rotation lines, Extra after the map command.
	Cvars []string `yaml:"cvars" json:"cvars"`
	Extra []string `yaml:"extra" json:"extra"`
}

// DefaultSettings returns the values of a stock D-Day server.
func DefaultSettings() Settings {
	return Settings{
		Game:             "dday",
		GameDir:          "dday",
		Hostname:         "D-Day server",
		Deathmatch:       Int(1),
		TimeLimit:        0,
		MaxClients:       Int(24),
		Public:           Int(1),
		Masters:          []string{"master.q2servers.com", "satan.idsoftware.com", "q2master.planetquake.com"},
		RconPassword:     "password",
		ObserverPassword: "",
		MaplistMode:      0,
		Cvars: []string{
			"set RI 3",
			"set level_wait 5",
			"set team_kill 1",
			"set invuln_medic 0",
			"set death_msg 1",
			"set easter_egg 0",
			"set arty_delay 10",
			"set arty_time 60",
			"set arty_max 1",
			"set invuln_spawn 2",
			"set spawn_camp_check 1",
			"set spawn_camp_time 2",
			"set flood_msgs 10",
			"set flood_persecond 10",
			"set flood_waitdelay 10",
		},
		Extra: []string{
			"seta bots 0",
			"sv_allow_map 2",
			"set allow_download 1",
			"set exbattleinfo 5",
		},
	}
}

// Int returns a pointer to v, for the optional integer settings.
func Int(v int) *int { return &v }

// Merge fills unset fields of s from def.
func (s Settings) Merge(def Settings) Settings {
	if s.Game == "" {
		s.Game = def.Game
	}
	if s.GameDir == "" {
		s.GameDir = def.GameDir
	}
	if s.Hostname == "" {
		s.Hostname = def.Hostname
	}
	if s.Website == "" {
		s.Website = def.Website
	}
	if s.Deathmatch == nil {
		s.Deathmatch = def.Deathmatch
	}
	if s.MaxClients == nil {
		s.MaxClients = def.MaxClients
	}
	if s.Public == nil {
		s.Public = def.Public
	}
	if len(s.Masters) == 0 {
		s.Masters = def.Masters
	}
	if s.RconPassword == "" {
		s.RconPassword = def.RconPassword
	}
	if s.Cvars == nil {
		s.Cvars = def.Cvars
	}
	if s.Extra == nil {
		s.Extra = def.Extra
	}
	return s
}

const maplistHeader = `; This maplist is NOT used at default.
; The maximum amount of maps for maplist is 64.
; If you want to start using it, type:
;
;       sv maplist maplist.ini [option]
;       at the console.
;
; Where option = 0 (play maps in sequence) or 
;                1 (pick random maps).
;
; You can then use "sv maplist start"
;
; Use:
; "sv maplist help" for a full list of available commands;
; "sv maplist next" to move to next map;
; "sv maplist off" to stop map rotations ;
[maplist]
`

const maplistFooter = `###
; Make sure you have [maplist] at the beginning of the list and ### at the end.
`

// RenderMaplist returns maplist.txt for maps in rotation order.
func RenderMaplist(maps []string) (string, error) {
	if len(maps) == 0 {
		return "", ErrNoMaps
	}
	var sb strings.Builder
	sb.WriteString(maplistHeader)
	for _, m := range maps {
		sb.WriteString(m)
		sb.WriteByte('\n')
	}
	sb.WriteString(maplistFooter)
	return sb.String(), nil
}

var configTmpl = template.Must(template.New(ConfigFile).Funcs(template.FuncMap{"join": strings.Join, "deref": deref}).Parse(`set game {{.Game}}
set gamedir {{.GameDir}}
set hostname {{printf "%q" .Hostname}}
{{- if .Website}}
set website {{printf "%q" .Website}}
{{- end}}
set deathmatch {{deref .Deathmatch}}
set timelimit {{.TimeLimit}}
set maxclients {{deref .MaxClients}}
set public {{deref .Public}}
{{- if .Masters}}
setmaster {{join .Masters " "}}
{{- end}}
{{- if .Password}}
set password {{printf "%q" .Password}}
{{- end}}
set rcon_password {{printf "%q" .RconPassword}}
{{- if .ObserverPassword}}
set observer_password {{printf "%q" .ObserverPassword}}
{{- end}}
sv maplist maplist.txt {{.MaplistMode}}
sv maplist start
{{- range .Cvars}}
{{.}}
{{- end}}
set sv_maplist "{{join .Maps " "}}"
map {{index .Maps 0}}
{{- range .Extra}}
{{.}}
{{- end}}
`))

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// RenderConfig returns server.cfg for maps in rotation order.
func RenderConfig(maps []string, s Settings) (string, error) {
	if len(maps) == 0 {
		return "", ErrNoMaps
	}
	var sb strings.Builder
	err := configTmpl.Execute(&sb, struct {
		Settings
		Maps []string
	}{s, maps})
	if err != nil {
		return "", fmt.Errorf("servercfg: render %s: %w", ConfigFile, err)
	}
	return sb.String(), nil
}

// WriteMaplist renders and writes dir/maplist.txt, returning its path.
func WriteMaplist(dir string, maps []string) (string, error) {
	text, err := RenderMaplist(maps)
	if err != nil {
		return "", err
	}
	return writeFile(filepath.Join(dir, MaplistFile), text)
}

// WriteConfig renders and writes dir/server.cfg, returning its path.
func WriteConfig(dir string, maps []string, s Settings) (string, error) {
	text, err := RenderConfig(maps, s)
	if err != nil {
		return "", err
	}
	return writeFile(filepath.Join(dir, ConfigFile), text)
}

func writeFile(path, text string) (string, error) {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("servercfg: write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
