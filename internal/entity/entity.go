// Package entity provides passive value views of host engine state: edicts,
// entity variables, trace results, cvars and client slots.
//
// These types carry the values that hook chains intercept and forwards
// marshal. They impose no protocol beyond reading and writing fields.
package entity

import (
	"errors"
	"math"
	"strconv"
)

// ErrNoFreeEdict is returned when the edict table is full.
var ErrNoFreeEdict = errors.New("no free edict")

// Vector is a 3-component float vector.
type Vector [3]float32

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vector) Scale(s float32) Vector {
	return Vector{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and o.
func (v Vector) Dot(o Vector) float32 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Length returns the Euclidean length of v.
func (v Vector) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// EntVars holds the per-entity variables the game logic reads and writes.
type EntVars struct {
	Classname string  `json:"classname"`
	NetName   string  `json:"netname"`
	Origin    Vector  `json:"origin"`
	Velocity  Vector  `json:"velocity"`
	Health    float32 `json:"health"`
	MaxHealth float32 `json:"max_health"`
	Armor     float32 `json:"armor"`
	Team      int32   `json:"team"`
	Flags     int32   `json:"flags"`
	DeadFlag  int32   `json:"deadflag"`
	Frags     float32 `json:"frags"`
}

// Edict is one slot of the engine's entity table.
type Edict struct {
	Index  int     `json:"index"`
	Free   bool    `json:"free"`
	Serial int     `json:"serial"`
	Vars   EntVars `json:"vars"`
}

// IsAlive returns true for an allocated edict with positive health.
func (e *Edict) IsAlive() bool {
	return e != nil && !e.Free && e.Vars.DeadFlag == 0 && e.Vars.Health > 0
}

// TraceResult is the outcome of a line trace.
type TraceResult struct {
	AllSolid    bool    `json:"all_solid"`
	StartSolid  bool    `json:"start_solid"`
	Fraction    float32 `json:"fraction"`
	EndPos      Vector  `json:"end_pos"`
	PlaneNormal Vector  `json:"plane_normal"`
	Hit         *Edict  `json:"hit"`
}

// CvarFlags describe how a cvar is treated by the engine.
type CvarFlags int32

// Cvar flags.
const (
	CvarArchive   CvarFlags = 1 << 0
	CvarServer    CvarFlags = 1 << 2
	CvarProtected CvarFlags = 1 << 5
)

// Cvar is a console variable.
type Cvar struct {
	Name   string    `json:"name"`
	String string    `json:"string"`
	Value  float32   `json:"value"`
	Flags  CvarFlags `json:"flags"`
}

// Set stores a new string value and updates the numeric view.
func (c *Cvar) Set(value string) {
	c.String = value
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		c.Value = 0
		return
	}
	c.Value = float32(f)
}

// Client is a connected player slot.
type Client struct {
	ID        int    `json:"id"`
	UserID    int    `json:"userid"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
	Spawned   bool   `json:"spawned"`
	Edict     *Edict `json:"edict"`
}

// World is the engine's fixed-size edict table. Edict 0 is the world
// entity; edicts 1..maxClients are reserved for players.
type World struct {
	edicts     []Edict
	maxClients int
}

// NewWorld allocates an edict table.
func NewWorld(maxEdicts, maxClients int) *World {
	if maxEdicts < maxClients+1 {
		maxEdicts = maxClients + 1
	}
	w := &World{
		edicts:     make([]Edict, maxEdicts),
		maxClients: maxClients,
	}
	for i := range w.edicts {
		w.edicts[i].Index = i
		w.edicts[i].Free = true
	}
	w.edicts[0].Free = false
	w.edicts[0].Vars.Classname = "worldspawn"
	return w
}

// MaxEdicts returns the size of the table.
func (w *World) MaxEdicts() int {
	return len(w.edicts)
}

// MaxClients returns the number of player slots.
func (w *World) MaxClients() int {
	return w.maxClients
}

// EdictByIndex returns the edict at index, or nil if out of range.
func (w *World) EdictByIndex(index int) *Edict {
	if index < 0 || index >= len(w.edicts) {
		return nil
	}
	return &w.edicts[index]
}

// PlayerEdict returns the reserved edict for client slot id (1-based).
func (w *World) PlayerEdict(id int) *Edict {
	if id < 1 || id > w.maxClients {
		return nil
	}
	return &w.edicts[id]
}

// Alloc returns the first free non-player edict.
func (w *World) Alloc(classname string) (*Edict, error) {
	for i := w.maxClients + 1; i < len(w.edicts); i++ {
		e := &w.edicts[i]
		if e.Free {
			e.Free = false
			e.Serial++
			e.Vars = EntVars{Classname: classname}
			return e, nil
		}
	}
	return nil, ErrNoFreeEdict
}

// Free releases an edict back to the table.
func (w *World) Free(e *Edict) {
	if e == nil || e.Index == 0 {
		return
	}
	e.Free = true
	e.Vars = EntVars{}
}

// Used returns the number of allocated edicts, including the world.
func (w *World) Used() int {
	n := 0
	for i := range w.edicts {
		if !w.edicts[i].Free {
			n++
		}
	}
	return n
}
