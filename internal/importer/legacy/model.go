package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Yokai is one entry of yokai.json. Base stats come in two sets; BS_B is the
// fully grown line and is the one imported.
type Yokai struct {
	ID         flexString `json:"ID"`
	Name       string     `json:"name"`
	Tribe      flexString `json:"tribe"`
	Rank       flexString `json:"rank"`
	HPA        flexInt    `json:"BS_A_HP"`
	STRA       flexInt    `json:"BS_A_Str"`
	SPRA       flexInt    `json:"BS_A_Spr"`
	DEFA       flexInt    `json:"BS_A_Def"`
	SPDA       flexInt    `json:"BS_A_Spd"`
	HPB        flexInt    `json:"BS_B_HP"`
	STRB       flexInt    `json:"BS_B_Str"`
	SPRB       flexInt    `json:"BS_B_Spr"`
	DEFB       flexInt    `json:"BS_B_Def"`
	SPDB       flexInt    `json:"BS_B_Spd"`
	Fire       *flexFloat `json:"Fire"`
	Water      *flexFloat `json:"Water"`
	Electric   *flexFloat `json:"Electric"`
	Earth      *flexFloat `json:"Earth"`
	Wind       *flexFloat `json:"Wind"`
	Ice        *flexFloat `json:"Ice"`
	Equipment  *flexInt   `json:"Equipment"`
	Attack     flexString `json:"attack"`
	Technique  flexString `json:"technique"`
	Inspirit   flexString `json:"inspirit"`
	Soultimate flexString `json:"soultimate"`
	Skill      flexString `json:"skill"`
}

// Move is one entry of attacks.json, techniques.json or soultimates.json.
type Move struct {
	ID             flexString `json:"ID"`
	Command        string     `json:"Command"`
	Lv1Power       flexInt    `json:"Lv1_power"`
	Lv10Power      flexInt    `json:"Lv10_power"`
	Hits           flexInt    `json:"N_Hits"`
	Element        flexString `json:"Element"`
	Lv1SoulCharge  flexInt    `json:"Lv1_soul_charge"`
	Lv10SoulCharge flexInt    `json:"Lv10_soul_charge"`
}

// Inspirit is one entry of inspirits.json. Effect is a list of effect tags.
type Inspirit struct {
	ID      flexString `json:"ID"`
	Command string     `json:"Command"`
	Effect  tagList    `json:"Effect"`
}

// Attitude is one entry of attitudes.json. Boost is ordered HP, STR, SPR, DEF, SPD.
type Attitude struct {
	Name  string    `json:"name"`
	Boost []flexInt `json:"boost"`
}

// Equipment is one entry of equipment.json. Bonuses are often strings such
// as "+10" or "".
type Equipment struct {
	Name string  `json:"name"`
	STR  flexInt `json:"STR"`
	SPR  flexInt `json:"SPR"`
	DEF  flexInt `json:"DEF"`
	SPD  flexInt `json:"SPD"`
}

// flexString accepts a JSON string, number or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*s = flexString(n.String())
	}
	return nil
}

// flexInt accepts a JSON number, a numeric string such as "+10", an empty
// string or null. Fractions are truncated.
type flexInt struct {
	Value int
	Set   bool
}

func (n *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*n = flexInt{}
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimPrefix(string(s), "+"), 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", string(s))
	}
	*n = flexInt{Value: int(f), Set: true}
	return nil
}

// flexFloat is flexInt without truncation.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 1
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("expected number, got %q", string(s))
	}
	*f = flexFloat(v)
	return nil
}

// tagList accepts a list of tags, a single tag, or a comma separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var raw []flexString
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			if r != "" {
				out = append(out, string(r))
			}
		}
		*t = out
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	var out []string
	for _, part := range strings.Split(string(s), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*t = out
	return nil
}
