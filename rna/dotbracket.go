package rna

import (
	"fmt"

	"github.com/justapithecus/knotfold/types"
)

var brackets = [...][2]byte{{'(', ')'}, {'[', ']'}, {'{', '}'}, {'<', '>'}}

// DotBracket renders a structure, giving each crossing layer its own
// bracket type. Helices are layered greedily in 5' order; structures
// needing more than four layers reuse the last bracket type.
func DotBracket(s types.Structure) string {
	n := s.Len()
	out := make([]byte, n)
	for i := range out {
		out[i] = '.'
	}
	var layers [][]types.Helix
	for _, h := range s.Helices() {
		layer := 0
		for ; layer < len(layers); layer++ {
			if !crossesAny(h, layers[layer]) {
				break
			}
		}
		if layer == len(layers) {
			layers = append(layers, nil)
		}
		layers[layer] = append(layers[layer], h)
		b := brackets[min(layer, len(brackets)-1)]
		for _, p := range h.Pairs() {
			out[p[0]-1] = b[0]
			out[p[1]-1] = b[1]
		}
	}
	return string(out)
}

func crossesAny(h types.Helix, layer []types.Helix) bool {
	for _, o := range layer {
		if h.Crosses(o) {
			return true
		}
	}
	return false
}

// ParseDotBracket reads a dot-bracket string using any of (), [], {}, <>.
func ParseDotBracket(db string) (types.Structure, error) {
	s := types.NewStructure(len(db))
	stacks := make([][]int, len(brackets))
	for idx := 0; idx < len(db); idx++ {
		c := db[idx]
		pos := idx + 1
		if c == '.' || c == '-' || c == ',' {
			continue
		}
		matched := false
		for k, b := range brackets {
			switch c {
			case b[0]:
				stacks[k] = append(stacks[k], pos)
				matched = true
			case b[1]:
				if len(stacks[k]) == 0 {
					return types.Structure{}, fmt.Errorf("unbalanced %q at %d", c, pos)
				}
				open := stacks[k][len(stacks[k])-1]
				stacks[k] = stacks[k][:len(stacks[k])-1]
				if err := s.Pair(open, pos); err != nil {
					return types.Structure{}, err
				}
				matched = true
			}
		}
		if !matched {
			return types.Structure{}, fmt.Errorf("unexpected %q at %d", c, pos)
		}
	}
	for k, st := range stacks {
		if len(st) > 0 {
			return types.Structure{}, fmt.Errorf("unclosed %q at %d", brackets[k][0], st[len(st)-1])
		}
	}
	return s, nil
}
