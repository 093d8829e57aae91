package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "liverange/program/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramHash computes a content-addressed ID for a module together with
// its schedule and explicit buffer groups. Two programs hash equal exactly
// when they have the same computations, instructions, shapes, operands,
// called computations, roots, schedules, alias table and buffer groups.
// Buffer groups are hashed in the order given, refs as written.
func ProgramHash(m *Module, s *Schedule, buffers [][]string) (string, error) {
	canonical, err := MarshalCanonical(describeProgram(m, s, buffers))
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustProgramHash is like ProgramHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustProgramHash(m *Module, s *Schedule, buffers [][]string) string {
	h, err := ProgramHash(m, s, buffers)
	if err != nil {
		panic(err)
	}
	return h
}

func describeProgram(m *Module, s *Schedule, buffers [][]string) map[string]any {
	comps := make([]any, 0, len(m.Computations()))
	for _, c := range m.Computations() {
		insts := make([]any, 0, len(c.Instructions()))
		for _, inst := range c.Instructions() {
			insts = append(insts, describeInstruction(inst))
		}
		desc := map[string]any{
			"name":         c.Name(),
			"instructions": insts,
		}
		if root := c.Root(); root != nil {
			desc["root"] = root.Name
		}
		if s != nil {
			if seq, ok := s.Sequence(c); ok {
				desc["schedule"] = instructionNames(seq)
			}
		}
		comps = append(comps, desc)
	}

	aliases := make([]any, 0, len(m.AliasConfig().Entries()))
	for _, e := range m.AliasConfig().Entries() {
		aliases = append(aliases, map[string]any{
			"output":          e.OutputIndex.String(),
			"parameter":       e.ParameterNumber,
			"parameter_index": e.ParameterIndex.String(),
		})
	}

	groups := make([]any, 0, len(buffers))
	for _, g := range buffers {
		groups = append(groups, g)
	}

	out := map[string]any{
		"name":         m.Name(),
		"computations": comps,
		"alias":        aliases,
		"buffers":      groups,
	}
	if m.Entry() != nil {
		out["entry"] = m.Entry().Name()
	}
	return out
}

func describeInstruction(inst *Instruction) map[string]any {
	desc := map[string]any{
		"name":     inst.Name,
		"opcode":   string(inst.Opcode),
		"shape":    inst.Shape.String(),
		"operands": instructionNames(inst.Operands),
	}
	if len(inst.CalledComputations) > 0 {
		calls := make([]string, len(inst.CalledComputations))
		for i, c := range inst.CalledComputations {
			calls[i] = c.Name()
		}
		desc["calls"] = calls
	}
	switch inst.Opcode {
	case OpParameter:
		desc["parameter"] = inst.ParameterNumber
	case OpGetTupleElement:
		desc["index"] = inst.TupleIndex
	}
	return desc
}

func instructionNames(insts []*Instruction) []string {
	names := make([]string, len(insts))
	for i, inst := range insts {
		names[i] = inst.Name
	}
	return names
}
