// Package disasm decodes a CUEL word buffer into a mnemonic listing,
// shared by cueldis and cueldbg's disassembly panel. It performs no
// control-flow analysis beyond marking words that are the target of
// some call-class instruction anywhere in the buffer, found in a single
// linear pre-scan — the linked format keeps no symbol table to recover
// function boundaries from.
package disasm

import (
	"fmt"

	"github.com/rmay/cuel/pkg/vm"
)

// Listing renders one line per word: offset, raw word, and decoded
// form, both in hex. Data words print as "PUSH <n>"; opcode words print
// their mnemonic; a word that is the target of any call-class
// instruction in the buffer, earlier or later, is additionally annotated.
func Listing(words []uint32) []string {
	targets := callTargets(words)
	lines := make([]string, 0, len(words))
	for i, w := range words {
		lines = append(lines, Line(uint32(i), w, targets[uint32(i)]))
	}
	return lines
}

// Line renders a single decoded word at the given offset. isTarget
// marks it as a call-site target for the "; call target" annotation.
func Line(offset, word uint32, isTarget bool) string {
	decoded := decode(word)
	if isTarget {
		decoded += "  ; call target"
	}
	return fmt.Sprintf("%s  %s  %s", hexOffset(offset), hexWord(word), decoded)
}

func decode(word uint32) string {
	if word < vm.DataLimit {
		return fmt.Sprintf("PUSH %d", int32(word))
	}
	name := vm.OpcodeName(word)
	if name == "UNKNOWN" {
		return "UNKNOWN"
	}
	return name
}

// callTargets scans the linked buffer for every call-class opcode word
// and records its preceding placeholder word's value as a target
// offset, since the linker has already patched it to the callee's
// address.
func callTargets(words []uint32) map[uint32]bool {
	targets := map[uint32]bool{}
	for i, w := range words {
		if vm.IsCallClass(w) && i > 0 {
			targets[words[i-1]] = true
		}
	}
	return targets
}

func hexOffset(v uint32) string { return fmt.Sprintf("0x%08X", v) }
func hexWord(v uint32) string   { return fmt.Sprintf("0x%08X", v) }
