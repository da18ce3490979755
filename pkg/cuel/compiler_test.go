package cuel

import (
	"strings"
	"testing"

	"github.com/rmay/cuel/pkg/vm"
)

func mustCompile(t *testing.T, src string) []uint32 {
	t.Helper()
	words, err := Compile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	return words
}

// TestHelloBytecode pins scenario S1 from the spec's worked examples:
// exact word-for-word bytecode for a one-line "Hi" program.
func TestHelloBytecode(t *testing.T) {
	src := "MAIN:\n        \"Hi\"\n        puts\n"
	words := mustCompile(t, src)
	want := []uint32{
		vm.Magic,
		0x00000000,
		0x69, // 'i'
		0x48, // 'H'
		vm.OpPuts,
		vm.OpRet,
	}
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d: %#x", len(words), len(want), words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word[%d] = %#08x, want %#08x", i, words[i], want[i])
		}
	}
}

func TestArithmeticPrint(t *testing.T) {
	src := "MAIN:\n        2\n        3\n        +\n        putn\n"
	words := mustCompile(t, src)
	want := []uint32{vm.Magic, 2, 3, vm.OpAdd, vm.OpPutn, vm.OpRet}
	if len(words) != len(want) {
		t.Fatalf("got %#x, want %#x", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word[%d] = %#08x, want %#08x", i, words[i], want[i])
		}
	}
}

// TestRecursionCallSitePatched exercises S3: a self-recursive function
// whose call site gets patched to its own first body word.
func TestRecursionCallSitePatched(t *testing.T) {
	src := "MAIN:\n" +
		"        3\n" +
		"        cal F\n" +
		"\n" +
		"F:\n" +
		"        dup\n" +
		"        cnz F\n" +
		"        pop\n"
	words := mustCompile(t, src)

	// MAIN: [1]=3 [2]=0(patched) [3]=cal [4]=ret(blank line)
	// F:    [5]=dup [6]=0(patched) [7]=cnz [8]=pop [9]=ret(end)
	fAddr := uint32(5)
	if words[2] != fAddr {
		t.Errorf("MAIN's call site patched to %#x, want %#x", words[2], fAddr)
	}
	if words[6] != fAddr {
		t.Errorf("F's recursive call site patched to %#x, want %#x", words[6], fAddr)
	}
}

func TestUndefinedFunctionCall(t *testing.T) {
	src := "MAIN:\n        cal FOO\n"
	_, err := Compile(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	se, ok := err.(*SyntaxError)
	if !ok {
		t.Fatalf("got %T, want *SyntaxError", err)
	}
	want := "Syntax error: call to undefined function at line 2"
	if se.Error() != want {
		t.Errorf("got %q, want %q", se.Error(), want)
	}
}

func TestUnusedFunction(t *testing.T) {
	src := "MAIN:\n" +
		"        1\n" +
		"\n" +
		"HELPER:\n" +
		"        pop\n"
	_, err := Compile(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Syntax error: unused functions - HELPER"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDivisionByZeroCompiles(t *testing.T) {
	// Compilation itself must succeed; the division-by-zero fault is a
	// runtime concern, verified in pkg/vm.
	src := "MAIN:\n        1\n        0\n        /\n"
	words := mustCompile(t, src)
	want := []uint32{vm.Magic, 1, 0, vm.OpDiv, vm.OpRet}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word[%d] = %#08x, want %#08x", i, words[i], want[i])
		}
	}
}

func TestFunctionRedefinition(t *testing.T) {
	src := "MAIN:\n" +
		"        cal F\n" +
		"\n" +
		"F:\n" +
		"        pop\n" +
		"\n" +
		"F:\n" +
		"        pop\n"
	_, err := Compile(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "function redefinition") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMisplacedEmptyLine(t *testing.T) {
	src := "MAIN:\n\n        pop\n"
	_, err := Compile(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "misplaced empty line") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMissingBlankLineBeforeFunc(t *testing.T) {
	src := "MAIN:\n        cal F\nF:\n        pop\n"
	_, err := Compile(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "missing an empty line before function definition") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNumberOutOfRange(t *testing.T) {
	src := "MAIN:\n        9999999999\n"
	_, err := Compile(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "number is out of range") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnknownToken(t *testing.T) {
	src := "MAIN:\n        frobnicate\n"
	_, err := Compile(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown token") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmptyFileIsUnexpectedEOF(t *testing.T) {
	// A file with no lines never gets past the parser's start-of-file
	// sentinel, so it never reaches a MAIN: header.
	_, err := Compile(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unexpected end of file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBareFunctionBodyIsValid(t *testing.T) {
	src := "MAIN:\n"
	words := mustCompile(t, src)
	want := []uint32{vm.Magic, vm.OpRet}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word[%d] = %#08x, want %#08x", i, words[i], want[i])
		}
	}
}

func TestStringEscapes(t *testing.T) {
	src := "MAIN:\n        \"a\\nb\"\n        puts\n"
	words := mustCompile(t, src)
	// "a\nb" reversed: 'b', '\n', 'a', then terminator at front.
	want := []uint32{vm.Magic, 0x00000000, uint32('b'), uint32('\n'), uint32('a'), vm.OpPuts, vm.OpRet}
	if len(words) != len(want) {
		t.Fatalf("got %#x, want %#x", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word[%d] = %#08x, want %#08x", i, words[i], want[i])
		}
	}
}
