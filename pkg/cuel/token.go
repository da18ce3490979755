package cuel

import (
	"regexp"

	"github.com/rmay/cuel/pkg/vm"
)

// tokenType names the grammatical class of a matched line. The values
// double as the admissibility sets' vocabulary: "what type of line can
// legally precede a line of this type."
type tokenType string

const (
	tokBegin   tokenType = "begin"
	tokEnd     tokenType = "end"
	tokString  tokenType = "string"
	tokNumber  tokenType = "number"
	tokMain    tokenType = "main"
	tokFunc    tokenType = "func"
	tokNewLine tokenType = "new-line"
	tokCal     tokenType = "cal"
	tokCaz     tokenType = "caz"
	tokCnz     tokenType = "cnz"
	tokCgz     tokenType = "cgz"
	tokClz     tokenType = "clz"
	tokSwp     tokenType = "swp"
	tokSwx     tokenType = "swx"
	tokRcw     tokenType = "rcw"
	tokRcc     tokenType = "rcc"
	tokPop     tokenType = "pop"
	tokDup     tokenType = "dup"
	tokNeg     tokenType = "neg"
	tokAdd     tokenType = "+"
	tokMul     tokenType = "*"
	tokDiv     tokenType = "/"
	tokSub     tokenType = "-"
	tokMod     tokenType = "%"
	tokGetn    tokenType = "getn"
	tokPutn    tokenType = "putn"
	tokPuts    tokenType = "puts"
)

// admissibility is the (polarity, set) predecessor-type predicate
// described by the token table: a line of this type is admissible only
// when whether its predecessor's type is a member of set agrees with
// inclusive.
type admissibility struct {
	inclusive bool
	set       map[tokenType]bool
}

func (a admissibility) allows(prev tokenType) bool {
	return a.inclusive == a.set[prev]
}

func inSet(types ...tokenType) map[tokenType]bool {
	m := make(map[tokenType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// callScope is the admissibility shared by every opcode-producing line
// (string, number, and all opcode mnemonics): the predecessor must not
// be a blank line or the sentinel "begin" — i.e. every instruction must
// sit inside some function body, never floating before the first header.
var callScope = admissibility{inclusive: false, set: inSet(tokNewLine, tokBegin)}

// blockBoundary is "new-line"'s own admissibility: a blank line never
// immediately follows another blank line, a header with no body, or the
// very start of the file.
var blockBoundary = admissibility{inclusive: false, set: inSet(tokNewLine, tokBegin, tokMain, tokFunc)}

// endBoundary is the synthetic end-of-file token's admissibility. Unlike
// new-line, end tolerates closing a function body directly (no blank
// line required first, confirmed by the worked hello-world example
// whose bytecode has exactly one trailing ret) and tolerates a bare
// header with no body at all; the only inadmissible predecessor is the
// parser's own start-of-file sentinel, meaning the file never reached a
// MAIN: header before running out of lines.
var endBoundary = admissibility{inclusive: false, set: inSet(tokBegin)}

// rule is one entry of the token table: a regular expression matched
// against a full source line (including its trailing newline), the
// admissibility predicate checked against the previous token, an error
// message for admissibility failure, and the semantic action that
// updates the compiler state when the line matches.
type rule struct {
	typ    tokenType
	re     *regexp.Regexp
	admiss admissibility
	errMsg string
	action action
}

// action is a semantic action: given the compiler and the regex
// submatches of the matched line, update compiler state (emit words,
// record a definition or call site) or fail with a *SyntaxError.
type action func(c *compiler, m []string) error

func mnemonicRule(typ tokenType, mnemonic string, word uint32) *rule {
	pattern := `^ {8}` + regexp.QuoteMeta(mnemonic) + `\n$`
	return &rule{
		typ:    typ,
		re:     regexp.MustCompile(pattern),
		admiss: callScope,
		errMsg: "function call out of scope",
		action: emitWord(word),
	}
}

func callRule(typ tokenType, mnemonic string, op uint32) *rule {
	pattern := `^ {8}` + regexp.QuoteMeta(mnemonic) + ` ([A-Z]([A-Z0-9-]*[A-Z0-9])*)\n$`
	return &rule{
		typ:    typ,
		re:     regexp.MustCompile(pattern),
		admiss: callScope,
		errMsg: "function call out of scope",
		action: emitCall(op),
	}
}

// rules is the declarative token table, in first-match-wins order,
// exactly as spec.md §4.1 enumerates it. "begin" and "end" are not
// matched against source lines; they are the parser's synthetic start
// and end-of-file sentinels and are handled directly by the parser.
func rules() []*rule {
	return []*rule{
		{
			typ:    tokString,
			re:     regexp.MustCompile(`^ {8}"(.*)"\n$`),
			admiss: callScope,
			errMsg: "function call out of scope",
			action: emitString,
		},
		{
			typ:    tokNumber,
			re:     regexp.MustCompile(`^ {8}([0-9]{1,10})\n$`),
			admiss: callScope,
			errMsg: "function call out of scope",
			action: emitNumber,
		},
		{
			typ:    tokMain,
			re:     regexp.MustCompile(`^MAIN:\n$`),
			admiss: admissibility{inclusive: true, set: inSet(tokBegin)},
			errMsg: "misplaced MAIN's definition",
			action: defineMain,
		},
		{
			typ:    tokFunc,
			re:     regexp.MustCompile(`^([A-Z]([A-Z0-9-]{0,45}[A-Z0-9])?):\n$`),
			admiss: admissibility{inclusive: true, set: inSet(tokNewLine)},
			errMsg: "missing an empty line before function definition",
			action: defineFunc,
		},
		{
			typ:    tokNewLine,
			re:     regexp.MustCompile(`^\n$`),
			admiss: blockBoundary,
			errMsg: "misplaced empty line",
			action: emitWord(vm.OpRet),
		},

		callRule(tokCal, "cal", vm.OpCal),
		callRule(tokCaz, "caz", vm.OpCaz),
		callRule(tokCnz, "cnz", vm.OpCnz),
		callRule(tokCgz, "cgz", vm.OpCgz),
		callRule(tokClz, "clz", vm.OpClz),

		mnemonicRule(tokSwp, "swp", vm.OpSwp),
		mnemonicRule(tokSwx, "swx", vm.OpSwx),
		mnemonicRule(tokRcw, "rcw", vm.OpRcw),
		mnemonicRule(tokRcc, "rcc", vm.OpRcc),

		mnemonicRule(tokPop, "pop", vm.OpPop),
		mnemonicRule(tokDup, "dup", vm.OpDup),

		mnemonicRule(tokNeg, "neg", vm.OpNeg),
		mnemonicRule(tokAdd, "+", vm.OpAdd),
		mnemonicRule(tokMul, "*", vm.OpMul),
		mnemonicRule(tokDiv, "/", vm.OpDiv),
		mnemonicRule(tokSub, "-", vm.OpSub),
		mnemonicRule(tokMod, "%", vm.OpMod),

		mnemonicRule(tokGetn, "getn", vm.OpGetn),
		mnemonicRule(tokPutn, "putn", vm.OpPutn),
		mnemonicRule(tokPuts, "puts", vm.OpPuts),
	}
}

// endRule is the synthetic token run once after the last line of the
// file (or immediately, for an empty file) to make sure the file
// reached at least a MAIN: header before running out of lines.
func endRule() *rule {
	return &rule{
		typ:    tokEnd,
		admiss: endBoundary,
		errMsg: "unexpected end of file",
		action: emitWord(vm.OpRet),
	}
}
