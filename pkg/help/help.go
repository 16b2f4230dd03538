// Package help holds the reference text printed by `mml help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/miniml/pkg/ast"
)

// Version is the language reference version.
const Version = "v0.1"

// QUICKREF is the overview printed by `mml help` with no topic.
var QUICKREF = `MiniML ` + Version + ` quick reference

Programs are JSON expression trees. A file holds one tree or an array of trees;
each tree is evaluated in order and printed as "val - = <value>".

  {"kind":"BinOp","op":"+","left":{"kind":"ILit","value":23},"right":{"kind":"ILit","value":19}}
  => val - = 42

Values: int (64-bit, wraps on overflow) and bool.
Operators: + * <    Conditional: IfExp (only the chosen branch runs)

Topics (mml help <topic>, prefixes accepted):
  syntax  types  env  diagnostics  cli  config  server  examples
`

// TopicList is the display order of Topics.
var TopicList = []string{"syntax", "types", "env", "diagnostics", "cli", "config", "server", "examples"}

// Topics maps topic names to their reference text.
var Topics = map[string]string{
	"syntax": `Node kinds
  {"kind":"Var","name":"x"}
  {"kind":"ILit","value":7}
  {"kind":"BLit","value":true}
  {"kind":"BinOp","op":"+|*|<","left":<exp>,"right":<exp>}
  {"kind":"IfExp","cond":<exp>,"then":<exp>,"else":<exp>}
Every field is required. Unknown kinds and operators are decode errors (E_DECODE).`,

	"types": `int   64-bit two's complement; + and * wrap around on overflow
bool  true or false
+ and * take two ints and give an int; < takes two ints and gives a bool.
The condition of IfExp must be a bool; the branches may differ in type.`,

	"env": `Names are looked up in the session environment, most recent binding first,
so a later binding shadows an earlier one of the same name.
Bare expressions bind nothing: the environment is unchanged after each program.
Initial bindings come from the "bindings" list in the config file.`,

	"diagnostics": `E_DECODE   the JSON is not a valid program tree
E_UNBOUND  a Var names nothing in the environment ("Variable not bound: x")
E_TYPE     an operator or condition got the wrong kind of value
E_IO       a file could not be read
Diagnostics carry a path into the tree, e.g. $.left.cond or $[2].right.`,

	"cli": `mml repl                       interactive session; empty line runs 23 + 19
mml run <file|-> [--json] [--trace <path>]
mml check <file|-> [--pretty]  static checks only, exit 2 on findings
mml fmt <file|->               print programs in infix notation
mml trace <file.jsonl> [--text]
mml serve [--addr host:port]   websocket sessions on /ws
Exit codes: 0 ok, 1 usage or I/O, 2 decode or check findings, 4 evaluation error.`,

	"config": `Searched in order: ./.mmlrc.json, ~/.mml/config.json, built-in defaults.
  {"prompt":"# ","log_level":"warn","listen_addr":"127.0.0.1:7420",
   "history_file":".mml_history","bindings":[{"name":"x","value":10}]}`,

	"server": `Connect a websocket to /ws. Each text message is one program tree; each reply is
  {"ok":true,"name":"-","value":42,"text":"val - = 42"}
or on failure
  {"ok":false,"text":"error!: ...","code":"E_TYPE","error":"...","path":"$.cond"}
GET /healthz answers {"status":"ok"}.`,

	"examples": `if 1 < 2 then 10 else x
  {"kind":"IfExp","cond":{"kind":"BinOp","op":"<","left":{"kind":"ILit","value":1},"right":{"kind":"ILit","value":2}},
   "then":{"kind":"ILit","value":10},"else":{"kind":"Var","name":"x"}}
  => val - = 10   (x is never looked up)
true + 1
  => error!: Both arguments must be integer: +`,
}

// MatchTopic resolves query to a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return "", "", fmt.Errorf("empty topic")
	}
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q; available: %s", query, strings.Join(TopicList, ", "))
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
}

// OperatorIndex lists the primitive operators.
func OperatorIndex() string {
	ops := []ast.BinaryOp{ast.OpPlus, ast.OpMult, ast.OpLt}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })

	var b strings.Builder
	for _, op := range ops {
		result := "int"
		if op == ast.OpLt {
			result = "bool"
		}
		fmt.Fprintf(&b, "  %s : int -> int -> %s\n", op, result)
	}
	fmt.Fprintf(&b, "Total: %d operators\n", len(ops))
	return b.String()
}
