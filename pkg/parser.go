package calx

import (
	"fmt"
	"sort"
	"strings"
)

type Assoc int

const (
	AssocLeft Assoc = iota
	AssocRight
	AssocNonAssoc
)

// PrecedenceLevel groups operator tokens that bind equally tightly.
// Grammar.Precedence lists levels from loosest to tightest.
type PrecedenceLevel struct {
	Assoc  Assoc
	Tokens []TokenType
}

// Match is one matched symbol handed to a Reducer: a shifted token or the
// expression built for a nonterminal.
type Match struct {
	Tok  Token
	Expr Expr
}

type Reducer func(m []Match) (Expr, error)

// Rule is a production Name -> Pattern. Pattern entries are token names
// (INTEGER, LPAREN, ...) or rule names.
type Rule struct {
	Name    string
	Pattern []string
	Reduce  Reducer
}

type Grammar struct {
	Start      string
	Precedence []PrecedenceLevel
	Rules      []Rule
}

// operatorTokens must all be given a precedence by every grammar, whether or
// not its rules use them.
var operatorTokens = []TokenType{TokenPlus, TokenMinus, TokenMul, TokenDiv, TokenMod, TokenPow}

type actionKind int

const (
	actionShift actionKind = iota + 1
	actionReduce
	actionAccept
	actionError
)

type action struct {
	kind   actionKind
	target int
}

// production is a Rule with its symbols resolved. Terminals are TokenType
// values; nonterminals are numbered from tokenTypeCount upwards.
type production struct {
	lhs    int
	rhs    []int
	reduce Reducer
	prec   int
}

type precedence struct {
	level int
	assoc Assoc
}

// Parser is an SLR(1) shift-reduce parser. Its tables are built once by
// NewParser and never modified, so a Parser may be shared between
// goroutines.
type Parser struct {
	prods    []production
	names    []string
	actions  []map[TokenType]action
	gotos    []map[int]int
	tokPrec  map[TokenType]precedence
	terminal map[TokenType]bool
}

func NewParser(g Grammar) (*Parser, error) {
	p := &Parser{
		tokPrec:  make(map[TokenType]precedence),
		terminal: make(map[TokenType]bool),
	}

	if err := p.resolve(g); err != nil {
		return nil, err
	}

	states, transitions := p.itemSets()
	follow := p.followSets()

	p.actions = make([]map[TokenType]action, len(states))
	p.gotos = make([]map[int]int, len(states))

	for i, state := range states {
		p.actions[i] = make(map[TokenType]action)
		p.gotos[i] = make(map[int]int)

		for sym, target := range transitions[i] {
			if p.isTerminal(sym) {
				p.actions[i][TokenType(sym)] = action{actionShift, target}
			} else {
				p.gotos[i][sym] = target
			}
		}

		for _, it := range state {
			prod := p.prods[it.prod]
			if it.dot < len(prod.rhs) {
				continue
			}

			if it.prod == 0 {
				p.actions[i][TokenEOF] = action{kind: actionAccept}
				continue
			}

			for tok := range follow[prod.lhs] {
				if err := p.addReduce(i, tok, it.prod); err != nil {
					return nil, err
				}
			}
		}

		for tok, act := range p.actions[i] {
			if act.kind == actionError {
				delete(p.actions[i], tok)
			}
		}
	}

	return p, nil
}

// resolve checks the grammar and numbers its symbols. Production 0 is the
// augmented start rule.
func (p *Parser) resolve(g Grammar) error {
	nonterminals := map[string]int{}
	p.names = []string{"$start"}
	nonterminals["$start"] = int(tokenTypeCount)

	for _, r := range g.Rules {
		if r.Reduce == nil {
			return &GrammarError{fmt.Sprintf("rule %s -> %s has no reducer", r.Name, strings.Join(r.Pattern, " "))}
		}

		if _, ok := tokenTypeByName(r.Name); ok {
			return &GrammarError{fmt.Sprintf("rule name %s is a token name", r.Name)}
		}

		if _, ok := nonterminals[r.Name]; !ok {
			nonterminals[r.Name] = int(tokenTypeCount) + len(p.names)
			p.names = append(p.names, r.Name)
		}
	}

	start, ok := nonterminals[g.Start]
	if !ok || g.Start == "$start" {
		return &GrammarError{fmt.Sprintf("start symbol %q has no rules", g.Start)}
	}

	for level, lvl := range g.Precedence {
		for _, tok := range lvl.Tokens {
			if _, dup := p.tokPrec[tok]; dup {
				return &GrammarError{fmt.Sprintf("token %s has more than one precedence", tok)}
			}

			p.tokPrec[tok] = precedence{level: level + 1, assoc: lvl.Assoc}
		}
	}

	for _, tok := range operatorTokens {
		if _, ok := p.tokPrec[tok]; !ok {
			return &GrammarError{fmt.Sprintf("operator %s has no precedence", tok)}
		}
	}

	p.prods = append(p.prods, production{lhs: int(tokenTypeCount), rhs: []int{start}})

	for _, r := range g.Rules {
		prod := production{
			lhs:    nonterminals[r.Name],
			reduce: r.Reduce,
		}

		for _, sym := range r.Pattern {
			if id, ok := nonterminals[sym]; ok {
				prod.rhs = append(prod.rhs, id)
				continue
			}

			tok, ok := tokenTypeByName(sym)
			if !ok || tok == TokenEOF {
				return &GrammarError{fmt.Sprintf("rule %s uses unknown symbol %s", r.Name, sym)}
			}

			p.terminal[tok] = true
			prod.rhs = append(prod.rhs, int(tok))
			if pr, ok := p.tokPrec[tok]; ok {
				prod.prec = pr.level
			}
		}

		p.prods = append(p.prods, prod)
	}

	return nil
}

func (p *Parser) isTerminal(sym int) bool {
	return sym < int(tokenTypeCount)
}

func (p *Parser) symbolName(sym int) string {
	if p.isTerminal(sym) {
		return TokenType(sym).String()
	}

	return p.names[sym-int(tokenTypeCount)]
}

type item struct {
	prod int
	dot  int
}

type itemSet []item

func (s itemSet) key() string {
	var str strings.Builder
	for _, it := range s {
		fmt.Fprintf(&str, "%d.%d;", it.prod, it.dot)
	}

	return str.String()
}

func (p *Parser) closure(kernel []item) itemSet {
	seen := map[item]bool{}
	set := itemSet{}

	var add func(it item)
	add = func(it item) {
		if seen[it] {
			return
		}

		seen[it] = true
		set = append(set, it)

		rhs := p.prods[it.prod].rhs
		if it.dot >= len(rhs) || p.isTerminal(rhs[it.dot]) {
			return
		}

		for i, prod := range p.prods {
			if prod.lhs == rhs[it.dot] {
				add(item{i, 0})
			}
		}
	}

	for _, it := range kernel {
		add(it)
	}

	sort.Slice(set, func(i, j int) bool {
		if set[i].prod != set[j].prod {
			return set[i].prod < set[j].prod
		}

		return set[i].dot < set[j].dot
	})

	return set
}

// itemSets builds the canonical LR(0) collection and its transitions.
func (p *Parser) itemSets() ([]itemSet, []map[int]int) {
	states := []itemSet{p.closure([]item{{0, 0}})}
	index := map[string]int{states[0].key(): 0}
	transitions := []map[int]int{{}}

	for i := 0; i < len(states); i++ {
		var order []int
		kernels := map[int][]item{}

		for _, it := range states[i] {
			rhs := p.prods[it.prod].rhs
			if it.dot >= len(rhs) {
				continue
			}

			sym := rhs[it.dot]
			if _, ok := kernels[sym]; !ok {
				order = append(order, sym)
			}

			kernels[sym] = append(kernels[sym], item{it.prod, it.dot + 1})
		}

		for _, sym := range order {
			next := p.closure(kernels[sym])
			k := next.key()

			j, ok := index[k]
			if !ok {
				j = len(states)
				index[k] = j
				states = append(states, next)
				transitions = append(transitions, map[int]int{})
			}

			transitions[i][sym] = j
		}
	}

	return states, transitions
}

func (p *Parser) followSets() map[int]map[TokenType]bool {
	nullable := map[int]bool{}
	first := map[int]map[TokenType]bool{}
	follow := map[int]map[TokenType]bool{}

	for _, prod := range p.prods {
		first[prod.lhs] = map[TokenType]bool{}
		follow[prod.lhs] = map[TokenType]bool{}
	}

	follow[int(tokenTypeCount)][TokenEOF] = true

	// firstOf adds FIRST(syms) to dst and reports whether syms is nullable.
	firstOf := func(syms []int, dst map[TokenType]bool) (bool, bool) {
		changed := false
		for _, sym := range syms {
			if p.isTerminal(sym) {
				if !dst[TokenType(sym)] {
					dst[TokenType(sym)] = true
					changed = true
				}

				return false, changed
			}

			for tok := range first[sym] {
				if !dst[tok] {
					dst[tok] = true
					changed = true
				}
			}

			if !nullable[sym] {
				return false, changed
			}
		}

		return true, changed
	}

	for changed := true; changed; {
		changed = false
		for _, prod := range p.prods {
			isNullable, grew := firstOf(prod.rhs, first[prod.lhs])
			changed = changed || grew

			if isNullable && !nullable[prod.lhs] {
				nullable[prod.lhs] = true
				changed = true
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, prod := range p.prods {
			for i, sym := range prod.rhs {
				if p.isTerminal(sym) {
					continue
				}

				restNullable, grew := firstOf(prod.rhs[i+1:], follow[sym])
				changed = changed || grew

				if restNullable {
					for tok := range follow[prod.lhs] {
						if !follow[sym][tok] {
							follow[sym][tok] = true
							changed = true
						}
					}
				}
			}
		}
	}

	return follow
}

// addReduce records a reduce action, settling conflicts with an existing
// shift through operator precedence and associativity.
func (p *Parser) addReduce(state int, tok TokenType, prod int) error {
	existing, ok := p.actions[state][tok]
	if !ok {
		p.actions[state][tok] = action{actionReduce, prod}
		return nil
	}

	switch existing.kind {
	case actionReduce:
		return &GrammarError{fmt.Sprintf("reduce/reduce conflict on %s between %s and %s",
			tok, p.describe(existing.target), p.describe(prod))}
	case actionError:
		return nil
	}

	tokPrec, hasTok := p.tokPrec[tok]
	rulePrec := p.prods[prod].prec
	if !hasTok || rulePrec == 0 {
		return &GrammarError{fmt.Sprintf("shift/reduce conflict on %s with %s", tok, p.describe(prod))}
	}

	switch {
	case tokPrec.level > rulePrec:
		// keep the shift
	case tokPrec.level < rulePrec:
		p.actions[state][tok] = action{actionReduce, prod}
	case tokPrec.assoc == AssocLeft:
		p.actions[state][tok] = action{actionReduce, prod}
	case tokPrec.assoc == AssocNonAssoc:
		p.actions[state][tok] = action{kind: actionError}
	}

	return nil
}

func (p *Parser) describe(prod int) string {
	var syms []string
	for _, sym := range p.prods[prod].rhs {
		syms = append(syms, p.symbolName(sym))
	}

	return fmt.Sprintf("%s -> %s", p.symbolName(p.prods[prod].lhs), strings.Join(syms, " "))
}

// Accepts reports whether the grammar uses tok anywhere.
func (p *Parser) Accepts(tok TokenType) bool {
	return p.terminal[tok]
}

func (p *Parser) expected(state int) []TokenType {
	var toks []TokenType
	for tok := range p.actions[state] {
		toks = append(toks, tok)
	}

	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })
	return toks
}

type frame struct {
	state int
	match Match
}

// Parse reads tokens until one complete expression followed by EOF has been
// recognised. Lexer errors are returned unchanged.
func (p *Parser) Parse(tokenizer Tokenizer) (Expr, error) {
	stack := []frame{{state: 0}}

	tok, err := tokenizer.Next()
	if err != nil {
		return nil, err
	}

	for {
		state := stack[len(stack)-1].state

		act, ok := p.actions[state][tok.Typ]
		if !ok {
			return nil, &ParseError{
				Token:    tok,
				Expected: p.expected(state),
				State:    state,
			}
		}

		switch act.kind {
		case actionShift:
			stack = append(stack, frame{state: act.target, match: Match{Tok: tok}})

			if tok, err = tokenizer.Next(); err != nil {
				return nil, err
			}
		case actionReduce:
			prod := p.prods[act.target]
			n := len(prod.rhs)

			matches := make([]Match, n)
			for i, f := range stack[len(stack)-n:] {
				matches[i] = f.match
			}

			expr, err := prod.reduce(matches)
			if err != nil {
				return nil, err
			}

			stack = stack[:len(stack)-n]
			next := p.gotos[stack[len(stack)-1].state][prod.lhs]
			stack = append(stack, frame{state: next, match: Match{Expr: expr}})
		case actionAccept:
			return stack[len(stack)-1].match.Expr, nil
		}
	}
}
