package cypher

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// cypherLexer mirrors the teacher's dslLexer shape (Keyword/Float/Int/
// String/Ident/Punct/Whitespace) extended with a Comment rule and an Op
// rule for the multi-character tokens the pattern/comparison grammar needs
// ("--", "..", "<>", "==", "<=", ">=", "!="). Arrow heads stay separate
// "<"/">" Punct tokens so "-[...]->", "<-[...]-", "-->" and "<--" all lex
// into the pieces the edge-pattern grammar expects.
var cypherLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Keyword", Pattern: `(?i)\b(MATCH|WHERE|RETURN|ORDER|BY|SKIP|LIMIT|DISTINCT|AS|AND|OR|NOT|EXISTS|IS|IN|CONTAINS|STARTS|ENDS|WITH|NULL|TRUE|FALSE|ASC|DESC|COUNT|SUM|AVG|MIN|MAX)\b`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `"([^"\\]|\\.)*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `--|\.\.|<>|==|<=|>=|!=`},
	{Name: "Punct", Pattern: `[(){}\[\]:,.\-<>=*|]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// grammarQuery is the raw participle-tagged grammar. convert.go translates
// it into the clean Query AST the rest of the engine consumes, the way the
// teacher's convertGrammar separates lexical/grammar concerns from the
// domain AST.
type grammarQuery struct {
	Matches []*grammarMatch   `parser:"@@+"`
	Where   *grammarBoolExpr  `parser:"( \"WHERE\" @@ )?"`
	Return  *grammarReturn    `parser:"@@"`
	OrderBy []*grammarOrderBy `parser:"( \"ORDER\" \"BY\" @@ ( \",\" @@ )* )?"`
	Skip    *int64            `parser:"( \"SKIP\" @Int )?"`
	Limit   *int64            `parser:"( \"LIMIT\" @Int )?"`
}

type grammarMatch struct {
	PathName string          `parser:"\"MATCH\" ( @Ident \"=\" )?"`
	First    *grammarNodePat `parser:"@@"`
	Hops     []*grammarHop   `parser:"@@*"`
}

type grammarHop struct {
	Edge *grammarEdgePat `parser:"@@"`
	Node *grammarNodePat `parser:"@@"`
}

type grammarNodePat struct {
	Name  string         `parser:"\"(\" @Ident?"`
	Type  string         `parser:"( \":\" @Ident )?"`
	Props []*grammarProp `parser:"( \"{\" @@ ( \",\" @@ )* \"}\" )? \")\""`
}

type grammarProp struct {
	Key   string        `parser:"@Ident \":\""`
	Value *grammarValue `parser:"@@"`
}

// grammarEdgePat covers both "(<)?--(>)? " and "(<)?-[...]-(>)?" forms.
type grammarEdgePat struct {
	Left    bool               `parser:"@\"<\"?"`
	Bare    bool               `parser:"(  @\"--\""`
	Bracket *grammarBracketRel `parser:" | \"-\" @@ \"-\" )"`
	Right   bool               `parser:"@\">\"?"`
}

type grammarBracketRel struct {
	Name  string          `parser:"\"[\" @Ident?"`
	Types []string        `parser:"( \":\" @Ident ( \"|\" @Ident )* )?"`
	Hop   *grammarHopSpec `parser:"@@? \"]\""`
}

type grammarHopSpec struct {
	Min int64  `parser:"\"*\" @Int"`
	Max *int64 `parser:"( \"..\" @Int )?"`
}

type grammarValue struct {
	Str   *string  `parser:"  @String"`
	Float *float64 `parser:"| @Float"`
	Int   *int64   `parser:"| @Int"`
	Null  bool     `parser:"| @\"NULL\""`
	True  bool     `parser:"| @\"TRUE\""`
	False bool     `parser:"| @\"FALSE\""`
}

type grammarAttrPath struct {
	Var  string  `parser:"@Ident"`
	Attr *string `parser:"( \".\" @Ident )?"`
}

type grammarOperand struct {
	IdFn     *string          `parser:"(  \"id\" \"(\" @Ident \")\""`
	List     []*grammarValue  `parser:" | \"[\" ( @@ ( \",\" @@ )* )? \"]\""`
	AttrPath *grammarAttrPath `parser:" | @@"`
	Value    *grammarValue    `parser:" | @@ )"`
}

type grammarOperator struct {
	Eq         bool `parser:"(  @\"==\""`
	Eq1        bool `parser:" | @\"=\""`
	Neq        bool `parser:" | @\"<>\""`
	Neq1       bool `parser:" | @\"!=\""`
	Lte        bool `parser:" | @\"<=\""`
	Gte        bool `parser:" | @\">=\""`
	Lt         bool `parser:" | @\"<\""`
	Gt         bool `parser:" | @\">\""`
	Is         bool `parser:" | @\"IS\""`
	In         bool `parser:" | @\"IN\""`
	Contains   bool `parser:" | @\"CONTAINS\""`
	StartsWith bool `parser:" | @( \"STARTS\" \"WITH\" )"`
	EndsWith   bool `parser:" | @( \"ENDS\" \"WITH\" ) )"`
}

type grammarCmp struct {
	LHS *grammarOperand  `parser:"@@"`
	Op  *grammarOperator `parser:"@@"`
	RHS *grammarOperand  `parser:"@@"`
}

type grammarExists struct {
	Sub *grammarQuery `parser:"\"EXISTS\" \"{\" @@ \"}\""`
}

type grammarPrimary struct {
	Paren  *grammarBoolExpr `parser:"(  \"(\" @@ \")\""`
	Exists *grammarExists   `parser:" | @@"`
	Cmp    *grammarCmp      `parser:" | @@ )"`
}

type grammarNotExpr struct {
	Not     bool             `parser:"@\"NOT\"?"`
	Primary *grammarPrimary  `parser:"@@"`
}

type grammarAndExpr struct {
	Left *grammarNotExpr   `parser:"@@"`
	Rest []*grammarNotExpr `parser:"( \"AND\" @@ )*"`
}

type grammarBoolExpr struct {
	Left *grammarAndExpr   `parser:"@@"`
	Rest []*grammarAndExpr `parser:"( \"OR\" @@ )*"`
}

type grammarAgg struct {
	Count bool             `parser:"(  @\"COUNT\""`
	Sum   bool             `parser:" | @\"SUM\""`
	Avg   bool             `parser:" | @\"AVG\""`
	Min   bool             `parser:" | @\"MIN\""`
	Max   bool             `parser:" | @\"MAX\" )"`
	Path  *grammarAttrPath `parser:"\"(\" @@ \")\""`
}

type grammarReturnItem struct {
	Agg      *grammarAgg      `parser:"(  @@"`
	IdFn     *string          `parser:" | \"id\" \"(\" @Ident \")\""`
	AttrPath *grammarAttrPath `parser:" | @@ )"`
	Alias    *string          `parser:"( \"AS\" @Ident )?"`
}

type grammarReturn struct {
	Distinct bool                 `parser:"\"RETURN\" @\"DISTINCT\"?"`
	Items    []*grammarReturnItem `parser:"@@ ( \",\" @@ )*"`
}

type grammarOrderBy struct {
	Agg      *grammarAgg      `parser:"(  @@"`
	AttrPath *grammarAttrPath `parser:" | @@ )"`
	Desc     bool             `parser:"( @\"DESC\" | \"ASC\" )?"`
}

var cypherParser = participle.MustBuild[grammarQuery](
	participle.Lexer(cypherLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)
