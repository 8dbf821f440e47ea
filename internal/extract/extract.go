// Package extract walks a parsed CAPL source buffer once and produces the
// neutral facts (symbols, includes, references) the rest of the toolchain
// reasons over. It never decides whether a fact is a violation of anything;
// that judgment belongs to the rule packages.
package extract

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
)

// Facts is everything the extractor recovers from one file.
type Facts struct {
	File       string
	Symbols    []model.Symbol
	Includes   []model.Include
	References []model.Reference
}

// eventStartKeywords are the CAPL system events with no subject identifier.
var eventStartKeywords = map[string]bool{
	"start":               true,
	"preStart":            true,
	"stopMeasurement":     true,
	"preStop":             true,
	"preStartMeasurement": true,
}

// Extract performs a single AST walk over result and returns every fact it
// recognizes for file.
func Extract(file string, result *captree.ParseResult) *Facts {
	f := &Facts{File: file}
	root := result.RootNode()

	f.Includes = extractIncludes(file, result, root)

	for _, top := range captree.Children(root) {
		classifyTopLevel(f, file, result, top)
	}

	f.References = extractReferences(file, result, root)
	return f
}

// classifyTopLevel recognizes one direct child of the translation unit. CAPL
// keywords aren't grammar rules, so the classification is positional: the
// node's own text decides what it is, then the C grammar's shape underneath
// is used to pull out identifiers precisely instead of re-splitting text.
func classifyTopLevel(f *Facts, file string, result *captree.ParseResult, node *sitter.Node) {
	if node == nil {
		return
	}
	firstLine := result.FirstLine(node)

	switch {
	case node.Type() == "preproc_include":
		// handled by extractIncludes over the whole tree

	case strings.HasPrefix(firstLine, "variables") && strings.Contains(result.Text(node), "{"):
		extractVariablesBlock(f, file, result, node)

	case strings.HasPrefix(firstLine, "on "):
		extractEventHandler(f, file, result, node, firstLine)

	case strings.HasPrefix(firstLine, "testcase"):
		extractTestcase(f, file, result, node, firstLine)

	case node.Type() == "function_definition":
		extractFunction(f, file, result, node, model.ScopeTopLevel)

	case node.Type() == "enum_specifier":
		extractEnum(f, file, result, node, model.ScopeTopLevel, "")

	case node.Type() == "struct_specifier":
		extractStruct(f, file, result, node, model.ScopeTopLevel, "")

	case node.Type() == "declaration":
		extractTopLevelDeclaration(f, file, result, node)

	case node.Type() == "ERROR":
		// best-effort: nothing recoverable beyond the positional checks above
	}
}

// extractIncludes finds every #include directive anywhere in the tree; the
// C grammar recognizes these regardless of surrounding CAPL syntax.
func extractIncludes(file string, result *captree.ParseResult, root *sitter.Node) []model.Include {
	var out []model.Include
	for _, n := range captree.FindAllByType(root, "preproc_include") {
		targetNode := lastNonKeywordChild(n)
		targetText := ""
		if targetNode != nil {
			targetText = result.Text(targetNode)
		}
		rng := result.RangeFor(n)
		out = append(out, model.Include{
			SourceFile: file,
			TargetText: unquoteIncludeTarget(targetText),
			Range:      rng,
			LineNumber: rng.Start.Row + 1,
			// ResolvedPath is filled in by the caller (batch/store layer),
			// which alone knows the project's include search path.
		})
	}
	return out
}

func lastNonKeywordChild(n *sitter.Node) *sitter.Node {
	var last *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "#include":
			continue
		default:
			last = c
		}
	}
	return last
}

func unquoteIncludeTarget(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		if (text[0] == '"' && text[len(text)-1] == '"') ||
			(text[0] == '<' && text[len(text)-1] == '>') {
			return text[1 : len(text)-1]
		}
	}
	return text
}

// extractVariablesBlock records every declaration found inside the CAPL
// global variables block as globally visible.
func extractVariablesBlock(f *Facts, file string, result *captree.ParseResult, block *sitter.Node) {
	body := findBraceBody(block)
	if body == nil {
		return
	}
	statementsBefore := 0
	for _, stmt := range captree.Children(body) {
		switch stmt.Type() {
		case "{", "}":
			continue
		case "declaration":
			extractVariableDeclaration(f, file, result, stmt, model.ScopeGlobalVariablesBlock, "", 0)
		case "enum_specifier":
			extractEnum(f, file, result, stmt, model.ScopeGlobalVariablesBlock, "")
		case "struct_specifier":
			extractStruct(f, file, result, stmt, model.ScopeGlobalVariablesBlock, "")
		case "comment":
			continue
		default:
			statementsBefore++
		}
	}
}

// findBraceBody returns the compound_statement (or best-effort ERROR block)
// child that represents "{ ... }" beneath node.
func findBraceBody(node *sitter.Node) *sitter.Node {
	if body := captree.FindChildOfType(node, "compound_statement"); body != nil {
		return body
	}
	// Grammar confusion around CAPL keywords sometimes buries the block
	// under an ERROR node instead of recognizing compound_statement.
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "ERROR" {
			if body := captree.FindChildOfType(c, "compound_statement"); body != nil {
				return body
			}
		}
	}
	return nil
}

// extractVariableDeclaration records one or more variables declared by a
// single declaration statement (CAPL allows the same comma-separated forms
// as C, plus its own "message <Type> <name>" and "msTimer <name>" forms).
func extractVariableDeclaration(f *Facts, file string, result *captree.ParseResult, decl *sitter.Node, scope model.DeclaredScope, parent string, statementsBefore int) {
	rng := result.RangeFor(decl)
	typeText := declarationTypeText(result, decl)
	kind := model.KindVariable
	switch typeText {
	case "msTimer", "timer":
		kind = model.KindTimer
	case "message":
		kind = model.KindMessage
	}

	names := declaratorNames(decl)
	if len(names) == 0 {
		// forward function declaration with no body: `void f(int x);`
		if fd := findFunctionDeclarator(decl); fd != nil {
			name := identifierText(result, captree.FindChildOfType(fd, "identifier"))
			if name != "" {
				f.Symbols = append(f.Symbols, model.Symbol{
					Name:                 name,
					Kind:                 model.KindFunction,
					DefiningFile:         file,
					Range:                rng,
					DeclaredInScope:      scope,
					TypeText:             typeText,
					HasBody:              false,
					IsForwardDeclaration: true,
					ParamCount:           paramCount(fd),
					ParentSymbol:         parent,
				})
			}
		}
		return
	}

	for _, nameNode := range names {
		f.Symbols = append(f.Symbols, model.Symbol{
			Name:                    identifierText(result, nameNode),
			Kind:                    kind,
			DefiningFile:            file,
			Range:                   rng,
			DeclaredInScope:         scope,
			TypeText:                typeText,
			ParentSymbol:            parent,
			StatementsBeforeInBlock: statementsBefore,
		})
	}
}

func declarationTypeText(result *captree.ParseResult, decl *sitter.Node) string {
	for i := 0; i < int(decl.ChildCount()); i++ {
		c := decl.Child(i)
		switch c.Type() {
		case "primitive_type", "type_identifier", "sized_type_specifier":
			return result.Text(c)
		case "enum_specifier", "struct_specifier":
			if name := captree.FindChildOfType(c, "type_identifier"); name != nil {
				return result.Text(name)
			}
		}
	}
	return ""
}

func declaratorNames(decl *sitter.Node) []*sitter.Node {
	var names []*sitter.Node
	for i := 0; i < int(decl.ChildCount()); i++ {
		c := decl.Child(i)
		switch c.Type() {
		case "identifier", "field_identifier":
			names = append(names, c)
		case "init_declarator":
			if id := findLeafIdentifier(c); id != nil {
				names = append(names, id)
			}
		case "array_declarator", "pointer_declarator":
			if id := findLeafIdentifier(c); id != nil {
				names = append(names, id)
			}
		}
	}
	return names
}

func findLeafIdentifier(n *sitter.Node) *sitter.Node {
	if n.Type() == "identifier" {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if id := findLeafIdentifier(n.Child(i)); id != nil {
			return id
		}
	}
	return nil
}

func findFunctionDeclarator(n *sitter.Node) *sitter.Node {
	if n.Type() == "function_declarator" {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if fd := findFunctionDeclarator(n.Child(i)); fd != nil {
			return fd
		}
	}
	return nil
}

func paramCount(functionDeclarator *sitter.Node) int {
	params := captree.FindChildOfType(functionDeclarator, "parameter_list")
	if params == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(params.ChildCount()); i++ {
		if params.Child(i).Type() == "parameter_declaration" {
			count++
		}
	}
	return count
}

func identifierText(result *captree.ParseResult, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return result.Text(n)
}

// extractTopLevelDeclaration handles a bare `declaration` node at the top of
// the file, outside any variables block: in valid CAPL this should not
// occur for plain variables (E006) or type definitions (E003); the
// extractor records the fact and location without judgment.
func extractTopLevelDeclaration(f *Facts, file string, result *captree.ParseResult, decl *sitter.Node) {
	extractVariableDeclaration(f, file, result, decl, model.ScopeTopLevel, "", 0)
}

// extractFunction records a plain (non-event, non-testcase) function
// definition.
func extractFunction(f *Facts, file string, result *captree.ParseResult, node *sitter.Node, scope model.DeclaredScope) {
	fd := findFunctionDeclarator(node)
	if fd == nil {
		return
	}
	name := identifierText(result, captree.FindChildOfType(fd, "identifier"))
	if name == "" {
		return
	}
	rng := result.RangeFor(node)
	sym := model.Symbol{
		Name:            name,
		Kind:            model.KindFunction,
		DefiningFile:    file,
		Range:           rng,
		DeclaredInScope: scope,
		TypeText:        declarationTypeText(result, node),
		HasBody:         captree.FindChildOfType(node, "compound_statement") != nil,
		ParamCount:      paramCount(fd),
	}
	f.Symbols = append(f.Symbols, sym)

	if body := findBraceBody(node); body != nil {
		extractBlockLocals(f, file, result, body, name)
	}
}

// extractEventHandler recognizes `on <kind> <subject> { ... }` positionally:
// the subject, when present, is read from the tokens after "on <kind>"
// rather than by walking declarator children, since the C grammar has no
// dedicated node shape for this CAPL-only form.
func extractEventHandler(f *Facts, file string, result *captree.ParseResult, node *sitter.Node, firstLine string) {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(firstLine), "{"))
	if len(fields) < 2 {
		return
	}
	kind := fields[1]

	var name string
	if eventStartKeywords[kind] {
		name = "on " + kind
	} else if len(fields) >= 3 {
		subject := strings.TrimSuffix(fields[2], "(")
		name = "on " + kind + " " + subject
	} else {
		name = "on " + kind
	}

	rng := result.RangeFor(node)
	f.Symbols = append(f.Symbols, model.Symbol{
		Name:            name,
		Kind:            model.KindEventHandler,
		DefiningFile:    file,
		Range:           rng,
		DeclaredInScope: model.ScopeTopLevel,
		HasBody:         true,
	})

	if body := findBraceBody(node); body != nil {
		extractBlockLocals(f, file, result, body, name)
	}
}

// extractTestcase records a `testcase name(...) { ... }` block as a
// function-like entity with its own scope.
func extractTestcase(f *Facts, file string, result *captree.ParseResult, node *sitter.Node, firstLine string) {
	fields := strings.Fields(firstLine)
	name := ""
	if len(fields) >= 2 {
		name = fields[1]
		if idx := strings.IndexByte(name, '('); idx >= 0 {
			name = name[:idx]
		}
	}
	if name == "" {
		return
	}
	rng := result.RangeFor(node)
	f.Symbols = append(f.Symbols, model.Symbol{
		Name:            name,
		Kind:            model.KindTestcase,
		DefiningFile:    file,
		Range:           rng,
		DeclaredInScope: model.ScopeTopLevel,
		HasBody:         true,
	})

	if body := findBraceBody(node); body != nil {
		extractBlockLocals(f, file, result, body, name)
	}
}

// extractBlockLocals walks the direct statements of a block, recording every
// declaration as a local_block fact with the count of executable statements
// that preceded it. Nested blocks are walked the same way, so their
// declarations are local_block facts too; only enum and struct definitions
// found directly in a block are recorded as inside_block.
func extractBlockLocals(f *Facts, file string, result *captree.ParseResult, block *sitter.Node, parent string) {
	statementsBefore := 0
	for _, stmt := range captree.Children(block) {
		switch stmt.Type() {
		case "{", "}":
			continue
		case "declaration":
			extractVariableDeclaration(f, file, result, stmt, model.ScopeLocalBlock, parent, statementsBefore)
		case "enum_specifier":
			extractEnum(f, file, result, stmt, model.ScopeInsideBlock, parent)
		case "struct_specifier":
			extractStruct(f, file, result, stmt, model.ScopeInsideBlock, parent)
		case "compound_statement":
			statementsBefore++
			extractBlockLocals(f, file, result, stmt, parent)
		case "if_statement", "while_statement", "for_statement", "switch_statement":
			statementsBefore++
			for _, nested := range captree.FindAllByType(stmt, "compound_statement") {
				extractBlockLocals(f, file, result, nested, parent)
			}
		case "comment":
			continue
		default:
			statementsBefore++
		}
	}
}

func extractEnum(f *Facts, file string, result *captree.ParseResult, node *sitter.Node, scope model.DeclaredScope, parent string) {
	nameNode := captree.FindChildOfType(node, "type_identifier")
	name := identifierText(result, nameNode)
	rng := result.RangeFor(node)
	f.Symbols = append(f.Symbols, model.Symbol{
		Name:            name,
		Kind:            model.KindEnum,
		DefiningFile:    file,
		Range:           rng,
		DeclaredInScope: scope,
		ParentSymbol:    parent,
	})

	if body := captree.FindChildOfType(node, "enumerator_list"); body != nil {
		for _, enumerator := range captree.FindAllByType(body, "enumerator") {
			id := captree.FindChildOfType(enumerator, "identifier")
			if id == nil {
				continue
			}
			f.Symbols = append(f.Symbols, model.Symbol{
				Name:            identifierText(result, id),
				Kind:            model.KindEnumMember,
				DefiningFile:    file,
				Range:           result.RangeFor(enumerator),
				DeclaredInScope: scope,
				ParentSymbol:    name,
			})
		}
	}
}

func extractStruct(f *Facts, file string, result *captree.ParseResult, node *sitter.Node, scope model.DeclaredScope, parent string) {
	nameNode := captree.FindChildOfType(node, "type_identifier")
	name := identifierText(result, nameNode)
	rng := result.RangeFor(node)
	f.Symbols = append(f.Symbols, model.Symbol{
		Name:            name,
		Kind:            model.KindStruct,
		DefiningFile:    file,
		Range:           rng,
		DeclaredInScope: scope,
		ParentSymbol:    parent,
	})

	if body := captree.FindChildOfType(node, "field_declaration_list"); body != nil {
		for _, field := range captree.FindAllByType(body, "field_declaration") {
			for _, id := range declaratorNames(field) {
				f.Symbols = append(f.Symbols, model.Symbol{
					Name:            identifierText(result, id),
					Kind:            model.KindStructMember,
					DefiningFile:    file,
					Range:           result.RangeFor(field),
					DeclaredInScope: scope,
					TypeText:        declarationTypeText(result, field),
					ParentSymbol:    name,
				})
			}
		}
	}
}

// extractReferences finds identifier usage sites: calls, plain reads,
// assignment targets, and member accesses. Declaration sites, function
// names being defined, and parameter names are excluded so the reference
// set reflects usage, not declaration.
func extractReferences(file string, result *captree.ParseResult, root *sitter.Node) []model.Reference {
	var out []model.Reference
	for n, _ := range captree.Walk(root) {
		if n.Type() != "identifier" {
			continue
		}
		parent := n.Parent()
		if parent == nil || !isActualUsage(parent, n) {
			continue
		}
		out = append(out, model.Reference{
			File:            file,
			Range:           result.RangeFor(n),
			ReferencedName:  result.Text(n),
			Context:         referenceContext(result, parent, n),
			EnclosingSymbol: enclosingSymbolName(result, n),
		})
	}
	return out
}

func isActualUsage(parent *sitter.Node, n *sitter.Node) bool {
	switch parent.Type() {
	case "declaration", "parameter_declaration", "field_declaration", "function_declarator":
		return false
	case "init_declarator", "array_declarator", "pointer_declarator":
		// Only the declared name is a declaration site; an initializer value
		// or an array size is a read.
		if decl := parent.ChildByFieldName("declarator"); decl != nil && decl == n {
			return false
		}
	case "field_expression":
		if field := parent.ChildByFieldName("field"); field != nil && field == n {
			return false
		}
	}
	return true
}

// timerFunctions are the CAPL builtins that take a timer symbol as an
// argument; a timer named in their argument list gets timer_set context
// instead of read, which W003 uses to check timer-handler discipline.
var timerFunctions = map[string]bool{
	"setTimer":       true,
	"setTimerCyclic": true,
	"cancelTimer":    true,
}

func referenceContext(result *captree.ParseResult, parent *sitter.Node, n *sitter.Node) model.ReferenceContext {
	switch parent.Type() {
	case "call_expression":
		if fn := parent.ChildByFieldName("function"); fn != nil && fn == n {
			return model.ContextCall
		}
		if args := parent.ChildByFieldName("arguments"); args != nil {
			funcName := ""
			if fn := parent.ChildByFieldName("function"); fn != nil {
				funcName = result.Text(fn)
			}
			if timerFunctions[funcName] && nodeWithin(args, n) {
				return model.ContextTimerSet
			}
		}
	case "argument_list":
		if call := parent.Parent(); call != nil && call.Type() == "call_expression" {
			if fn := call.ChildByFieldName("function"); fn != nil && timerFunctions[result.Text(fn)] {
				return model.ContextTimerSet
			}
		}
	case "assignment_expression":
		if left := parent.ChildByFieldName("left"); left != nil && left == n {
			return model.ContextWrite
		}
	case "field_expression":
		return model.ContextMemberAccess
	}
	return model.ContextRead
}

func nodeWithin(container *sitter.Node, n *sitter.Node) bool {
	return n.StartByte() >= container.StartByte() && n.EndByte() <= container.EndByte()
}

func enclosingSymbolName(result *captree.ParseResult, n *sitter.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "function_definition" {
			if fd := findFunctionDeclarator(p); fd != nil {
				return identifierText(result, captree.FindChildOfType(fd, "identifier"))
			}
		}
	}
	return ""
}

// FormatLine renders a 1-based line number the way reports expect.
func FormatLine(row int) string {
	return strconv.Itoa(row + 1)
}
