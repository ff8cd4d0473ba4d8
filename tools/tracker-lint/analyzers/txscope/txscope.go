// Package txscope detects database calls that bypass the transaction inside
// a RunInTx callback.
package txscope

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer reports method calls on the RunInTx receiver made from inside
// the callback. Such calls run outside the transaction and, on a
// single-connection pool, block until it ends.
var Analyzer = &analysis.Analyzer{
	Name:     "txscope",
	Doc:      "detects calls on the outer database inside a RunInTx callback",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "RunInTx" || len(call.Args) == 0 {
			return
		}
		callback, ok := call.Args[len(call.Args)-1].(*ast.FuncLit)
		if !ok {
			return
		}

		outer := types.ExprString(sel.X)
		ast.Inspect(callback.Body, func(n ast.Node) bool {
			inner, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			method, ok := inner.Fun.(*ast.SelectorExpr)
			if !ok || !isMethodCall(pass, method) {
				return true
			}
			if types.ExprString(method.X) == outer {
				pass.Reportf(inner.Pos(),
					"%s.%s called inside RunInTx - use the transaction's Queries",
					outer, method.Sel.Name)
			}
			return true
		})
	})

	return nil, nil
}

func isMethodCall(pass *analysis.Pass, sel *ast.SelectorExpr) bool {
	selection, ok := pass.TypesInfo.Selections[sel]
	return ok && selection.Kind() == types.MethodVal
}
