package csv

import (
	"fmt"

	"github.com/shapestone/shape-core/pkg/ast"
)

// ToAST converts the result to a shape-core AST so it can be consumed by
// other Shape tools.
//
// The returned node is an *ast.ArrayDataNode with one element per row:
//   - an *ast.ArrayDataNode of *ast.LiteralNode fields without headers
//   - an *ast.ObjectNode keyed by header name in header mode
//
// Each row node is positioned at the logical line it was read from.
//
// Example:
//
//	result, _ := r.ReadString(ctx, "name,age\nAlice,30\n")
//	node := result.ToAST()
func (res *Result) ToAST() *ast.ArrayDataNode {
	rows := make([]ast.SchemaNode, len(res.Rows))
	for i, row := range res.Rows {
		pos := ast.NewPosition(0, row.line, 1)
		if res.Headers != nil {
			props := make(map[string]ast.SchemaNode, len(res.Headers))
			for name, value := range row.Map() {
				props[name] = ast.NewLiteralNode(value, pos)
			}
			rows[i] = ast.NewObjectNode(props, pos)
			continue
		}

		fields := make([]ast.SchemaNode, len(row.fields))
		for j, f := range row.fields {
			fields[j] = ast.NewLiteralNode(f, pos)
		}
		rows[i] = ast.NewArrayDataNode(fields, pos)
	}
	return ast.NewArrayDataNode(rows, ast.ZeroPosition())
}

// FromAST rebuilds a raw Result from an *ast.ArrayDataNode of records, each an
// *ast.ArrayDataNode of string *ast.LiteralNode fields. This is the shape
// produced by ToAST without headers and by shape-csv's Parse. Rows are
// numbered by their position in the array.
func FromAST(node ast.SchemaNode) (*Result, error) {
	arrayNode, ok := node.(*ast.ArrayDataNode)
	if !ok {
		return nil, fmt.Errorf("expected *ast.ArrayDataNode, got %T", node)
	}

	res := &Result{}
	for i, elem := range arrayNode.Elements() {
		recordNode, ok := elem.(*ast.ArrayDataNode)
		if !ok {
			return nil, fmt.Errorf("record %d: expected *ast.ArrayDataNode, got %T", i, elem)
		}

		fields := make([]string, 0, recordNode.Len())
		for _, fieldNode := range recordNode.Elements() {
			literalNode, ok := fieldNode.(*ast.LiteralNode)
			if !ok {
				return nil, fmt.Errorf("record %d: expected field to be *ast.LiteralNode, got %T", i, fieldNode)
			}

			value, ok := literalNode.Value().(string)
			if !ok {
				return nil, fmt.Errorf("record %d: expected field value to be string, got %T", i, literalNode.Value())
			}
			fields = append(fields, value)
		}

		res.Rows = append(res.Rows, Row{fields: fields, line: i + 1})
	}
	return res, nil
}
