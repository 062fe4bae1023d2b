package debug

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
)

// Logf writes to stderr, rendering YAML nodes and property bags as YAML.
func Logf(msg string, args ...any) {
	for i := range args {
		a := args[i]
		switch x := a.(type) {
		case map[string]any, []any:
			d, err := yaml.Marshal(x)
			if err != nil {
				args[i] = fmt.Sprintf("%v", a)
				continue
			}
			args[i] = indent(string(d))
		case ast.Node:
			if x == nil {
				args[i] = "<nil>"
				continue
			}
			args[i] = indent(x.String())
		case bool, string, float64, int:

		default:
		}
	}
	fmt.Fprintf(os.Stderr, msg, args...)
}

func indent(s string) string {
	s = strings.TrimRight(s, "\n")
	if !strings.Contains(s, "\n") {
		return s
	}
	return "\n   |" + strings.ReplaceAll(s, "\n", "\n   |")
}
