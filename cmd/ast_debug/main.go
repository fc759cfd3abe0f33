package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DeusData/groq-intel/internal/groq"
	"github.com/DeusData/groq-intel/internal/syntax"
)

func printAST(node syntax.Node, indent int) {
	if node == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	parentKind := "nil"
	if node.Parent() != nil {
		parentKind = node.Parent().Kind()
	}
	text := node.Text()
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Printf("%s%s [%d,%d) (parent=%s) %q\n", prefix, node.Kind(), node.StartByte(), node.EndByte(), parentKind, text)
	for _, child := range node.NamedChildren() {
		printAST(child, indent+1)
	}
}

// Usage: ast_debug [file.groq | -] [--sexpr]
// Without a file, a few sample queries are dumped.
func main() {
	sexpr := false
	var files []string
	for _, arg := range os.Args[1:] {
		if arg == "--sexpr" {
			sexpr = true
			continue
		}
		files = append(files, arg)
	}

	if len(files) == 0 {
		for _, src := range []string{
			`*[_type == "post" && defined(slug)]{ title, author->{ name } }`,
			"fn blog::byAuthor($a) = *[_type == \"post\" && author._ref == $a._id];\n*[_type == \"author\"]{ \"posts\": blog::byAuthor(@) }",
			`*[_type == "post"] | order(_createdAt desc)[0...10]{ title, `,
		} {
			dump(src, sexpr)
			fmt.Println()
		}
		return
	}

	for _, name := range files {
		var (
			b   []byte
			err error
		)
		if name == "-" {
			b, err = io.ReadAll(os.Stdin)
		} else {
			b, err = os.ReadFile(name)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		fmt.Printf("=== %s ===\n", name)
		dump(string(b), sexpr)
	}
}

func dump(src string, sexpr bool) {
	root, err := groq.Parse(src)
	var perrs groq.ParseErrors
	if errors.As(err, &perrs) {
		for _, e := range perrs {
			fmt.Println("Error:", e)
		}
	}
	if sexpr {
		fmt.Println(root.SExpr())
		return
	}
	printAST(root, 0)
}
