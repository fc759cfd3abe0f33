package annotations

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DeusData/groq-intel/internal/extension"
	"github.com/DeusData/groq-intel/internal/model"
	"github.com/DeusData/groq-intel/internal/schema"
)

const annotated = `*[_type == "post"]

// Finds posts by a person.
// @param {author} $person
// @param {post[]} $posts
fn byAuthor($person, $posts) = $posts[author._ref == $person._id];`

func definition(source string) *model.FunctionDefinition {
	return &model.FunctionDefinition{
		Name:  "byAuthor",
		Start: strings.Index(source, "fn "),
		Parameters: []*model.FunctionParameter{
			{Name: "$person", Index: 0},
			{Name: "$posts", Index: 1},
		},
	}
}

func TestParse(t *testing.T) {
	got := parse(annotated, strings.Index(annotated, "fn "))
	var pairs []string
	for _, a := range got {
		pairs = append(pairs, a.param+":"+a.typeName)
	}
	if diff := cmp.Diff([]string{"$person:author", "$posts:post"}, pairs); diff != "" {
		t.Errorf("annotations (-want +got):\n%s", diff)
	}
	if annotated[got[0].typeStart:got[0].typeEnd] != "author" {
		t.Errorf("type span covers %q", annotated[got[0].typeStart:got[0].typeEnd])
	}
}

func TestParseStopsAtCode(t *testing.T) {
	src := "// @param {author} $a\n*[0]\nfn f($a) = $a;"
	if got := parse(src, strings.Index(src, "fn ")); len(got) != 0 {
		t.Errorf("annotation separated by code must be ignored, got %+v", got)
	}
	if got := parse("fn f($a) = $a;", 0); len(got) != 0 {
		t.Errorf("no comments, got %+v", got)
	}
}

func TestDeclaredTypeThroughRegistry(t *testing.T) {
	r := extension.NewRegistry()
	if err := r.Register(New()); err != nil {
		t.Fatal(err)
	}
	if err := r.Enable(ID, nil); err != nil {
		t.Fatal(err)
	}

	def := definition(annotated)
	r.RunDefinitionExtracted(def, annotated, def.Start)

	if got := r.ParameterType(def, def.Parameters[0], 0); got != "author" {
		t.Errorf("$person declared type = %q, want author", got)
	}
	if got := r.ParameterType(def, def.Parameters[1], 1); got != "post" {
		t.Errorf("$posts declared type = %q, want post", got)
	}
	rng := def.Parameters[0].DeclaredRange
	if rng == nil || rng.Start.Line != 3 {
		t.Errorf("declared range = %+v, want line 3", rng)
	}
}

func TestDiagnostics(t *testing.T) {
	src := "// @param {ghost} $a\n// @param {author} $missing\nfn f($a) = $a;"
	def := &model.FunctionDefinition{
		Name:       "f",
		Start:      strings.Index(src, "fn "),
		Parameters: []*model.FunctionParameter{{Name: "$a"}},
	}
	s := schema.New([]*schema.Type{{Name: "author", Kind: schema.TypeDocument, IsDocument: true}})

	var msgs []string
	for _, d := range diagnostics([]*model.FunctionDefinition{def}, s, src) {
		msgs = append(msgs, d.Message)
	}
	want := []string{
		`unknown type "ghost" in @param annotation`,
		"@param $missing does not name a parameter of f",
	}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s", diff)
	}

	// Without a schema unknown types cannot be judged.
	if got := diagnostics([]*model.FunctionDefinition{def}, nil, src); len(got) != 1 {
		t.Errorf("without schema want 1 diagnostic, got %d", len(got))
	}
}

func TestHover(t *testing.T) {
	s := schema.New([]*schema.Type{{Name: "author", Title: "Author", Description: "A writer."}})
	p := &model.FunctionParameter{Name: "$a", DeclaredType: "author"}

	got := hover(model.HoverContext{Parameter: p, Schema: s})
	want := "Declared type: `author` (Author)\n\nA writer."
	if got != want {
		t.Errorf("hover = %q, want %q", got, want)
	}
	if hover(model.HoverContext{Parameter: &model.FunctionParameter{Name: "$b"}}) != "" {
		t.Error("undeclared parameter should contribute nothing")
	}
}
