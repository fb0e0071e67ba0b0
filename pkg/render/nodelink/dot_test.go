package nodelink

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/storyline/pkg/dialogue"
)

func sampleGraph(t *testing.T) (*dialogue.Graph, *dialogue.Node, *dialogue.Node) {
	t.Helper()
	g := dialogue.New()
	a := g.AddNode()
	b := g.AddNode()
	if _, err := g.UpdateNode(a, dialogue.Update{
		ID:      dialogue.String("intro"),
		Speaker: dialogue.String("stan"),
		Text:    dialogue.String("Hey, over here! I've got a deal for you, a real once in a lifetime deal."),
		Jump:    dialogue.String("reply"),
		SetVars: dialogue.String(`{"met_stan": true}`),
		JumpIf:  dialogue.String(`{"met_stan": "reply"}`),
		Options: [dialogue.SlotCount]*dialogue.OptionEdit{
			dialogue.SlotA: {Text: "Sure", Jump: "reply"},
			dialogue.SlotB: {Text: "Where?", Jump: "nowhere"},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.UpdateNode(b, dialogue.Update{ID: dialogue.String("reply")}); err != nil {
		t.Fatal(err)
	}
	return g, a, b
}

func TestToDOT_Basic(t *testing.T) {
	g, a, b := sampleGraph(t)
	dot := ToDOT(g, Options{})

	if !strings.Contains(dot, "digraph G") {
		t.Error("ToDOT() output missing digraph declaration")
	}
	if !strings.Contains(dot, fmt.Sprintf("%q [label=%q]", a.Handle.String(), "Line 1\n#intro")) {
		t.Errorf("ToDOT() output missing node a:\n%s", dot)
	}
	jump := fmt.Sprintf("%q -> %q [label=\"jump\"]", a.Handle.String(), b.Handle.String())
	if !strings.Contains(dot, jump) {
		t.Errorf("ToDOT() output missing jump edge:\n%s", dot)
	}
	option := fmt.Sprintf("%q -> %q [label=\"A\"", a.Handle.String(), b.Handle.String())
	if !strings.Contains(dot, option) {
		t.Errorf("ToDOT() output missing option edge:\n%s", dot)
	}
	if strings.Contains(dot, "met_stan") || strings.Contains(dot, "nowhere") {
		t.Error("simple labels should not include details or unresolved targets")
	}
}

func TestToDOT_Detailed(t *testing.T) {
	g, _, _ := sampleGraph(t)
	dot := ToDOT(g, Options{Detailed: true})

	for _, want := range []string{"speaker: stan", `set_var: {\"met_stan\":true}`, "if met_stan: reply", "…"} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() detailed output missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOT_Unaddressable(t *testing.T) {
	g := dialogue.New()
	g.AddNode()

	dot := ToDOT(g, Options{})
	if !strings.Contains(dot, "dashed") || !strings.Contains(dot, "lightgrey") {
		t.Error("ToDOT() line without id should be dashed grey")
	}
}

func TestToDOT_Unresolved(t *testing.T) {
	g, _, _ := sampleGraph(t)
	dot := ToDOT(g, Options{Unresolved: true})

	if !strings.Contains(dot, `"missing:nowhere" [label="nowhere"`) {
		t.Errorf("ToDOT() missing unresolved node:\n%s", dot)
	}
	if !strings.Contains(dot, `[label="B", style=dashed, color=firebrick]`) {
		t.Errorf("ToDOT() missing unresolved edge:\n%s", dot)
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("short\n  text"); got != "short text" {
		t.Errorf("excerpt() = %q", got)
	}
	long := strings.Repeat("ä", 100)
	got := []rune(excerpt(long))
	if len(got) != excerptLen || got[len(got)-1] != '…' {
		t.Errorf("excerpt() length = %d", len(got))
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.00 20.00" width="10" height="20">`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}

	if got := normalizeViewBox([]byte("<svg/>")); string(got) != "<svg/>" {
		t.Errorf("normalizeViewBox() without viewBox changed input: %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	g, _, _ := sampleGraph(t)
	svg, err := RenderSVG(context.Background(), ToDOT(g, Options{Detailed: true}))
	if err != nil {
		t.Fatalf("RenderSVG error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "intro") {
		t.Error("RenderSVG() output is not an SVG of the graph")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "digraph {"); err == nil {
		t.Error("RenderSVG() should fail on invalid DOT")
	}
}
