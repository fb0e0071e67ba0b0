package dialogue_test

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/storyline/pkg/dialogue"
)

func ExampleGraph_basic() {
	g := dialogue.New()
	intro := g.AddNode()
	reply := g.AddNode()

	_, _ = g.UpdateNode(intro, dialogue.Update{
		ID:      dialogue.String("intro"),
		Speaker: dialogue.String("stan"),
		Text:    dialogue.String("Hey, over here!"),
		Options: [dialogue.SlotCount]*dialogue.OptionEdit{
			dialogue.SlotA: {Text: "Hi Stan", Jump: "reply"},
		},
	})
	_, _ = g.UpdateNode(reply, dialogue.Update{
		ID:   dialogue.String("reply"),
		Text: dialogue.String("Buy something."),
	})

	for _, e := range g.Edges() {
		fmt.Printf("%s -> %s (%s)\n", e.SourceID(), e.TargetID(), e.Kind)
	}
	// Output:
	// intro -> reply (A)
}

func ExampleGraph_Export() {
	g := dialogue.New()
	n := g.AddNode()
	_, _ = g.UpdateNode(n, dialogue.Update{
		Text:    dialogue.String("Hello"),
		SetVars: dialogue.String(`{"greeted": true}`),
	})

	data, _ := json.Marshal(g.Export())
	fmt.Println(string(data))
	// Output:
	// [{"text":"Hello","set_var":{"greeted":true}}]
}

func ExampleGraph_UpdateNode_warning() {
	g := dialogue.New()
	n := g.AddNode()

	warnings, err := g.UpdateNode(n, dialogue.Update{JumpIf: dialogue.String("not valid json")})
	fmt.Println("error:", err)
	fmt.Println("warning:", warnings[0].Code)
	fmt.Println("jump_if:", dialogue.FormatConditions(n.JumpIf))
	// Output:
	// error: <nil>
	// warning: INVALID_CONDITIONS
	// jump_if: {}
}
