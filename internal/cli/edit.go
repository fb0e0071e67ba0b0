package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/storyline/pkg/dialogue"
	"github.com/matzehuels/storyline/pkg/script"
	"github.com/matzehuels/storyline/pkg/session"
)

// editOpts holds the command-line flags for the edit command.
type editOpts struct {
	output   string // export path
	draft    string // draft name
	noDrafts bool   // disable draft saving
	list     bool   // list drafts and exit
	discard  bool   // delete the named draft and exit
}

// editCommand creates the interactive editor command.
func (c *CLI) editCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [script.toml]",
		Short: "Edit dialogue in an interactive terminal editor",
		Long: `Edit dialogue in an interactive terminal editor.

The editor starts from the given script, from a saved draft, or empty.
Edits to the selected line are kept in the inspector until another line is
selected, "w" is pressed, or the dialogue is exported with "e".

Drafts are saved with "s" and automatically on quit, so work survives
between sessions. Use --list to see saved drafts.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeScript,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			return c.runEdit(cmd.Context(), input, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "export file (default from config)")
	cmd.Flags().StringVar(&opts.draft, "draft", "", "draft name (default: script name)")
	cmd.Flags().BoolVar(&opts.noDrafts, "no-drafts", false, "do not save drafts")
	cmd.Flags().BoolVar(&opts.list, "list", false, "list saved drafts and exit")
	cmd.Flags().BoolVar(&opts.discard, "discard", false, "delete the draft named by --draft and exit")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, input string, opts editOpts) error {
	ctx = withLogger(ctx, c.Logger)

	var drafts *session.DraftStore
	if !opts.noDrafts || opts.list || opts.discard {
		var err error
		if drafts, err = session.NewDraftStore(""); err != nil {
			return err
		}
	}
	if opts.list {
		return listDrafts(ctx, drafts)
	}
	if opts.discard {
		if opts.draft == "" {
			return fmt.Errorf("--discard needs --draft")
		}
		if err := drafts.Delete(ctx, opts.draft); err != nil {
			return err
		}
		printSuccess("Discarded draft %s", opts.draft)
		return nil
	}

	name, g, err := c.openForEdit(ctx, input, opts.draft, drafts)
	if err != nil {
		return err
	}

	var sessOpts []session.Option
	if c.Config.StrictIDs {
		sessOpts = append(sessOpts, session.WithStrictIDs())
	}
	sessOpts = append(sessOpts, session.WithLogger(c.Logger))
	sess := session.New(g, sessOpts...)

	// The editor owns the terminal; keep log output out of it.
	level := c.Logger.GetLevel()
	c.Logger.SetLevel(LogFatal)
	model := NewEditorModel(ctx, sess, c.exportSink(opts.output), drafts, name)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	c.Logger.SetLevel(level)
	if err != nil {
		return fmt.Errorf("run editor: %w", err)
	}

	warnings, err := sess.Close()
	if err != nil {
		printWarning("Last edit was not applied: %s", err)
	}
	for _, w := range warnings {
		printWarning("%s", w.Message)
	}
	if drafts != nil {
		if err := drafts.Save(ctx, name, g); err != nil {
			return err
		}
		printSuccess("Saved draft %s", name)
		printDetail("%d lines, %d edges", g.Len(), len(g.Edges()))
		printNextStep("Resume", "storyline edit --draft "+name)
	}
	return nil
}

// openForEdit picks the starting dialogue: the script when given,
// otherwise the named draft when it exists, otherwise an empty graph.
func (c *CLI) openForEdit(ctx context.Context, input, draft string, drafts *session.DraftStore) (string, *dialogue.Graph, error) {
	if input != "" {
		s, g, err := c.loadScript(ctx, input)
		if err != nil {
			return "", nil, err
		}
		if draft == "" {
			draft = scriptName(s)
		}
		return draft, g, nil
	}
	if draft == "" {
		draft = "untitled"
	}
	if drafts == nil {
		return draft, dialogue.New(c.graphOptions()...), nil
	}
	s, err := drafts.Load(ctx, draft)
	if err != nil {
		return "", nil, err
	}
	if s == nil {
		s = &script.Script{Name: draft}
	} else {
		printInfo("Resuming draft %s", draft)
	}
	g, _, err := s.Build(c.graphOptions()...)
	if err != nil {
		return "", nil, err
	}
	return draft, g, nil
}

func listDrafts(ctx context.Context, drafts *session.DraftStore) error {
	names, err := drafts.List(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		printInfo("No drafts")
		return nil
	}
	for _, n := range names {
		printFile(n)
	}
	printDetail("Directory: %s", drafts.Path())
	return nil
}
