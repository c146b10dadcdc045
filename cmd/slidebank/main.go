// Package main provides the slidebank CLI.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"slidebank/internal/archive"
	"slidebank/internal/assembly"
	"slidebank/internal/assetcache"
	"slidebank/internal/command"
	"slidebank/internal/config"
	"slidebank/internal/convert"
	"slidebank/internal/events"
	"slidebank/internal/importer"
	"slidebank/internal/keyword"
	"slidebank/internal/model"
	"slidebank/internal/office"
	"slidebank/internal/store"
	"slidebank/internal/validate"
)

// Version is the current slidebank CLI version
var Version = "0.3.1"

var rootCmd = &cobra.Command{
	Use:     "slidebank",
	Short:   "Slidebank - a local slide library",
	Long:    `Slidebank imports presentation files into a per-folder library, converts them into searchable slides, tags them with keywords, and assembles new decks from any slide selection.`,
	Version: Version,
}

var (
	flagRoot      string
	flagCategory  string
	flagColor     string
	flagSlideID   string
	flagElementID string
	flagKeywords  bool
	flagSlides    bool
	flagInto      string
	flagThreshold float64
	flagOut       string
)

// appCtx is everything a subcommand needs for one project.
type appCtx struct {
	root    string
	cfg     *config.Config
	st      *store.Store
	project *model.Project
	graph   *keyword.Graph
	stack   *command.Stack
}

func (a *appCtx) close() {
	if a.st != nil {
		a.st.Close()
	}
}

func projectRoot() (string, error) {
	if flagRoot != "" {
		return filepath.Abs(flagRoot)
	}
	return os.Getwd()
}

// openApp opens the library at the project root. The project row must
// already exist; run `slidebank init` first.
func openApp() (*appCtx, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(root, store.DataFileName)); err != nil {
		return nil, fmt.Errorf("no library at %s, run `slidebank init` first", root)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	st, err := store.OpenProject(root)
	if err != nil {
		return nil, err
	}
	projects, err := st.ListProjects()
	if err != nil {
		st.Close()
		return nil, err
	}
	if len(projects) == 0 {
		st.Close()
		return nil, fmt.Errorf("library at %s has no project, run `slidebank init`", root)
	}
	return &appCtx{
		root:    root,
		cfg:     cfg,
		st:      st,
		project: &projects[0],
		graph:   keyword.NewGraph(st),
		stack:   command.NewStack(),
	}, nil
}

// do runs a command through the undo stack and surfaces partial
// reversibility to the user.
func (a *appCtx) do(cmd command.Command) error {
	out, err := a.stack.Do(cmd)
	if err != nil {
		return err
	}
	if out.Reversibility == command.PartiallyReversible {
		fmt.Printf("note: %s\n", out)
	}
	return nil
}

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a slide library in the current directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := validate.ProjectName(name); err != nil {
		return err
	}
	root, err := projectRoot()
	if err != nil {
		return err
	}
	st, err := store.OpenProject(root)
	if err != nil {
		return err
	}
	defer st.Close()

	if existing, err := st.ListProjects(); err != nil {
		return err
	} else if len(existing) > 0 {
		return fmt.Errorf("library already initialized as %q", existing[0].Name)
	}
	p, err := st.CreateProject(name, root)
	if err != nil {
		return err
	}
	fmt.Printf("Initialized library %q at %s (%s)\n", p.Name, root, p.ID)
	return nil
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project commands",
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <new-name>",
	Short: "Rename the project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		return app.do(&command.RenameProject{
			St: app.st, ProjectID: app.project.ID, NewName: args[0],
		})
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the project, its imported copies, and its rendered assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		return app.do(&command.DeleteProject{
			St: app.st, Root: app.root, ProjectID: app.project.ID,
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <pattern>...",
	Short: "Import presentation files matching glob patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	im := importer.New(app.st, app.root)
	for _, pattern := range args {
		res, err := im.ImportGlob(app.project.ID, pattern)
		if err != nil {
			return err
		}
		for _, f := range res.Imported {
			fmt.Printf("imported %s (%s)\n", f.OriginalPath, f.ID)
		}
		for _, p := range res.Skipped {
			fmt.Printf("skipped %s (already imported)\n", p)
		}
	}
	return nil
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert pending and failed files into slides",
	RunE:  runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pipe := convert.New(app.st.Path(), app.root, office.FitzAutomation{}, bus,
		app.cfg.Workers, app.cfg.ThumbHeight)
	taskID, err := pipe.Run(cmd.Context(), app.project.ID)
	if err != nil {
		return err
	}
	return watchTask(ch, taskID)
}

// watchTask prints a task's bus events until it completes.
func watchTask(ch <-chan events.Event, taskID string) error {
	failures := 0
	for ev := range ch {
		if ev.TaskID != taskID {
			continue
		}
		switch ev.Kind {
		case events.KindProgress:
			fmt.Printf("\rconverted %d/%d slides", ev.Done, ev.Total)
		case events.KindFailed:
			failures++
			fmt.Printf("\nfailed: %s: %s\n", ev.EntityID, ev.Err)
		case events.KindCompleted:
			fmt.Printf("\rdone: %d/%d slides\n", ev.Done, ev.Total)
			if failures > 0 {
				return fmt.Errorf("%d file(s) failed, re-run convert to retry", failures)
			}
			return nil
		}
	}
	return fmt.Errorf("event stream closed before completion")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every imported file and its conversion status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		files, err := app.st.ListFiles(app.project.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Project %q: %d file(s)\n", app.project.Name, len(files))
		for _, f := range files {
			line := fmt.Sprintf("  %-12s %3d slides  %s", f.Status, f.SlideCount, f.OriginalPath)
			if f.Status == model.StatusFailed && f.ErrorMsg != "" {
				line += "  (" + f.ErrorMsg + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search keywords and slide text",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	term := args[0]
	both := !flagKeywords && !flagSlides

	if flagKeywords || both {
		kws, err := app.st.SearchKeywords(term, model.KeywordCategory(flagCategory), app.project.ID)
		if err != nil {
			return err
		}
		for _, k := range kws {
			fmt.Printf("keyword  %-8s %-24s %s\n", k.Category, k.Text, k.ID)
		}
	}
	if flagSlides || both {
		slides, err := app.st.SearchSlides(term, app.project.ID)
		if err != nil {
			return err
		}
		for _, sl := range slides {
			title := sl.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("slide    #%-3d     %-24s %s\n", sl.Index, title, sl.ID)
		}
	}
	return nil
}

var keywordCmd = &cobra.Command{
	Use:   "keyword",
	Short: "Keyword commands",
}

// keywordTarget reads the --slide/--element flags into a command target.
func keywordTarget() (string, model.TargetKind, error) {
	switch {
	case flagSlideID != "" && flagElementID != "":
		return "", "", fmt.Errorf("--slide and --element are mutually exclusive")
	case flagSlideID != "":
		return flagSlideID, model.TargetSlide, nil
	case flagElementID != "":
		return flagElementID, model.TargetElement, nil
	}
	return "", "", fmt.Errorf("one of --slide or --element is required")
}

var keywordAssignCmd = &cobra.Command{
	Use:   "assign <text>",
	Short: "Attach a keyword to a slide or element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetID, kind, err := keywordTarget()
		if err != nil {
			return err
		}
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		return app.do(&command.AssignKeyword{
			Graph: app.graph, St: app.st,
			TargetID: targetID, Kind: kind,
			Text:     args[0],
			Category: model.KeywordCategory(flagCategory),
			Color:    flagColor,
		})
	},
}

var keywordUnassignCmd = &cobra.Command{
	Use:   "unassign <keyword-id>",
	Short: "Detach a keyword from a slide or element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetID, kind, err := keywordTarget()
		if err != nil {
			return err
		}
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		return app.do(&command.UnassignKeyword{
			Graph: app.graph, St: app.st,
			TargetID: targetID, Kind: kind, KeywordID: args[0],
		})
	},
}

var keywordRenameCmd = &cobra.Command{
	Use:   "rename <keyword-id> <new-text>",
	Short: "Rename a keyword",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		return app.do(&command.RenameKeyword{
			Graph: app.graph, St: app.st, KeywordID: args[0], NewText: args[1],
		})
	},
}

var keywordRecolorCmd = &cobra.Command{
	Use:   "recolor <keyword-id> <color>",
	Short: "Change a keyword's display color (#rrggbb)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		return app.do(&command.RecolorKeyword{
			Graph: app.graph, St: app.st, KeywordID: args[0], NewColor: args[1],
		})
	},
}

var keywordMergeCmd = &cobra.Command{
	Use:   "merge <source-id>...",
	Short: "Merge keywords into the one named by --into",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagInto == "" {
			return fmt.Errorf("--into is required")
		}
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		return app.do(&command.MergeKeywords{
			Graph: app.graph, St: app.st, SourceIDs: args, DestID: flagInto,
		})
	},
}

var keywordSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest near-duplicate keyword pairs worth merging",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		suggestions, err := app.graph.SuggestMerges(app.project.ID, flagThreshold)
		if err != nil {
			return err
		}
		if len(suggestions) == 0 {
			fmt.Println("no merge candidates")
			return nil
		}
		for _, s := range suggestions {
			fmt.Printf("%.2f  %q (%s) <-> %q (%s)\n",
				s.Score, s.A.Text, s.A.ID, s.B.Text, s.B.ID)
		}
		return nil
	},
}

var keywordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		kws, err := app.st.ListKeywords(app.project.ID)
		if err != nil {
			return err
		}
		for _, k := range kws {
			fmt.Printf("%-8s %-24s %-8s %s\n", k.Category, k.Text, k.Color, k.ID)
		}
		return nil
	},
}

var assemblyCmd = &cobra.Command{
	Use:   "assembly",
	Short: "Assembly commands",
}

func resolveAssembly(app *appCtx, name string) (*model.Assembly, error) {
	a, err := app.st.GetAssemblyByName(app.project.ID, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no assembly named %q", name)
	}
	return a, err
}

var assemblyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a named assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validate.AssemblyName(args[0]); err != nil {
			return err
		}
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		a, err := app.st.CreateAssembly(app.project.ID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("created assembly %q (%s)\n", a.Name, a.ID)
		return nil
	},
}

var assemblyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assemblies",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		assemblies, err := app.st.ListAssemblies(app.project.ID)
		if err != nil {
			return err
		}
		for _, a := range assemblies {
			order, err := app.st.AssemblyOrder(a.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%-24s %3d slide(s)  %s\n", a.Name, len(order), a.ID)
		}
		return nil
	},
}

var assemblyShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an assembly's slide ordering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		a, err := resolveAssembly(app, args[0])
		if err != nil {
			return err
		}
		refs, err := app.st.ResolveAssembly(a.ID)
		if err != nil {
			return err
		}
		for i, r := range refs {
			fmt.Printf("%3d  slide #%d of %s  (%s)\n", i, r.Index, r.StoragePath, r.SlideID)
		}
		return nil
	},
}

var assemblyAddCmd = &cobra.Command{
	Use:   "add <name> <slide-id>",
	Short: "Append a slide to an assembly",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		a, err := resolveAssembly(app, args[0])
		if err != nil {
			return err
		}
		return app.do(&command.AppendAssemblySlide{
			St: app.st, AssemblyID: a.ID, SlideID: args[1],
		})
	},
}

var assemblyRemoveCmd = &cobra.Command{
	Use:   "remove <name> <slide-id>",
	Short: "Remove a slide from an assembly",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		a, err := resolveAssembly(app, args[0])
		if err != nil {
			return err
		}
		return app.do(&command.RemoveAssemblySlide{
			St: app.st, AssemblyID: a.ID, SlideID: args[1],
		})
	},
}

var assemblyMoveCmd = &cobra.Command{
	Use:   "move <name> <from> <to>",
	Short: "Move a slide between positions (0-based)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad position %q", args[1])
		}
		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("bad position %q", args[2])
		}
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		a, err := resolveAssembly(app, args[0])
		if err != nil {
			return err
		}
		return app.do(&command.MoveAssemblySlide{
			St: app.st, AssemblyID: a.ID, From: from, To: to,
		})
	},
}

var assemblyClearCmd = &cobra.Command{
	Use:   "clear <name>",
	Short: "Remove every slide from an assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		a, err := resolveAssembly(app, args[0])
		if err != nil {
			return err
		}
		return app.do(&command.ClearAssembly{St: app.st, AssemblyID: a.ID})
	},
}

var assemblyDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()
		a, err := resolveAssembly(app, args[0])
		if err != nil {
			return err
		}
		return app.st.DeleteAssembly(a.ID)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <assembly-name>",
	Short: "Export an assembly to a new presentation",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if flagOut == "" {
		return fmt.Errorf("--out is required")
	}
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	a, err := resolveAssembly(app, args[0])
	if err != nil {
		return err
	}

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	exp := assembly.NewExporter(app.st, app.root, office.FitzAutomation{}, bus)
	taskID, err := exp.Export(cmd.Context(), a.ID, flagOut)
	if err != nil {
		return err
	}
	for ev := range ch {
		if ev.TaskID != taskID {
			continue
		}
		switch ev.Kind {
		case events.KindProgress:
			fmt.Printf("\rexported %d/%d slides", ev.Done, ev.Total)
		case events.KindFailed:
			fmt.Println()
			return fmt.Errorf("export failed: %s", ev.Err)
		case events.KindCompleted:
			fmt.Printf("\rexported %d/%d slides to %s\n", ev.Done, ev.Total, flagOut)
			return nil
		}
	}
	return fmt.Errorf("event stream closed before completion")
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive commands",
}

var archiveCreateCmd = &cobra.Command{
	Use:   "create <out-file>",
	Short: "Pack the library into a portable archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		app.close() // archive reads the data file directly
		if err := archive.Create(app.root, store.DataFileName, args[0]); err != nil {
			return err
		}
		fmt.Printf("archived %s\n", args[0])
		return nil
	},
}

var archiveExtractCmd = &cobra.Command{
	Use:   "extract <pack-file> <dest-dir>",
	Short: "Unpack an archive into a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(args[1], 0755); err != nil {
			return err
		}
		if err := archive.Extract(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("extracted into %s\n", args[1])
		return nil
	},
}

var thumbCmd = &cobra.Command{
	Use:   "thumb <slide-id>",
	Short: "Load a slide thumbnail through the asset cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		cache := assetcache.New(app.cfg.CacheBudget, func(slideID string) (string, string, error) {
			sl, err := app.st.GetSlide(slideID)
			if err != nil {
				return "", "", err
			}
			return filepath.Join(app.root, sl.ThumbPath), app.project.ID, nil
		})
		img, err := cache.Get(args[0])
		if err != nil {
			return err
		}
		b := img.Bounds()
		fmt.Printf("%dx%d (%d bytes decoded, cache %d/%d)\n",
			b.Dx(), b.Dy(), b.Dx()*b.Dy()*4, cache.Used(), app.cfg.CacheBudget)
		return nil
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session with undo/redo across actions",
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	fmt.Printf("library %q, type `help` for commands\n", app.project.Name)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := shellDispatch(app, fields); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func shellDispatch(app *appCtx, fields []string) error {
	argErr := func(usage string) error { return fmt.Errorf("usage: %s", usage) }
	switch fields[0] {
	case "help":
		fmt.Println(`commands:
  undo | redo
  rename-project <new-name>
  assign <slide-id> <text> [category]
  unassign <slide-id> <keyword-id>
  merge <source-id> <dest-id>
  delete-file <file-id>
  append <assembly-name> <slide-id>
  move <assembly-name> <from> <to>
  quit`)
		return nil
	case "undo":
		out, err := app.stack.Undo()
		if err != nil {
			return err
		}
		fmt.Printf("undone (%s)\n", out)
		return nil
	case "redo":
		out, err := app.stack.Redo()
		if err != nil {
			return err
		}
		fmt.Printf("redone (%s)\n", out)
		return nil
	case "rename-project":
		if len(fields) != 2 {
			return argErr("rename-project <new-name>")
		}
		return app.do(&command.RenameProject{St: app.st, ProjectID: app.project.ID, NewName: fields[1]})
	case "assign":
		if len(fields) != 3 && len(fields) != 4 {
			return argErr("assign <slide-id> <text> [category]")
		}
		category := model.CategoryTopic
		if len(fields) == 4 {
			category = model.KeywordCategory(fields[3])
		}
		return app.do(&command.AssignKeyword{
			Graph: app.graph, St: app.st,
			TargetID: fields[1], Kind: model.TargetSlide,
			Text: fields[2], Category: category, Color: "#4a90d9",
		})
	case "unassign":
		if len(fields) != 3 {
			return argErr("unassign <slide-id> <keyword-id>")
		}
		return app.do(&command.UnassignKeyword{
			Graph: app.graph, St: app.st,
			TargetID: fields[1], Kind: model.TargetSlide, KeywordID: fields[2],
		})
	case "merge":
		if len(fields) != 3 {
			return argErr("merge <source-id> <dest-id>")
		}
		return app.do(&command.MergeKeywords{
			Graph: app.graph, St: app.st, SourceIDs: fields[1:2], DestID: fields[2],
		})
	case "delete-file":
		if len(fields) != 2 {
			return argErr("delete-file <file-id>")
		}
		return app.do(&command.DeleteFile{St: app.st, Root: app.root, FileID: fields[1]})
	case "append":
		if len(fields) != 3 {
			return argErr("append <assembly-name> <slide-id>")
		}
		a, err := resolveAssembly(app, fields[1])
		if err != nil {
			return err
		}
		return app.do(&command.AppendAssemblySlide{St: app.st, AssemblyID: a.ID, SlideID: fields[2]})
	case "move":
		if len(fields) != 4 {
			return argErr("move <assembly-name> <from> <to>")
		}
		from, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("bad position %q", fields[2])
		}
		to, err := strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("bad position %q", fields[3])
		}
		a, err := resolveAssembly(app, fields[1])
		if err != nil {
			return err
		}
		return app.do(&command.MoveAssemblySlide{St: app.st, AssemblyID: a.ID, From: from, To: to})
	}
	return fmt.Errorf("unknown command %q, type `help`", fields[0])
}

func main() {
	log.SetFlags(0)

	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "project root (default: current directory)")

	searchCmd.Flags().BoolVar(&flagKeywords, "keywords", false, "search keywords only")
	searchCmd.Flags().BoolVar(&flagSlides, "slides", false, "search slide text only")
	searchCmd.Flags().StringVar(&flagCategory, "category", "", "restrict keyword results to a category (topic|title|name)")

	keywordAssignCmd.Flags().StringVar(&flagSlideID, "slide", "", "target slide id")
	keywordAssignCmd.Flags().StringVar(&flagElementID, "element", "", "target element id")
	keywordAssignCmd.Flags().StringVar(&flagCategory, "category", "topic", "keyword category (topic|title|name)")
	keywordAssignCmd.Flags().StringVar(&flagColor, "color", "#4a90d9", "keyword display color")
	keywordUnassignCmd.Flags().StringVar(&flagSlideID, "slide", "", "target slide id")
	keywordUnassignCmd.Flags().StringVar(&flagElementID, "element", "", "target element id")
	keywordMergeCmd.Flags().StringVar(&flagInto, "into", "", "destination keyword id")
	keywordSuggestCmd.Flags().Float64Var(&flagThreshold, "threshold", 0.8, "minimum similarity (0..1)")

	exportCmd.Flags().StringVar(&flagOut, "out", "", "output file path")

	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectDeleteCmd)

	keywordCmd.AddCommand(keywordAssignCmd)
	keywordCmd.AddCommand(keywordUnassignCmd)
	keywordCmd.AddCommand(keywordRenameCmd)
	keywordCmd.AddCommand(keywordRecolorCmd)
	keywordCmd.AddCommand(keywordMergeCmd)
	keywordCmd.AddCommand(keywordSuggestCmd)
	keywordCmd.AddCommand(keywordListCmd)

	assemblyCmd.AddCommand(assemblyCreateCmd)
	assemblyCmd.AddCommand(assemblyListCmd)
	assemblyCmd.AddCommand(assemblyShowCmd)
	assemblyCmd.AddCommand(assemblyAddCmd)
	assemblyCmd.AddCommand(assemblyRemoveCmd)
	assemblyCmd.AddCommand(assemblyMoveCmd)
	assemblyCmd.AddCommand(assemblyClearCmd)
	assemblyCmd.AddCommand(assemblyDeleteCmd)

	archiveCmd.AddCommand(archiveCreateCmd)
	archiveCmd.AddCommand(archiveExtractCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(keywordCmd)
	rootCmd.AddCommand(assemblyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(thumbCmd)
	rootCmd.AddCommand(shellCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
