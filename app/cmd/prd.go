package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"agenthub/app/agent"
	"agenthub/export"
	"agenthub/generation"
	"agenthub/loader"
	"agenthub/review"
	"agenthub/store"
	"agenthub/types"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	prdManual  bool
	prdYes     bool
	prdPrompt  string
	prdContext string
	prdSources []string
	prdOut     string
)

var prdCmd = &cobra.Command{
	Use:   "prd",
	Short: "Write or review product requirement documents",
}

var prdCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a PRD section by section",
	Long: `Streams a PRD from the backend. In manual mode generation pauses after
each batch of sections so they can be edited before continuing.

Example:
  hub prd create --manual --prompt "AKS cost insights" --source notes.md --out prd.docx`,
	RunE: runPRDCreate,
}

var prdReviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Review a PRD and print comments per section",
	Args:  cobra.ExactArgs(1),
	RunE:  runPRDReview,
}

func init() {
	f := prdCreateCmd.Flags()
	f.BoolVar(&prdManual, "manual", false, "pause for approval between sections")
	f.BoolVarP(&prdYes, "yes", "y", false, "approve every pause without asking")
	f.StringVarP(&prdPrompt, "prompt", "p", "", "what the PRD is about")
	f.StringVar(&prdContext, "context", "", "document context (defaults to PRD_CONTEXT)")
	f.StringSliceVarP(&prdSources, "source", "s", nil, "file or URL to use as a data source")
	f.StringVarP(&prdOut, "out", "o", "", "write the finished document as .docx (or .md)")
	_ = prdCreateCmd.MarkFlagRequired("prompt")

	prdReviewCmd.Flags().StringVar(&prdContext, "context", "", "review context (defaults to PRD_REVIEW_CONTEXT)")

	prdCmd.AddCommand(prdCreateCmd, prdReviewCmd)
}

func loadSources(cmd *cobra.Command, ldr *loader.Loader, args []string) ([]types.DataSourcePayload, error) {
	var out []types.DataSourcePayload
	for _, arg := range args {
		var (
			ds  types.DataSource
			err error
		)
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			ds, err = ldr.URL(arg)
		} else {
			ds, err = loadFile(cmd, ldr, arg)
		}
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", arg, err)
		}
		out = append(out, ds.Payload())
	}
	return out, nil
}

func loadFile(cmd *cobra.Command, ldr *loader.Loader, path string) (types.DataSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.DataSource{}, err
	}
	defer f.Close()
	return ldr.File(cmd.Context(), filepath.Base(path), f)
}

func runPRDCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	r := newRenderer(cmd.OutOrStdout())
	ldr := loader.New(
		loader.WithDocling(cfg.DoclingURL, nil),
		loader.WithCrop(cfg.PDFCropTop, cfg.PDFCropBottom),
		loader.WithLogger(logger),
	)
	sources, err := loadSources(cmd, ldr, prdSources)
	if err != nil {
		return err
	}

	docContext := prdContext
	if docContext == "" {
		docContext = cfg.PRDContext
	}
	mode := types.ModeAuto
	if prdManual {
		mode = types.ModeManual
	}

	s := agent.NewPRDSession(uuid.New(), backend(), store.NewMemoryStore(), agent.PRDConfig{
		Total:         cfg.PRDTotalSections,
		StreamTimeout: cfg.StreamTimeout,
		Budget:        agent.Budget{Limit: cfg.ContextTokenLimit, Log: logger},
		Log:           logger,
	})
	defer s.Close()

	r.note("generating %s PRD from %d source(s)...", mode, len(sources))
	err = s.Start(ctx, agent.PRDRequest{Mode: mode, Prompt: prdPrompt, Context: docContext, Sources: sources})
	approveLoop(ctx, r, s, bufio.NewReader(cmd.InOrStdin()), prdYes, err)

	if prdOut != "" {
		return writeDocument(s, prdOut)
	}
	return nil
}

// approveLoop drives the pauses of a run until it is no longer paused or the
// user quits. autoApprove skips the prompt, but only until a continuation fails
// without delivering anything; from then on the user decides.
func approveLoop(ctx context.Context, r *renderer, s *agent.PRDSession, in *bufio.Reader, autoApprove bool, err error) {
	shown := make(map[string]string)
	for {
		showNew(r, s, shown)
		if err != nil {
			r.fail(err)
		}
		view := s.View()
		if view.State != generation.StateAwaitingApproval {
			return
		}
		if !autoApprove {
			quit, perr := prompt(r, s, in)
			if perr != nil || quit {
				return
			}
		}
		err = s.Approve(ctx)
		if err != nil && s.View().Cursor == view.Cursor {
			autoApprove = false
		}
	}
}

// showNew prints the sections that are new or changed since the last call.
// shown maps section id to the content printed for it.
func showNew(r *renderer, s *agent.PRDSession, shown map[string]string) {
	view := s.View()
	for i, sec := range view.Sections {
		if content, ok := shown[sec.ID]; ok && content == sec.Content {
			continue
		}
		r.section(i, sec)
		shown[sec.ID] = sec.Content
	}
	fmt.Fprintln(r.out, progressBar(view.Progress))
}

// prompt handles one pause. It returns true when the user quits.
func prompt(r *renderer, s *agent.PRDSession, in *bufio.Reader) (bool, error) {
	for {
		r.note("[a]pprove  [e]dit N  [n]ormalize N  [s]how  [q]uit")
		fmt.Fprint(r.out, "> ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return true, err
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "a", "approve", "":
			return false, nil
		case "q", "quit":
			return true, nil
		case "s", "show":
			for i, sec := range s.View().Sections {
				r.section(i, sec)
			}
		case "e", "edit":
			if sec, ok := pick(r, s, arg); ok {
				editSection(r, s, sec, in)
			}
		case "n", "normalize":
			if sec, ok := pick(r, s, arg); ok {
				if sec, err := s.Normalize(sec.ID); err != nil {
					r.fail(err)
				} else {
					r.markdown(sec.Content)
				}
			}
		default:
			r.note("unknown command %q", cmd)
		}
	}
}

func pick(r *renderer, s *agent.PRDSession, arg string) (types.Section, bool) {
	sections := s.View().Sections
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(sections) {
		r.note("pick a section between 1 and %d", len(sections))
		return types.Section{}, false
	}
	return sections[n-1], true
}

// editSection reads replacement content until a line holding a single ".".
func editSection(r *renderer, s *agent.PRDSession, sec types.Section, in *bufio.Reader) {
	if _, err := s.BeginEdit(sec.ID); err != nil {
		r.fail(err)
		return
	}
	r.note("new content for %q, end with a line containing only \".\"", sec.Title)

	var lines []string
	for {
		line, err := in.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			break
		}
		if trimmed != "" || err == nil {
			lines = append(lines, trimmed)
		}
		if err != nil {
			if _, cerr := s.CancelEdit(sec.ID); cerr != nil {
				logger.Warn("cancel edit failed", zap.Error(cerr))
			}
			return
		}
	}

	if _, err := s.SetDraft(sec.ID, strings.Join(lines, "\n")); err != nil {
		r.fail(err)
		return
	}
	if _, err := s.SaveEdit(sec.ID); err != nil {
		r.fail(err)
		return
	}
	r.note("saved %q", sec.Title)
}

func writeDocument(s *agent.PRDSession, path string) error {
	now := time.Now()
	if path == "-" {
		path = export.FileName(now)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".md") {
		_, err = io.WriteString(f, s.Markdown(now))
	} else {
		err = s.WriteDOCX(f, now)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("document written", zap.String("path", path))
	return nil
}

func runPRDReview(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	text, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	docContext := prdContext
	if docContext == "" {
		docContext = cfg.PRDReviewContext
	}

	r := newRenderer(cmd.OutOrStdout())
	r.note("reviewing %s...", args[0])
	res, err := review.NewReviewer(backend(), logger).Review(ctx, string(text), docContext, nil)
	if err != nil {
		return err
	}

	r.markdown(res.Summary)
	for _, c := range res.Comments {
		r.title(fmt.Sprintf("%s (%s)", c.Section, c.LineRef))
		r.markdown(c.Comment)
	}
	r.title(fmt.Sprintf("Quality score: %d/100", res.Score))
	return nil
}
