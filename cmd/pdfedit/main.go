// Command pdfedit lists text blocks, extracts text and replaces text in PDF
// files from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wudi/pdfedit/config"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/edit"
	"github.com/wudi/pdfedit/layout"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/recovery"
	"github.com/wudi/pdfedit/session"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "pdfedit: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger observability.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "pdfedit",
		Short:         "Edit the text of existing PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "YAML file with edit tunables")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("strict", false, "fail on damaged input instead of skipping broken objects")
	_ = a.v.BindPFlags(flags)
	a.v.SetEnvPrefix("PDFEDIT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(a.blocksCmd(), a.textCmd(), a.editCmd())
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.v.GetString("config"))
	if err != nil {
		return err
	}
	if lvl := a.v.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.cfg = cfg
	a.logger = observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func (a *app) open(ctx context.Context, path string) (*session.Session, error) {
	opts := []session.Option{session.WithConfig(a.cfg), session.WithLogger(a.logger)}
	if a.v.GetBool("strict") {
		opts = append(opts, session.WithRecovery(recovery.NewStrictStrategy()))
	}
	return session.OpenFile(ctx, path, opts...)
}

func (a *app) blocksCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "blocks <pdf>",
		Short: "List the text blocks of a page with their rectangles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			blocks, err := s.Blocks(page - 1)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range blocks {
				r := b.LayoutRect
				fmt.Fprintf(out, "%s\t%.1f,%.1f,%.1f,%.1f\t%s %.1f\trot=%d\t%q\n",
					b.ID, r.X0, r.Y0, r.X1, r.Y1, b.Font, b.Size, b.Rotation(), b.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number, starting at 1")
	return cmd
}

func (a *app) textCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "text <pdf>",
		Short: "Print the text of one page, or of every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			first, last := 0, s.PageCount()-1
			if page > 0 {
				first, last = page-1, page-1
			}
			for i := first; i <= last; i++ {
				text, err := s.Text(cmd.Context(), i)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "--- page %d ---\n%s\n", i+1, text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 0, "page number, starting at 1; 0 prints every page")
	return cmd
}

type editFlags struct {
	out       string
	page      int
	rect      string
	moveTo    string
	hint      string
	text      string
	markup    string
	font      string
	size      float64
	target    string
	run       bool
	shiftLeft bool
}

func (a *app) editCmd() *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:   "edit <pdf>",
		Short: "Replace the text found near a rectangle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			res, err := s.Edit(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := f.out
			if out == "" {
				out = args[0]
			}
			if err := s.SaveFile(cmd.Context(), out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s scale=%.2f similarity=%.2f reflowed=%d\n",
				res.BlockID, res.Strategy, res.Scale, res.Similarity, len(res.Reflowed))
			if len(res.Missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: no glyphs for %q\n", string(res.Missing))
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "output", "o", "", "output file; defaults to overwriting the input")
	fl.IntVarP(&f.page, "page", "p", 1, "page number, starting at 1")
	fl.StringVar(&f.rect, "rect", "", "approximate location as x0,y0,x1,y1 from the top-left corner")
	fl.StringVar(&f.moveTo, "move-to", "", "place the new text at x0,y0,x1,y1 instead")
	fl.StringVar(&f.hint, "hint", "", "text expected at the location")
	fl.StringVar(&f.text, "text", "", "replacement text")
	fl.StringVar(&f.markup, "markup", string(layout.Plain), "plain, html or markdown")
	fl.StringVar(&f.font, "font", "", "override the font")
	fl.Float64Var(&f.size, "size", 0, "override the font size")
	fl.StringVar(&f.target, "id", "", "block or run id from the blocks command")
	fl.BoolVar(&f.run, "run", false, "replace a single run instead of the whole block")
	fl.BoolVar(&f.shiftLeft, "shift-left", false, "grow rotated text to the left")
	return cmd
}

func (f editFlags) request() (edit.Request, error) {
	req := edit.Request{
		Page:              f.page,
		Text:              f.text,
		Markup:            layout.Markup(f.markup),
		Font:              f.font,
		Size:              f.size,
		Hint:              f.hint,
		TargetID:          f.target,
		VerticalShiftLeft: f.shiftLeft,
		Mode:              edit.ModeParagraph,
	}
	if f.run {
		req.Mode = edit.ModeRun
	}
	switch req.Markup {
	case layout.Plain, layout.HTML, layout.Markdown:
	default:
		return req, fmt.Errorf("unknown markup %q", f.markup)
	}
	if f.rect == "" && f.target == "" {
		return req, fmt.Errorf("either --rect or --id is required")
	}
	if f.rect != "" {
		r, err := parseRect(f.rect)
		if err != nil {
			return req, fmt.Errorf("--rect: %w", err)
		}
		req.Rect = r
	}
	if f.moveTo != "" {
		r, err := parseRect(f.moveTo)
		if err != nil {
			return req, fmt.Errorf("--move-to: %w", err)
		}
		req.NewRect = &r
	}
	return req, nil
}

func parseRect(s string) (coords.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return coords.Rect{}, fmt.Errorf("want x0,y0,x1,y1, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return coords.Rect{}, err
		}
		v[i] = n
	}
	return coords.NewRect(v[0], v[1], v[2], v[3]), nil
}
