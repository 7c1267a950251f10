package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/internal/session"
)

var (
	refineResumes     []string
	refineJobFile     string
	refineOutDir      string
	refineConcurrency int
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine one or more resumes against a job description",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(refineResumes) == 0 {
			return eris.New("at least one --resume file is required")
		}

		jobText := ""
		if refineJobFile != "" {
			data, err := os.ReadFile(refineJobFile)
			if err != nil {
				return eris.Wrap(err, "read job description")
			}
			jobText = string(data)
		}

		env, err := initEngine("refine")
		if err != nil {
			return err
		}
		defer env.Close()

		if len(refineResumes) == 1 {
			return refineOne(ctx, env.Manager, refineResumes[0], jobText)
		}
		return refineBatch(ctx, env.Manager, refineResumes, jobText)
	},
}

func init() {
	refineCmd.Flags().StringSliceVar(&refineResumes, "resume", nil, "resume text file (repeatable)")
	refineCmd.Flags().StringVar(&refineJobFile, "job", "", "job description text file")
	refineCmd.Flags().StringVar(&refineOutDir, "out", "", "directory for refined output (default: stdout)")
	refineCmd.Flags().IntVar(&refineConcurrency, "concurrency", 2, "max resumes refined in parallel")
	rootCmd.AddCommand(refineCmd)
}

// refineOne runs a single resume end to end, accepting every unblocked
// improvement, and prints a per-section report.
func refineOne(ctx context.Context, mgr *session.Manager, path, jobText string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read resume")
	}

	sess, err := mgr.StartAnalysis(ctx, string(data), jobText)
	if err != nil {
		return eris.Wrap(err, "start analysis")
	}

	for _, section := range sess.SectionsInOrder() {
		kind := section.Kind
		log := zap.L().With(zap.String("section", string(kind)))
		if section.NeedsClarification {
			log.Warn("section held back pending clarification",
				zap.String("question", clarificationQuestion(section)),
			)
			continue
		}
		if err := mgr.AcceptChanges(sess.ID, kind, true); err != nil {
			return eris.Wrap(err, "accept changes")
		}
		log.Info("section refined",
			zap.Int("score", section.FinalScore),
			zap.Int("iterations", len(section.Iterations)),
		)
	}

	final, err := mgr.GenerateFinal(sess.ID)
	if err != nil {
		return eris.Wrap(err, "generate final")
	}
	return emitResult(path, final)
}

// refineBatch processes several resumes concurrently against the same job
// description. Individual failures are logged, not fatal.
func refineBatch(ctx context.Context, mgr *session.Manager, paths []string, jobText string) error {
	zap.L().Info("processing batch",
		zap.Int("resumes", len(paths)),
		zap.Int("concurrency", refineConcurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refineConcurrency)

	var succeeded, failed atomic.Int64

	for _, path := range paths {
		g.Go(func() error {
			if err := refineOne(gctx, mgr, path, jobText); err != nil {
				failed.Add(1)
				zap.L().Error("refinement failed",
					zap.String("resume", path),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

// emitResult writes the refined resume next to its source name under --out,
// or to stdout when no output directory was given.
func emitResult(sourcePath, content string) error {
	if refineOutDir == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.MkdirAll(refineOutDir, 0o755); err != nil {
		return eris.Wrap(err, "create output directory")
	}
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	out := filepath.Join(refineOutDir, base+".refined.txt")
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		return eris.Wrap(err, "write refined resume")
	}
	zap.L().Info("refined resume written", zap.String("path", out))
	return nil
}

func clarificationQuestion(section *model.Section) string {
	if section.Clarification == nil {
		return ""
	}
	return section.Clarification.Question
}
