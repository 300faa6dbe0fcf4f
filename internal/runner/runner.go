// Package runner executes one run: a browser session wrapped around a
// sequential godog suite.
package runner

import (
	"context"
	"io"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/kuitang/playwright-bdd/internal/artifact"
	"github.com/kuitang/playwright-bdd/internal/config"
	"github.com/kuitang/playwright-bdd/internal/errs"
	"github.com/kuitang/playwright-bdd/internal/hooks"
	"github.com/kuitang/playwright-bdd/internal/lifecycle"
	"github.com/kuitang/playwright-bdd/internal/obs"
	"github.com/kuitang/playwright-bdd/internal/s3client"
	"github.com/kuitang/playwright-bdd/internal/session"
	"github.com/kuitang/playwright-bdd/internal/steps"
)

const defaultFormat = "pretty"

// Options selects what to run and how to report it.
type Options struct {
	Config *config.Config

	Paths         []string
	Tags          string
	Format        string
	Strict        bool
	StopOnFailure bool
	NoColors      bool
	Output        io.Writer

	// FeatureContents runs in-memory features instead of Paths.
	FeatureContents []godog.Feature

	// RunID overrides the generated run id.
	RunID string
	// Fs is where artifacts are written. Defaults to the OS filesystem.
	Fs afero.Fs
	// Store receives published artifacts. When nil and the config names a
	// bucket, an S3 client is built from the config.
	Store artifact.ObjectStore
	// SessionOptions are passed to session.Start.
	SessionOptions []session.Option
}

// Run starts the browser session, runs every selected scenario against it
// and releases the session. The returned status is godog's exit status, or
// the exit status for the error's code when the browser could not be started.
func Run(ctx context.Context, opts Options) (int, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = obs.WithRunID(ctx, runID)
	logger := obs.From(ctx).With("pkg", "runner")

	sessOpts := append([]session.Option{session.WithFs(fs)}, opts.SessionOptions...)
	sess, err := session.Start(ctx, cfg, sessOpts...)
	if err != nil {
		logger.Error("browser session failed to start", "error", err)
		return errs.ExitCode(errs.CodeOf(err)), err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("browser session close failed", "error", err)
		}
	}()

	ctrlOpts := []lifecycle.Option{lifecycle.WithFs(fs)}
	if pub := newPublisher(ctx, cfg, fs, opts.Store, runID); pub != nil {
		ctrlOpts = append(ctrlOpts, lifecycle.WithPublisher(pub))
	}
	ctrl := lifecycle.New(sess.Context(), cfg, sess.Layout(), ctrlOpts...)
	bindings := steps.New(cfg.LoginPageURL)

	format := opts.Format
	if format == "" {
		format = defaultFormat
	}

	suite := godog.TestSuite{
		Name: "bddrun",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			hooks.Register(sc, ctrl, opts.Strict)
			hooks.RegisterStepLogging(sc)
			bindings.Register(sc)
		},
		Options: &godog.Options{
			Format:          format,
			Tags:            opts.Tags,
			Paths:           opts.Paths,
			FeatureContents: opts.FeatureContents,
			Strict:          opts.Strict,
			StopOnFailure:   opts.StopOnFailure,
			NoColors:        opts.NoColors,
			Output:          opts.Output,
			DefaultContext:  ctx,
			// one shared browser context: scenarios never overlap
			Concurrency: 1,
		},
	}

	logger.Info("run started", "engine", sess.Engine(), "paths", opts.Paths, "tags", opts.Tags)
	status := suite.Run()
	logger.Info("run finished", "status", status)
	return status, nil
}

func newPublisher(ctx context.Context, cfg *config.Config, fs afero.Fs, store artifact.ObjectStore, runID string) artifact.Publisher {
	if store == nil {
		if !cfg.ArtifactsEnabled() {
			return nil
		}
		client, err := s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.ArtifactsEndpoint,
			Region:          cfg.ArtifactsRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.ArtifactsBucket,
			UsePathStyle:    cfg.ArtifactsUsePathStyle,
		})
		if err != nil {
			obs.From(ctx).Warn("artifact upload disabled", "pkg", "runner", "error", err)
			return nil
		}
		store = client
	}
	return artifact.NewBucketPublisher(store, fs, cfg.ArtifactsPrefix, runID)
}
