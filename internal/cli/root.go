// Package cli implements the docqa command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
)

// Exit codes returned by ExitCode.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitConfig = 2
)

// skipSetup marks commands that run without configuration.
const skipSetup = "docqa/skip-setup"

// ServicesFactory builds the collaborators of a command from the loaded configuration.
type ServicesFactory func(cfg *config.Config, logger *zap.Logger) Services

// app is the state shared by all commands of one invocation.
type app struct {
	env        string
	configPath string
	cfg        config.Config
	logger     *zap.Logger
	services   Services
	factory    ServicesFactory
}

// Execute runs the command tree with args and releases the collaborators it built.
func Execute(ctx context.Context, factory ServicesFactory, args []string) error {
	root, a := newRoot(factory)
	defer a.teardown()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd creates the docqa command tree. factory nil uses the production wiring.
func NewRootCmd(factory ServicesFactory) *cobra.Command {
	root, _ := newRoot(factory)
	return root
}

func newRoot(factory ServicesFactory) (*cobra.Command, *app) {
	if factory == nil {
		factory = NewServices
	}
	a := &app{factory: factory}

	root := &cobra.Command{
		Use:   "docqa",
		Short: "Question answering over a folder of technical PDFs",
		Long: `docqa uploads PDF manuals to blob storage, indexes them into a
vector search index and answers questions grounded on the indexed text.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.env, "env", config.GetEnv(), "environment, selects config/<env>.yaml")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "explicit config file (overrides --env)")

	root.AddCommand(
		newUploadCmd(a),
		newListCmd(a),
		newIndexCmd(a),
		newIngestCmd(a),
		newPipelineCmd(a),
		newAskCmd(a),
		newSearchCmd(a),
		newAnalyzeCmd(a),
		newChatCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root, a
}

// PrintError writes a failed command's error to w. Interruption is a normal
// way to leave and prints nothing.
func PrintError(w io.Writer, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	_, _ = fmt.Fprintln(w, "Error:", err)
}

// ExitCode maps a command error to the process exit code. Only configuration
// problems and command failures are non-zero; per-document failures are
// reported in command output and never reach here.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitOK
	case errors.Is(err, domain.ErrConfig):
		return ExitConfig
	default:
		return ExitError
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if _, ok := cmd.Annotations[skipSetup]; ok {
		return nil
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load(a.env)
	}
	if err != nil {
		return err
	}

	loggerEnv := "dev"
	if a.env == "prod" {
		loggerEnv = "prod"
	}
	a.logger, err = logpkg.NewLogger(loggerEnv, a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}

	a.services = a.factory(&a.cfg, a.logger)
	return nil
}

func (a *app) teardown() {
	if a.services != nil {
		a.services.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
