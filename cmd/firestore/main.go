package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-firestore/pkg/config"
	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/connector"
	"github.com/ajitpratap0/nebula-firestore/pkg/credentials"
	"github.com/ajitpratap0/nebula-firestore/pkg/logger"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-firestore/pkg/observability"
	"github.com/ajitpratap0/nebula-firestore/pkg/propertymap"
	"github.com/ajitpratap0/nebula-firestore/pkg/validation"
)

var version = "0.1.0"

const (
	modeSource = "source"
	modeSink   = "sink"
)

// envelope is the file format shared by encode and open.
type envelope struct {
	Format     string           `json:"format"`
	Properties *propertymap.Map `json:"properties"`
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FIRESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var shutdownTracing observability.ShutdownFunc

	root := &cobra.Command{
		Use:   "firestore",
		Short: "Firestore batch connector tooling",
		Long: `Validate Firestore connector job files, encode them into the property maps
shipped to workers, and check that a property map can open a connection.

Every flag can also be set through the environment, e.g. FIRESTORE_LOG_LEVEL=debug.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := logger.Init(logger.Config{
				Level:       v.GetString("log-level"),
				Encoding:    "console",
				OutputPaths: []string{"stderr"},
			}); err != nil {
				return err
			}
			if v.GetBool("trace") {
				shutdown, err := observability.Init(observability.DefaultTracingConfig())
				if err != nil {
					return err
				}
				shutdownTracing = shutdown
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdownTracing != nil {
				return shutdownTracing(cmd.Context())
			}
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "error", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("trace", false, "Print OpenTelemetry spans to stderr")

	root.AddCommand(
		newVersionCmd(),
		newValidateCmd(v),
		newEncodeCmd(v),
		newOpenCmd(v),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nebula-firestore v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a job file",
		Long: `Validate reports every problem in the job file at once. Fields holding a
${macro:name} value are skipped; the host resolves them later.

Example:
  firestore validate --config job.yaml --mode source`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.LoadJob(v.GetString("config"))
			if err != nil {
				return err
			}

			modes, err := jobModes(job, v.GetString("mode"))
			if err != nil {
				return err
			}

			// connection rules run once per section; report each failure once
			var failures validation.Failures
			var spec connection.Spec
			seen := make(map[validation.Failure]bool)
			for _, mode := range modes {
				modeFailures, s, err := validateMode(job, mode)
				if err != nil {
					return err
				}
				for _, f := range modeFailures {
					if !seen[f] {
						seen[f] = true
						failures = append(failures, f)
					}
				}
				spec = s
			}

			out := cmd.OutOrStdout()
			if spec.AutoServiceAccountUnavailable(cmd.Context(), credentials.NewResolver()) {
				fmt.Fprintln(out, "note: no ambient credentials here, connectivity checks skipped")
			}
			if len(failures) == 0 {
				fmt.Fprintln(out, "configuration is valid")
				return nil
			}

			failures.Record()
			for _, f := range failures {
				fmt.Fprintf(out, "%s: %s\n", f.Field, f.Message)
			}
			return nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation, "%d validation failure(s)", len(failures))
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to the job YAML file (required)")
	cmd.Flags().StringP("mode", "m", "", "Section to validate: source or sink (default: every section present)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newEncodeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Validate a job file and print its property map",
		Long: `Encode prints the format name and property map a worker receives, as JSON.
All macros must be resolved before encoding.

Example:
  firestore encode --config job.yaml --mode sink > props.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.LoadJob(v.GetString("config"))
			if err != nil {
				return err
			}

			var format *connector.Format
			switch mode := v.GetString("mode"); mode {
			case modeSource:
				spec, err := job.SourceSpec()
				if err != nil {
					return err
				}
				format, err = connector.SourceFormat(spec)
				if err != nil {
					return err
				}
			case modeSink:
				spec, err := job.SinkSpec()
				if err != nil {
					return err
				}
				format, err = connector.SinkFormat(spec)
				if err != nil {
					return err
				}
			default:
				return unknownMode(mode)
			}

			data, err := json.MarshalIndent(envelope{Format: format.Name, Properties: format.Properties}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to the job YAML file (required)")
	cmd.Flags().StringP("mode", "m", "", "Section to encode: source or sink (required)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

func newOpenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open and close a connection from an encoded property map",
		Long: `Open does what a worker does at task start: decode the property map, resolve
credentials, open a Firestore client, then close it again.

Example:
  firestore open --properties props.json --timeout 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString("properties")
			data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
			if err != nil {
				return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "failed to read properties file").
					WithDetail("path", path)
			}

			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to parse properties file").
					WithDetail("path", path)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
			defer cancel()

			task, err := connector.NewFactory().OpenFormat(ctx, env.Format, env.Properties)
			if err != nil {
				return err
			}
			defer func() {
				if err := task.Close(); err != nil {
					logger.Get().Warn("failed to close connection", zap.Error(err))
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "connected to project %q, database %q\n",
				task.Handle.Project(), task.Handle.Database())
			return nil
		},
	}
	cmd.Flags().StringP("properties", "p", "", "Path to a properties JSON file written by encode (required)")
	cmd.Flags().Duration("timeout", 30*time.Second, "Give up opening the connection after this long")
	_ = cmd.MarkFlagRequired("properties")
	return cmd
}

func jobModes(job *config.JobConfig, mode string) ([]string, error) {
	switch mode {
	case modeSource, modeSink:
		return []string{mode}, nil
	case "":
		var modes []string
		if job.Source != nil {
			modes = append(modes, modeSource)
		}
		if job.Sink != nil {
			modes = append(modes, modeSink)
		}
		if len(modes) == 0 {
			return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "job has neither a source nor a sink section")
		}
		return modes, nil
	default:
		return nil, unknownMode(mode)
	}
}

func validateMode(job *config.JobConfig, mode string) (validation.Failures, connection.Spec, error) {
	if mode == modeSource {
		spec, err := job.SourceSpec()
		if err != nil {
			return nil, spec.Spec, err
		}
		return validation.ValidateSource(spec), spec.Spec, nil
	}
	spec, err := job.SinkSpec()
	if err != nil {
		return nil, spec.Spec, err
	}
	return validation.ValidateSink(spec), spec.Spec, nil
}

func unknownMode(mode string) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "unknown mode %q, expected source or sink", mode)
}
