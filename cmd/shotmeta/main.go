// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command shotmeta enriches a JSON file of movie shots with random
// timestamps and Gemini-generated descriptions.
//
//	shotmeta timestamps            # add "timestamp" to every shot
//	shotmeta describe --workers 4  # add "description" to every shot
//	shotmeta enrich                # both, then write once
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/workflow"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, &options{}, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// execute runs the command line with args and logs the outcome. Whatever
// setup acquired is released afterwards, whether or not the command failed.
func execute(ctx context.Context, opts *options, args []string) error {
	root := newRootCommandWith(opts)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "shotmeta failed", "error", err)
	}
	if tErr := opts.teardown(context.WithoutCancel(ctx)); tErr != nil {
		slog.Error("teardown failed", "error", tErr)
		err = errors.Join(err, tErr)
	}
	return err
}

// newRootCommandWith builds the command tree around opts.
func newRootCommandWith(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "shotmeta",
		Short:         "Enrich a shot metadata file with timestamps and descriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}
	opts.addCommonFlags(root)

	root.AddCommand(
		newModeCommand(opts, workflow.ModeTimestamps,
			"Set a random timestamp on every shot",
			"Sets \"timestamp\" to a random HH:MM:SS value on every object in the\n"+
				"dataset. The generator is seeded, so a fixed seed and dataset give the\n"+
				"same timestamps on every run."),
		newModeCommand(opts, workflow.ModeDescribe,
			"Describe every shot with Gemini",
			"Sends each shot image with the formatted prompt to the configured\n"+
				"model and stores the answer under \"description\". Any failure aborts\n"+
				"the run and leaves the file untouched."),
		newModeCommand(opts, workflow.ModeEnrich,
			"Set timestamps and descriptions in one pass",
			"Runs the timestamp and description stages and writes the file once."),
		newInitPromptCommand(opts),
	)
	return root
}

func newModeCommand(opts *options, mode workflow.Mode, short string, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(mode),
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context(), mode)
		},
	}
	if mode.Stamps() {
		opts.addTimestampFlags(cmd)
	}
	if mode.Describes() {
		opts.addDescribeFlags(cmd)
	}
	return cmd
}

func newInitPromptCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-prompt",
		Short: "Write the default prompt template",
		Long: "Writes the built-in prompt template to the prompt path unless the\n" +
			"file already exists. Use --force to overwrite it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.initPrompt(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&opts.promptPath, "prompt", "", "prompt template file to write")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing file")
	return cmd
}
