package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/meetextract/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var existing bool
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Extract transcripts dropped into a directory",
		Long: `Watch a directory and extract every new or changed .txt, .json or .srt
file. A <name>.report.md is written next to each transcript.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Registry().Close() }()

			w, err := watch.NewWatcher(args[0], svc, watch.Options{
				Existing: existing,
				Logger:   a.logger.Underlying(),
			})
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&existing, "existing", false, "also process transcripts already in the directory")
	return cmd
}
