package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mcpscout/mcpcrawl/internal/api"
	"github.com/mcpscout/mcpcrawl/pkg/crawler"
)

// serveCommand creates the serve command: the long-running mode hosting the
// scheduler and the ops API together.
func (c *CLI) serveCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the ops API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, st, err := c.openCrawler()
			if err != nil {
				return err
			}
			defer st.Close()

			logger := loggerFromContext(cmd.Context())
			srv := &http.Server{
				Addr:              listen,
				Handler:           api.New(cr, st).Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				err := crawler.NewScheduler(cr).Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				logger.Info("ops api listening", "addr", listen)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8787", "ops API listen address")
	return cmd
}
