package main

import (
	"github.com/spf13/cobra"

	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/server"
	"github.com/antibyte/linebasic/pkg/store"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the program library and run service",
		Long: `Start the HTTP server:

  POST /api/login      trade username and password for a token
  GET  /api/programs   list stored programs (token)
  POST /api/programs   compile and store a program (token)
  GET  /ws?token=...   run programs and stream their output

The address defaults to [Server] listen. HTTPS is configured in [TLS].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = configuration.GetString("Server", "listen", ":8080")
			}

			lib, err := openStore()
			if err != nil {
				return err
			}
			defer lib.Close()

			logger.ServerInfo("linebasic server starting on %s", listen)
			return server.New(lib).ListenAndServe(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from [Server] listen)")
	return cmd
}

// openStore opens the library database named in [Store] database.
func openStore() (*store.Store, error) {
	return store.Open(configuration.GetString("Store", "database", "basic.db"))
}
