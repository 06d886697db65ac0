package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/adi-family/lib-typespec-api/internal/openapi"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

var (
	serveAddr  string
	serveTitle string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <inputs...>",
		Short: "Serve the generated OpenAPI document with interactive docs",
		Long: `Build the OpenAPI document in memory and serve it over HTTP.

Routes:
  /openapi.json  the document as JSON
  /openapi.yaml  the document as YAML
  /docs          Swagger UI
  /redoc         ReDoc

Example:
  tspgen serve api.tsp --addr :8080 -p petstore`,
		Args: cobra.MinimumNArgs(1),
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	cmd.Flags().StringVarP(&serveTitle, "package", "p", "api", "document title")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	file, err := parseInputs(args)
	if err != nil {
		return err
	}

	cfg := openapi.DefaultConfig()
	cfg.Title = serveTitle
	spec, err := openapi.NewGenerator(cfg).Generate(resolver.New(file))
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	openapi.NewHandler(spec).RegisterRoutes(router)

	slog.Info("serving OpenAPI document", "addr", serveAddr, "title", serveTitle)
	fmt.Fprintf(cmd.OutOrStdout(), "serving docs on %s\n", serveAddr)
	return http.ListenAndServe(serveAddr, router)
}
