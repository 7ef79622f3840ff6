// Command wikictl inspects and edits the wiki buckets directly, using the
// same engines and configuration as the HTTP service.
package main

import (
	"context"
	"os"

	"github.com/wikifun/wikifun/backend/go-services/internal/bootstrap"
	"github.com/wikifun/wikifun/backend/go-services/internal/config"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetOutput(os.Stderr)
	if err := newRootCmd(openEngines).Execute(); err != nil {
		os.Exit(1)
	}
}

func openEngines(ctx context.Context) (*bootstrap.Engines, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.Build(ctx, cfg)
}
