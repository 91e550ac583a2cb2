package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/db"
	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/engine/local"
	"github.com/sells-group/rws-cli/internal/engine/postgis"
)

// openEngine builds the configured engine. The returned func releases it and
// any pool it opened.
func openEngine(ctx context.Context) (engine.Engine, func(), error) {
	switch cfg.Engine.Driver {
	case "", "local":
		eng := local.New(local.WithSegments(cfg.Engine.Segments))
		return eng, func() { _ = eng.Close() }, nil
	case "postgis":
		pool, err := db.Connect(ctx, cfg.Engine.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		eng := postgis.New(pool, postgis.Config{
			Schema:           cfg.Engine.Schema,
			SRID:             cfg.Engine.SRID,
			Raster2PgsqlPath: cfg.Engine.Raster2PgsqlPath,
			TileSize:         cfg.Engine.TileSize,
		})
		if err := eng.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		zap.L().Debug("postgis engine ready", zap.String("schema", cfg.Engine.Schema))
		return eng, func() {
			_ = eng.Close()
			pool.Close()
		}, nil
	default:
		return nil, nil, eris.Errorf("unsupported engine driver: %s", cfg.Engine.Driver)
	}
}
