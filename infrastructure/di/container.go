package di

import (
	"context"
	"path/filepath"

	"ixp-grapher/application/services"
	querybus "ixp-grapher/application/queries/bus"
	"ixp-grapher/infrastructure/backends"
	"ixp-grapher/infrastructure/cache"
	"ixp-grapher/infrastructure/config"
	"ixp-grapher/infrastructure/persistence/memory"
	"ixp-grapher/infrastructure/session"
	"ixp-grapher/interfaces/http/rest"
	"ixp-grapher/pkg/auth"
	"ixp-grapher/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Collector
	Exchange    *memory.ExchangeRepository
	Trunks      *memory.StaticTrunks
	Backends    *backends.Registry
	RenderCache *cache.RenderCache
	CacheAdmin  *services.CacheAdmin
	Graphs      *services.GraphService
	QueryBus    *querybus.QueryBus
	Sessions    *session.Manager
	Limiter     *auth.TokenBucketLimiter
	Router      *rest.Router
}

// WatchFiles reloads the inventory and the trunk list when their files
// change and clears the render cache afterwards. The caller stops the
// returned watcher.
func (c *Container) WatchFiles(ctx context.Context) (*config.FileWatcher, error) {
	watcher, err := config.NewFileWatcher(c.Logger, c.Config.Inventory.Path, c.Config.File)
	if err != nil {
		return nil, err
	}

	inventory, _ := filepath.Abs(c.Config.Inventory.Path)
	watcher.OnChange(func(path string) {
		var err error
		if path == inventory {
			err = c.reloadInventory()
		} else {
			err = c.reloadTrunks()
		}
		if err != nil {
			c.Logger.Error("Reload failed, keeping previous state",
				zap.String("file", path),
				zap.Error(err))
			return
		}
		if err := c.CacheAdmin.InvalidateAll(ctx, "reload "+filepath.Base(path), false); err != nil {
			c.Logger.Error("Failed to clear render cache after reload", zap.Error(err))
		}
	})
	return watcher, nil
}

func (c *Container) reloadInventory() error {
	snap, err := memory.LoadSnapshot(c.Config.Inventory.Path)
	if err != nil {
		return err
	}
	c.Exchange.Replace(snap)
	c.Logger.Info("Exchange inventory reloaded",
		zap.Int("customers", len(snap.Customers)),
		zap.Int("vlan_interfaces", len(snap.VlanInterfaces)))
	return nil
}

// reloadTrunks rereads the config file. Only the trunk list is applied;
// every other setting needs a restart.
func (c *Container) reloadTrunks() error {
	cfg, err := config.LoadFile(c.Config.File)
	if err != nil {
		return err
	}
	c.Trunks.Replace(cfg.Grapher.Trunks)
	c.Logger.Info("Trunk list reloaded", zap.Int("trunks", len(cfg.Grapher.Trunks)))
	return nil
}
