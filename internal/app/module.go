// Package app composes the client: store, bus, backend service, the three
// controllers, and the terminal UI, wired through fx.
package app

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/caredesk/caredesk/internal/appointments"
	"github.com/caredesk/caredesk/internal/auth"
	"github.com/caredesk/caredesk/internal/backend/local"
	"github.com/caredesk/caredesk/internal/bus"
	"github.com/caredesk/caredesk/internal/care"
	"github.com/caredesk/caredesk/internal/logging"
	"github.com/caredesk/caredesk/internal/messaging"
	"github.com/caredesk/caredesk/internal/profile"
	"github.com/caredesk/caredesk/internal/roster"
	"github.com/caredesk/caredesk/internal/store"
	"github.com/caredesk/caredesk/internal/tui"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("caredesk",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideIdentity,
			provideService,
			provideAppointments,
			provideMessaging,
			provideRoster,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*profile.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := profile.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, _ *profile.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(p Params, logger *zap.Logger) (auth.Identity, error) {
	id, err := auth.Load(profile.TokenPath(p.ProfileName))
	if err != nil {
		return auth.Identity{}, errors.Join(
			errors.New("no valid token for profile, run caredesk-seed first"), err)
	}
	logger.Info("identity loaded",
		zap.String("user", id.UserID), zap.String("role", string(id.Role)))
	return id, nil
}

func provideService(db *store.DB, b *bus.Bus, logger *zap.Logger) *local.Service {
	return local.New(db, b, logger)
}

func provideAppointments(svc *local.Service, id auth.Identity, logger *zap.Logger) *appointments.Controller {
	return appointments.New(svc, id, logger)
}

func provideMessaging(svc *local.Service, id auth.Identity, logger *zap.Logger) *messaging.Controller {
	return messaging.New(svc, id, logger)
}

// provideRoster returns nil for patient users; the patients page only exists
// for doctors.
func provideRoster(svc *local.Service, id auth.Identity, logger *zap.Logger) *roster.Controller {
	if id.Role != care.RoleDoctor {
		return nil
	}
	return roster.New(svc, id, logger)
}

func provideApp(p Params, id auth.Identity, ac *appointments.Controller, mc *messaging.Controller, rc *roster.Controller) *tui.App {
	return tui.NewApp(id, ac, mc, rc, p.ProfileName)
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, app *tui.App, db *store.DB, lk *profile.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := app.Run(); err != nil {
					logger.Error("ui error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			app.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
