package cmd

import (
	"context"
	"errors"
	"fmt"

	"blocklucky/config"
	"blocklucky/database"
	"blocklucky/events"
	"blocklucky/models"
	"blocklucky/repository"
	"blocklucky/repository/memory"
	"blocklucky/service"

	log "github.com/sirupsen/logrus"
)

// app holds the store and bus shared by every command
type app struct {
	cfg     *config.Config
	db      *database.DB // nil with the memory driver
	bus     *events.Bus
	factory service.UnitOfWorkFactory
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, bus: events.NewBus()}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory store, state is lost on exit")
		a.factory = memory.NewUnitOfWorkFactory(memory.NewStore(), a.bus)
	default:
		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), database.WithMaxConns(cfg.DatabaseMaxConns))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Database connection established successfully")
		a.db = db
		a.factory = repository.NewUnitOfWorkFactory(db, a.bus)
	}

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		log.Info("Closing database connection...")
		a.db.Close()
	}
}

// health pings the database, the memory store is always healthy
func (a *app) health(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Health(ctx)
}

// lotteryService returns the service for the configured lottery
func (a *app) lotteryService() (service.LotteryService, error) {
	random, err := service.NewRandomSource(a.cfg.RandomSource, 0)
	if err != nil {
		return nil, err
	}
	return service.NewLotteryService(a.factory, a.cfg.LotteryID, random), nil
}

// ensureLottery deploys the configured lottery when it does not exist yet
// and an owner is configured
func (a *app) ensureLottery(ctx context.Context) error {
	lottery, err := a.lotteryService()
	if err != nil {
		return err
	}

	_, err = lottery.GetLottery(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrLotteryNotFound) {
		return err
	}
	if a.cfg.OwnerAddress == "" {
		return fmt.Errorf("lottery %d does not exist and OWNER_ADDRESS is not set; run deploy first", a.cfg.LotteryID)
	}

	deployed, err := service.Deploy(ctx, a.factory, a.cfg.Owner(), a.cfg.MinParticipants, a.cfg.TicketPrice())
	if err != nil {
		return err
	}
	if deployed.ID != a.cfg.LotteryID {
		log.WithFields(log.Fields{
			"configured": a.cfg.LotteryID,
			"deployed":   deployed.ID,
		}).Warn("Deployed lottery ID differs from LOTTERY_ID, serving the new lottery")
		a.cfg.LotteryID = deployed.ID
	}
	return nil
}
