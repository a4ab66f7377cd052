package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/muj89/usdt-p2p-moniter/internal/archive"
	"github.com/muj89/usdt-p2p-moniter/internal/binance"
	"github.com/muj89/usdt-p2p-moniter/internal/cache"
	"github.com/muj89/usdt-p2p-moniter/internal/config"
	"github.com/muj89/usdt-p2p-moniter/internal/drive"
	"github.com/muj89/usdt-p2p-moniter/internal/export"
	"github.com/muj89/usdt-p2p-moniter/internal/history"
	"github.com/muj89/usdt-p2p-moniter/internal/logging"
	"github.com/muj89/usdt-p2p-moniter/internal/mail"
	"github.com/muj89/usdt-p2p-moniter/internal/market"
	"github.com/muj89/usdt-p2p-moniter/internal/sched"
	"github.com/muj89/usdt-p2p-moniter/internal/server"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		logging.Fatalf("open history store: %v", err)
	}

	var archiveStore *archive.Store
	if as, err := archive.Open(cfg.ArchivePath); err != nil {
		logging.Errorf("open snapshot archive: %v (continuing without archive)", err)
	} else {
		archiveStore = as
		defer archiveStore.Close()
	}

	snapCache := cache.Disabled()
	if cfg.RedisAddr != "" {
		c, err := cache.NewRedisSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, "")
		if err != nil {
			logging.Errorf("snapshot cache disabled: %v", err)
		} else {
			snapCache = c
			defer snapCache.Close()
		}
	}

	client := binance.NewClient(binance.Config{
		SearchURL: cfg.SearchURL,
		Timeout:   cfg.FetchTimeout,
	})
	composer := market.NewComposer(client, cfg.Rows)
	exporter := export.NewBuilder(store, cfg.ExportDir)

	var publisher *drive.Publisher
	if cfg.DriveCredentials != "" {
		p, err := drive.NewPublisher(ctx, cfg.DriveCredentials, cfg.DriveFolderID)
		if err != nil {
			logging.Errorf("drive publisher disabled: %v", err)
		} else {
			publisher = p
		}
	}

	var mailer *mail.Sender
	if cfg.MailConfigured() {
		m, err := mail.NewSender(mail.Config{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			logging.Errorf("mail sender disabled: %v", err)
		} else {
			mailer = m
		}
	}

	ingest := sched.NewJob("ingest", func(ctx context.Context) {
		snap, err := composer.Snapshot(ctx, cfg.PrimaryAsset, cfg.Fiat)
		if err != nil {
			logging.Errorf("[ingest] compose %s/%s: %v", cfg.PrimaryAsset, cfg.Fiat, err)
			return
		}
		if err := store.Append(snap.HistoryPoint()); err != nil {
			logging.Errorf("[ingest] append failed, point dropped: %v", err)
		}
		if err := snapCache.Set(ctx, snap); err != nil {
			logging.Errorf("[ingest] cache set: %v", err)
		}
		if archiveStore != nil {
			if err := archiveStore.Insert(ctx, snap); err != nil {
				logging.Errorf("[ingest] archive insert: %v", err)
			}
		}
		logging.Infof("[ingest] %s/%s buy=%.2f sell=%.2f (%d/%d offers)",
			snap.Asset, snap.Fiat, snap.BuyPrice, snap.SellPrice,
			snap.BuyOffersCount, snap.SellOffersCount)
	})

	backup := sched.NewJob("drive-backup", func(ctx context.Context) {
		if publisher == nil {
			logging.Debugf("[backup] drive not configured, skipping")
			return
		}
		if _, err := publisher.Publish(ctx, store.Path(), ""); err != nil {
			logging.Errorf("[backup] upload: %v", err)
		}
	})

	var scheduler sched.Scheduler
	scheduler.Every(ctx, cfg.IngestInterval, ingest)
	scheduler.HourlyOnTheHour(ctx, backup)

	srv := server.New(server.Deps{
		Composer:      composer,
		History:       store,
		Exporter:      exporter,
		Publisher:     publisher,
		Mailer:        mailer,
		Archive:       archiveStore,
		Cache:         snapCache,
		Assets:        cfg.Assets,
		PrimaryAsset:  cfg.PrimaryAsset,
		Fiat:          cfg.Fiat,
		MailRecipient: cfg.MailRecipient,
	})

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logging.Errorf("http shutdown: %v", err)
		}
	}()

	logging.Infof("listening on %s (assets=%v fiat=%s interval=%s)",
		cfg.HTTPAddr, cfg.Assets, cfg.Fiat, cfg.IngestInterval)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatalf("http server: %v", err)
	}
	scheduler.Wait()
}
