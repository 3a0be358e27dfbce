package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gitlab.com/SmartLease/leaserouter/internal/config"
	"gitlab.com/SmartLease/leaserouter/internal/handlers/httphandlers"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
	"gitlab.com/SmartLease/leaserouter/internal/rental"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/ledger"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
	"gitlab.com/SmartLease/leaserouter/internal/wallet"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := start(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func start() error {
	_ = godotenv.Load()

	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		return err
	}

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FolderPath)
	if err != nil {
		return err
	}
	ethLog, err := lib.NewLogger(cfg.Log.LevelEthereum, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FolderPath)
	if err != nil {
		return err
	}
	rentalLog, err := lib.NewLogger(cfg.Log.LevelRental, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FolderPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Infof("version: %s", config.BuildVersion)
	log.Infof("config: %+v", cfg.GetSanitized())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("received signal: %s, forcing exit", s)
		os.Exit(1)
	}()

	ethClient, err := ledger.DialContext(ctx, cfg.Blockchain.EthNodeAddress)
	if err != nil {
		return err
	}
	defer ethClient.Close()

	bytecode, err := os.ReadFile(cfg.Contract.BytecodePath)
	if err != nil {
		return fmt.Errorf("cannot read contract bytecode: %w", err)
	}

	gateway := ledger.NewRentalEthereum(ethClient, string(bytecode), ethLog.Named("GATEWAY"))
	gateway.SetLegacyTx(cfg.Blockchain.EthLegacyTx)
	gateway.SetTxTimeout(cfg.Blockchain.TxTimeout)

	st, err := store.Open(cfg.DB.Dialect, cfg.DB.DSN, log.Named("STORE"))
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	service := rental.NewService(st, gateway, cfg.Contract.DurationUnit, rentalLog)
	router := httphandlers.NewHTTPHandler(service, &cfg, log.Named("HTTP"))

	server := &http.Server{
		Addr:    cfg.Web.Address,
		Handler: router,
	}

	g, errCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("http server is listening: %s", cfg.Web.Address)
		err := server.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-errCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Renewal.Enable {
		keys, err := renewalKeyResolver(&cfg)
		if err != nil {
			return err
		}
		sweeper := rental.NewRenewalSweeper(st, gateway, keys,
			cfg.Contract.DurationUnit, cfg.Renewal.Interval, rentalLog.Named("RENEWAL"))
		sweepTask := lib.NewTask(sweeper, "renewal-sweep")
		sweepTask.Start(errCtx)
		g.Go(func() error {
			<-sweepTask.Done()
			if err := sweepTask.Err(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// renewalKeyResolver picks the landlord key source for unattended renewal:
// a mnemonic-derived account when configured, otherwise the encrypted key
// file sealed by the keytool command.
func renewalKeyResolver(cfg *config.Config) (rental.KeyResolver, error) {
	if cfg.Renewal.Mnemonic != "" {
		w, err := wallet.NewWalletFromMnemonic(cfg.Renewal.Mnemonic, cfg.Renewal.AccountIndex)
		if err != nil {
			return nil, err
		}
		return wallet.StaticKey(w.PrivateKey()), nil
	}
	if cfg.Renewal.EncryptedKeyPath == "" {
		return nil, fmt.Errorf("renewal enabled but no key source configured")
	}
	return &wallet.EncryptedKeyFile{
		Path:       cfg.Renewal.EncryptedKeyPath,
		Passphrase: cfg.Renewal.KeyPassphrase,
	}, nil
}
