package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treasure-raffle/internal/app/admin"
	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/app/raffle"
	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/commitstore"
	"treasure-raffle/internal/config"
	"treasure-raffle/internal/logging"
	"treasure-raffle/internal/poller"
	"treasure-raffle/internal/reconcile"
	"treasure-raffle/internal/store"
	"treasure-raffle/internal/stream"
	httptransport "treasure-raffle/internal/transport/http"
	"treasure-raffle/internal/txflow"
	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}
	if err := logging.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("init logging failed")
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := cfg.Client
	rpc, err := ethclient.DialContext(ctx, client.RPCURL)
	if err != nil {
		log.Fatal().Err(err).Str("rpc", client.RPCURL).Msg("dial rpc failed")
	}
	defer rpc.Close()

	w, err := wallet.NewKeyWallet(client.WalletKeyHex(), client.ChainID, rpc, client.ReceiptTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("load wallet failed")
	}
	log.Info().Str("wallet", w.Address().Hex()).Int64("chain_id", client.ChainID).Msg("wallet loaded")

	backend, err := store.OpenBackend(ctx, client.PostgresDSN, client.CommitFile)
	if err != nil {
		log.Fatal().Err(err).Msg("open commit store failed")
	}
	defer backend.Close()

	hub := stream.NewHub(client.EventBufferSize)
	defer hub.Close()
	poll, err := poller.New(client.PollInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("start poller failed")
	}
	defer func() {
		if err := poll.Stop(); err != nil {
			log.Warn().Err(err).Msg("stop poller")
		}
	}()

	reader := chain.NewReader(rpc, client.HuntAddress(), client.RaffleAddress())
	calls := chain.NewCalls(client.HuntAddress(), client.RaffleAddress())
	commits := commitstore.NewCache(backend.Backend)

	raffleRunner := txflow.NewRunner("raffle", w)
	adminRunner := txflow.NewRunner("admin", w)
	for _, r := range []*txflow.Runner{raffleRunner, adminRunner} {
		r.OnChange(func(st txflow.Status) { hub.Publish(hunt.FlowsTopic, "flow", hunt.FlowView(st)) })
	}

	hunts := hunt.NewService(hunt.Deps{
		Reader:     reader,
		Calls:      calls,
		Commits:    commits,
		Reconciler: reconcile.NewReconciler(commits, client.PendingCommitGrace),
		Runner:     txflow.NewRunner("hunt", w),
		Hub:        hub,
		Poller:     poll,
	})
	raffles := raffle.NewService(reader, calls, raffleRunner, raffle.Config{
		EntryFee: client.EntryFee(),
		DrawFrom: client.DrawRaffleFrom,
		DrawTo:   client.DrawRaffleTo,
		DrawMin:  client.DrawMinParticipations,
	})
	admins := admin.NewService(reader, calls, adminRunner, client.AdminWallet())

	r := httptransport.NewRouter(httptransport.Deps{
		Hunts:       hunts,
		Raffles:     raffles,
		Admin:       admins,
		Hub:         hub,
		AdminAPIKey: client.AdminAPIKey,
		Ping:        backend.Ping,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              client.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", client.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Event streams only end once the hub closes.
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}
