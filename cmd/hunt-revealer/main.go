package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/commitstore"
	"treasure-raffle/internal/config"
	"treasure-raffle/internal/logging"
	"treasure-raffle/internal/reconcile"
	"treasure-raffle/internal/store"
	"treasure-raffle/internal/txflow"
	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	defer logging.Close()
	cfg, err := config.LoadRevealer()
	if err != nil {
		log.Fatal().Err(err).Msg("load revealer config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Uint64("hunt_id", cfg.HuntID).Msg("revealer stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.RevealerConfig, in io.Reader, out io.Writer) error {
	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer rpc.Close()

	kw, err := wallet.NewKeyWallet(cfg.WalletKeyHex(), cfg.ChainID, rpc, cfg.ReceiptTimeout)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	var w wallet.Wallet = kw
	if !cfg.AutoApprove {
		w = wallet.WithApproval(kw, newPrompt(in, out))
	}

	backend, err := store.OpenBackend(ctx, cfg.PostgresDSN, cfg.CommitFile)
	if err != nil {
		return fmt.Errorf("open commit store: %w", err)
	}
	defer backend.Close()
	commits := commitstore.NewCache(backend.Backend)

	svc := hunt.NewService(hunt.Deps{
		Reader:     chain.NewReader(rpc, cfg.HuntAddress(), cfg.RaffleAddress()),
		Calls:      chain.NewCalls(cfg.HuntAddress(), cfg.RaffleAddress()),
		Commits:    commits,
		Reconciler: reconcile.NewReconciler(commits, cfg.PendingCommitGrace),
		Runner:     txflow.NewRunner("revealer", w),
	})
	fmt.Fprintf(out, "wallet %s, hunt %d\n", kw.Address().Hex(), cfg.HuntID)

	revealed, err := svc.RevealAll(ctx, cfg.HuntID)
	switch {
	case errors.Is(err, hunt.ErrNothingToReveal):
		fmt.Fprintln(out, "nothing to reveal")
	case err != nil:
		fmt.Fprintf(out, "revealed %v, %d left: %s\n", revealed.Revealed, len(revealed.Remaining), txflow.FailureMessage)
		return err
	default:
		fmt.Fprintf(out, "revealed %v\n", revealed.Revealed)
	}

	if !cfg.ClaimTreasures {
		return nil
	}
	claimed, err := svc.ClaimAll(ctx, cfg.HuntID)
	switch {
	case errors.Is(err, hunt.ErrNothingToClaim):
		fmt.Fprintln(out, "nothing to claim")
	case err != nil:
		fmt.Fprintf(out, "claimed %v, %d left: %s\n", claimed.Claimed, len(claimed.Remaining), txflow.FailureMessage)
		return err
	default:
		fmt.Fprintf(out, "claimed treasures %v\n", claimed.Claimed)
	}
	return nil
}

// prompt asks on the terminal before every signature and transaction.
type prompt struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newPrompt(in io.Reader, out io.Writer) *prompt {
	return &prompt{in: bufio.NewReader(in), out: out}
}

func (p *prompt) Approve(_ context.Context, req wallet.Request) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch req.Kind {
	case "sign":
		fmt.Fprintf(p.out, "sign message %q? [y/N] ", req.Message)
	default:
		fmt.Fprintf(p.out, "send %s to %s", req.Action, req.To.Hex())
		if req.Value != nil && req.Value.Sign() > 0 {
			fmt.Fprintf(p.out, " with %s wei", req.Value.String())
		}
		fmt.Fprint(p.out, "? [y/N] ")
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
