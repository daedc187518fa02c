// tabulactl runs Tabula chat commands and DAO queries from a terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tabula-labs/tabula/internal/backend"
	"github.com/tabula-labs/tabula/internal/chaindata"
	"github.com/tabula-labs/tabula/internal/chat"
	"github.com/tabula-labs/tabula/internal/config"
	"github.com/tabula-labs/tabula/internal/delegation"
	"github.com/tabula-labs/tabula/internal/domain"
	"github.com/tabula-labs/tabula/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tabulactl: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	format  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "tabulactl",
		Short:         "Delegate governance tokens and query DAO intelligence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format: text or json")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newHoldingsCmd(opts))
	cmd.AddCommand(newDelegationsCmd(opts))
	cmd.AddCommand(newUpdatesCmd(opts))
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	out := io.Discard
	if o.verbose {
		out = cmd.ErrOrStderr()
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (o *rootOptions) print(cmd *cobra.Command, v any, text func(io.Writer)) error {
	switch strings.ToLower(o.format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text":
		text(cmd.OutOrStdout())
		return nil
	default:
		return fmt.Errorf("unsupported --format %q", o.format)
	}
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Run one chat command, e.g. send delegate 10 SEAM to Seamless Protocol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)

			params, err := cfg.DelegationParams()
			if err != nil {
				return err
			}
			executor, err := delegation.NewExecutor(params, logger)
			if err != nil {
				return err
			}

			session := chat.NewSession("cli", "cli-"+uuid.NewString(), executor, nil, logger)
			if from != "" {
				address, ok := parseAddress(from)
				if !ok {
					return fmt.Errorf("invalid --from address %q", from)
				}
				if cfg.WalletRPCURL == "" {
					return fmt.Errorf("--from needs WALLET_RPC_URL")
				}
				signer, err := wallet.DialRPCSigner(cmd.Context(), cfg.WalletRPCURL, address, logger)
				if err != nil {
					return err
				}
				defer signer.Close()
				session.SetSigner(signer)
			}

			reply, err := session.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if perr := opts.print(cmd, reply.Messages, func(w io.Writer) {
				for _, m := range reply.Messages {
					if m.Role == chat.RoleAssistant {
						fmt.Fprintln(w, m.Content)
					}
				}
			}); perr != nil {
				return perr
			}
			if reply.Failure != nil {
				return fmt.Errorf("delegation failed (%s)", reply.Failure.Kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "wallet address to sign with through WALLET_RPC_URL")
	return cmd
}

func newHoldingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings <address>",
		Short: "List governance token balances of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, ok := parseAddress(args[0])
			if !ok {
				return fmt.Errorf("invalid address %q", args[0])
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			provider, err := holdingsProvider(cmd.Context(), cfg, opts.logger(cmd))
			if err != nil {
				return err
			}
			holdings, err := provider.Holdings(cmd.Context(), address)
			if err != nil {
				return err
			}
			return opts.print(cmd, holdings, func(w io.Writer) {
				if len(holdings) == 0 {
					fmt.Fprintln(w, "no governance tokens found")
				}
				for _, h := range holdings {
					fmt.Fprintf(w, "%-14s %s %s\n", h.ChainID, h.TokenAddress, h.Balance)
				}
			})
		},
	}
}

func newDelegationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delegations <address>",
		Short: "Show active, available and recommended DAO delegations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, ok := parseAddress(args[0])
			if !ok {
				return fmt.Errorf("invalid address %q", args[0])
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := backend.New(cfg.BackendURL, &http.Client{Timeout: cfg.RequestTimeout}, opts.logger(cmd))
			data, err := client.Delegations(cmd.Context(), address.Hex())
			if err != nil {
				return err
			}
			return opts.print(cmd, data, func(w io.Writer) {
				writeDelegations(w, "Active", data.ActiveDelegations)
				writeDelegations(w, "Available", data.AvailableDelegations)
				writeDelegations(w, "Recommended", data.RecommendedDelegations)
			})
		},
	}
}

func newUpdatesCmd(opts *rootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "updates [slug...]",
		Short: "Show prioritized governance updates for DAOs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)
			client := backend.New(cfg.BackendURL, &http.Client{Timeout: cfg.RequestTimeout}, logger)

			slugs := args
			var holdings []domain.TokenHolding
			if address != "" {
				addr, ok := parseAddress(address)
				if !ok {
					return fmt.Errorf("invalid --address %q", address)
				}
				if len(slugs) == 0 {
					data, err := client.Delegations(cmd.Context(), addr.Hex())
					if err != nil {
						return err
					}
					slugs = data.Slugs()
				}
				provider, err := holdingsProvider(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				if holdings, err = provider.Holdings(cmd.Context(), addr); err != nil {
					return err
				}
			}
			if len(slugs) == 0 {
				return fmt.Errorf("pass DAO slugs or --address")
			}

			updates, err := client.Updates(cmd.Context(), slugs, holdings)
			if err != nil {
				return err
			}
			return opts.print(cmd, updates, func(w io.Writer) {
				for _, u := range updates {
					fmt.Fprintf(w, "[%s] %s: %s (%s)\n", strings.ToUpper(string(u.Priority)), u.DaoName, u.Title, u.Timestamp)
				}
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet whose delegations and holdings scope the updates")
	return cmd
}

func writeDelegations(w io.Writer, title string, dels []domain.Delegation) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(dels))
	for _, d := range dels {
		fmt.Fprintf(w, "  %-24s %-16s %s\n", d.DaoName, d.DaoSlug, d.TokenAmount)
	}
}

func holdingsProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (chaindata.Provider, error) {
	if cfg.HoldingsSource == config.HoldingsPortfolio {
		return chaindata.NewPortfolioClient(cfg.PortfolioURL, nil, &http.Client{Timeout: cfg.RequestTimeout}, logger), nil
	}
	return chaindata.DialBalanceReader(ctx, cfg.RPCURLs, logger)
}

func parseAddress(raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
