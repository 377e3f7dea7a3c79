package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/pkg/config"
)

// orderCmd represents the order command
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Build, place and manage orders",
	Long: `Order tools.

Subcommands:
  preview  - validate and build an order group offline, print it as JSON
  place    - place an order (paper channel with --dry-run)
  list     - list working orders
  cancel   - cancel an order by id
  watch    - print live order updates from the gateway websocket

Example:
  go run ./cmd/ibdash order preview --symbol EURUSD --side BUY --size 1 --type LMT --limit 1.085 --tp 1.09 --sl 1.08
  go run ./cmd/ibdash order place --dry-run --symbol AAPL --side SELL --size 10 --type MKT`,
}

// orderFlags holds the intent flags shared by preview and place
type orderFlags struct {
	symbol     string
	side       string
	size       float64
	kind       string
	tif        string
	outsideRTH bool

	limit     float64
	stop      float64
	trailAmt  float64
	trailPct  float64
	tp        float64
	sl        float64
	bracketTS float64
}

var (
	previewFlags orderFlags
	placeFlags   orderFlags

	orderPreviewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Validate and build an order group without contacting the gateway",
		RunE:  runOrderPreview,
	}

	orderPlaceCmd = &cobra.Command{
		Use:   "place",
		Short: "Place an order and wait for its acknowledgement",
		RunE:  runOrderPlace,
	}

	orderListCmd = &cobra.Command{
		Use:   "list",
		Short: "List working orders",
		RunE:  runOrderList,
	}

	orderCancelCmd = &cobra.Command{
		Use:   "cancel [order_id]",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE:  runOrderCancel,
	}

	orderWatchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print live order updates until interrupted",
		RunE:  runOrderWatch,
	}
)

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderPreviewCmd)
	orderCmd.AddCommand(orderPlaceCmd)
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderCancelCmd)
	orderCmd.AddCommand(orderWatchCmd)

	bindOrderFlags(orderPreviewCmd, &previewFlags)
	bindOrderFlags(orderPlaceCmd, &placeFlags)
}

func bindOrderFlags(cmd *cobra.Command, f *orderFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.symbol, "symbol", "", "symbol, e.g. EURUSD or AAPL")
	fs.StringVar(&f.side, "side", "", "BUY or SELL")
	fs.Float64Var(&f.size, "size", 0, "size in lots for FX, shares otherwise")
	fs.StringVar(&f.kind, "type", "MKT", "MKT, LMT, STP, STOP_LIMIT, TRAIL or TRAILLMT")
	fs.StringVar(&f.tif, "tif", "DAY", "time in force: DAY, GTC, IOC or GTD")
	fs.BoolVar(&f.outsideRTH, "outside-rth", false, "allow execution outside regular trading hours")
	fs.Float64Var(&f.limit, "limit", 0, "limit price")
	fs.Float64Var(&f.stop, "stop", 0, "stop price")
	fs.Float64Var(&f.trailAmt, "trail-amt", 0, "trailing amount")
	fs.Float64Var(&f.trailPct, "trail-pct", 0, "trailing percent")
	fs.Float64Var(&f.tp, "tp", 0, "bracket take-profit price")
	fs.Float64Var(&f.sl, "sl", 0, "bracket stop-loss price")
	fs.Float64Var(&f.bracketTS, "bracket-trail", 0, "bracket trailing stop amount")
	_ = cmd.MarkFlagRequired("symbol")
}

// intent converts the flags into an order intent. Price flags only count
// when they were given on the command line.
func (f *orderFlags) intent(changed func(name string) bool) order.Intent {
	opt := func(name string, v float64) *float64 {
		if !changed(name) {
			return nil
		}
		return &v
	}

	in := order.Intent{
		Instrument:      gateway.InstrumentFor(f.symbol),
		Side:            order.Side(f.side),
		Size:            f.size,
		Kind:            order.Kind(f.kind),
		TIF:             order.TimeInForce(f.tif),
		OutsideRTH:      f.outsideRTH,
		LimitPrice:      opt("limit", f.limit),
		StopPrice:       opt("stop", f.stop),
		TrailingAmount:  opt("trail-amt", f.trailAmt),
		TrailingPercent: opt("trail-pct", f.trailPct),
	}
	if changed("tp") || changed("sl") || changed("bracket-trail") {
		in.Bracket = &order.BracketSpec{
			TakeProfit:   opt("tp", f.tp),
			StopLoss:     opt("sl", f.sl),
			TrailingStop: opt("bracket-trail", f.bracketTS),
		}
	}
	return in.Normalize()
}

func runOrderPreview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	in := previewFlags.intent(cmd.Flags().Changed)
	builder := order.NewBuilder(order.LotPolicy{LotSize: cfg.Trading.FXLotSize, SecTypes: []string{order.SecTypeCash}})
	group, err := builder.Build(in)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), group)
}

func runOrderPlace(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	in := placeFlags.intent(cmd.Flags().Changed)
	placement, err := a.placer().Place(ctx, in.Instrument, in)
	if err != nil {
		return err
	}
	if !placement.Acknowledged {
		PrintWarning(fmt.Sprintf("no acknowledgement within %s; check the order list", cfg.Trading.AckTimeout))
	}
	return printJSON(cmd.OutOrStdout(), placement)
}

func runOrderList(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	orders, err := a.book.LiveOrders(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), orders)
}

func runOrderCancel(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.channel.Cancel(cmd.Context(), args[0]); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("cancel requested for order %s", args[0]))
	return nil
}

func runOrderWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	stream := gateway.NewStream(cfg.Gateway.BaseURL, cfg.Gateway.InsecureTLS, a.client, log)
	stream.OnOrder(func(u gateway.OrderUpdate) {
		_ = printJSON(out, u)
	})
	stream.OnError(func(err error) {
		PrintError(err.Error())
		stop()
	})
	if err := stream.Connect(ctx); err != nil {
		return err
	}
	defer stream.Close()

	PrintInfo("watching live orders, Ctrl+C to stop")
	<-ctx.Done()
	return nil
}
