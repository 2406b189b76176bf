package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/corray333/backend-labs/cafe/pkg/catalog"
	"github.com/corray333/backend-labs/cafe/pkg/client"
	"github.com/corray333/backend-labs/cafe/pkg/storefront/cart"
	"github.com/corray333/backend-labs/cafe/pkg/storefront/flow"
	"github.com/corray333/backend-labs/cafe/pkg/storefront/panel"
)

const requestTimeout = 20 * time.Second

const helpText = `Commands:
  menu                     show the products
  add <id>                 add one unit to the cart
  remove <id>              remove one unit from the cart
  cart                     show the cart
  checkout                 continue to the order form
  submit <email> <name...> place the order
  verify <code>            confirm with the emailed code
  back                     go one step back
  cancel                   abandon the order and empty the cart
  new                      start a new order after confirmation
  panel on|off             show or hide the barista panel
  orders                   list confirmed orders
  help                     show this help
  quit                     exit
`

type api interface {
	CreateOrder(ctx context.Context, req client.CreateOrderRequest) (client.CreateOrderResponse, error)
	VerifyOrder(ctx context.Context, orderID, code string) error
	ListConfirmed(ctx context.Context) ([]client.Order, error)
}

// shell is the line oriented storefront UI.
type shell struct {
	out     io.Writer
	catalog *catalog.Catalog
	flow    *flow.Controller
	panel   *panel.Panel
}

func newShell(out io.Writer, api api, pollInterval time.Duration) *shell {
	sh := &shell{
		out:     out,
		catalog: catalog.Default(),
		panel:   panel.New(api, panel.WithInterval(pollInterval)),
	}
	sh.flow = flow.New(api, cart.New(sh.catalog), flow.WithOnConfirmed(sh.refreshPanel))

	return sh
}

func (sh *shell) close() {
	sh.panel.Hide()
}

func (sh *shell) refreshPanel() {
	if !sh.panel.Visible() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := sh.panel.Refresh(ctx); err != nil {
		slog.Error("Failed to refresh barista panel", "error", err)
	}
}

// run reads commands until quit, EOF or ctx is done.
func (sh *shell) run(ctx context.Context, in io.Reader) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(sh.out, "Welcome to Café R&P. Type 'help' for commands.")
	for {
		sh.prompt()

		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if sh.exec(ctx, line) {
				return
			}
		}
	}
}

func (sh *shell) prompt() {
	fmt.Fprintf(sh.out, "[%s] > ", sh.flow.Stage())
}

// exec runs one command and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "menu":
		sh.printMenu()
	case "add", "remove":
		if len(args) != 1 {
			fmt.Fprintf(sh.out, "usage: %s <id>\n", cmd)
			return false
		}
		if _, ok := sh.catalog.Find(args[0]); !ok {
			fmt.Fprintf(sh.out, "unknown product %q\n", args[0])
			return false
		}
		if cmd == "add" {
			sh.flow.Cart().Add(args[0])
		} else {
			sh.flow.Cart().Remove(args[0])
		}
		sh.printCart()
	case "cart":
		sh.printCart()
	case "checkout":
		sh.report(sh.flow.Checkout())
	case "submit":
		if len(args) < 2 {
			fmt.Fprintln(sh.out, "usage: submit <email> <name...>")
			return false
		}
		sh.withTimeout(ctx, func(ctx context.Context) error {
			return sh.flow.Submit(ctx, strings.Join(args[1:], " "), args[0])
		})
		if sh.flow.Stage() == flow.Verification {
			fmt.Fprintf(sh.out, "Order %s received. Check %s for the verification code.\n", sh.flow.OrderID(), args[0])
		}
	case "verify":
		code := ""
		if len(args) > 0 {
			code = args[0]
		}
		sh.withTimeout(ctx, func(ctx context.Context) error {
			return sh.flow.Verify(ctx, code)
		})
		if sh.flow.Stage() == flow.Confirmed {
			fmt.Fprintln(sh.out, "Order confirmed. Type 'new' to start another order.")
		}
	case "back":
		sh.report(sh.flow.Back())
	case "cancel":
		sh.flow.Cancel()
	case "new":
		sh.report(sh.flow.NewOrder())
	case "panel":
		sh.togglePanel(ctx, args)
	case "orders":
		sh.printOrders()
	case "help":
		fmt.Fprint(sh.out, helpText)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(sh.out, "unknown command %q, type 'help'\n", cmd)
	}

	return false
}

func (sh *shell) withTimeout(ctx context.Context, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	sh.report(fn(ctx))
}

// report prints err, which also counts as the user dismissing it.
func (sh *shell) report(err error) {
	if err == nil {
		return
	}
	defer sh.flow.DismissError()

	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		fmt.Fprintln(sh.out, "error: connection failed, please try again")
		slog.Warn("Request failed", "error", err)
		return
	}

	fmt.Fprintf(sh.out, "error: %s\n", err)
}

func (sh *shell) togglePanel(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "usage: panel on|off")
		return
	}

	switch args[0] {
	case "on":
		sh.panel.Show(ctx)
		fmt.Fprintln(sh.out, "Barista panel on.")
	case "off":
		sh.panel.Hide()
		fmt.Fprintln(sh.out, "Barista panel off.")
	default:
		fmt.Fprintln(sh.out, "usage: panel on|off")
	}
}

func (sh *shell) printMenu() {
	w := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	for _, p := range sh.catalog.Products() {
		fmt.Fprintf(w, "%s\t%s\t$%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Description)
	}
	_ = w.Flush()
}

func (sh *shell) printCart() {
	c := sh.flow.Cart()
	if c.IsEmpty() {
		fmt.Fprintln(sh.out, "Your cart is empty.")
		return
	}

	w := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	for _, item := range c.Items() {
		fmt.Fprintf(w, "%dx\t%s\t$%s\n", item.Quantity, item.Name, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\tTotal\t$%s\n", c.Total().StringFixed(2))
	_ = w.Flush()
}

func (sh *shell) printOrders() {
	if !sh.panel.Visible() {
		fmt.Fprintln(sh.out, "Barista panel is off, type 'panel on'.")
		return
	}

	orders := sh.panel.Orders()
	if len(orders) == 0 {
		fmt.Fprintln(sh.out, "No confirmed orders yet.")
		return
	}

	for _, o := range orders {
		fmt.Fprintf(sh.out, "%s  %s  $%s\n", o.CreatedAt.Local().Format("15:04"), o.EmployeeName, o.Total.StringFixed(2))
		for _, item := range o.Items {
			fmt.Fprintf(sh.out, "    %dx %s\n", item.Quantity, item.Name)
		}
	}
}
