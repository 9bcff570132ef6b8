// Package console is the interactive terminal front end for a single
// operator. It drives the ledger directly, one action at a time.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/store"
	"github.com/shopspring/decimal"
)

// Ledger defines the ledger methods the console needs.
// Satisfied by *service.Ledger; narrow interface for testability.
type Ledger interface {
	Submit(ctx context.Context, tableNumber int, lines []service.OrderLine) (service.Order, error)
	ConfirmDelivery(ctx context.Context, id int64) (time.Time, error)
	Get(id int64) (service.Order, error)
	ListByStatus(status enum.OrderStatus) []service.Order
	All() []service.Order
}

const (
	optMenu = iota + 1
	optNewOrder
	optPending
	optTicket
	optDeliver
	optReceipt
	optReport
	optExit
)

var rule = strings.Repeat("=", 60)

// Console runs the numbered menu loop.
type Console struct {
	in      *bufio.Scanner
	out     io.Writer
	catalog *service.Catalog
	ledger  Ledger
	billing *service.BillingView
	loc     *time.Location
}

// New creates a Console reading from in and writing to out.
func New(in io.Reader, out io.Writer, catalog *service.Catalog, ledger Ledger) *Console {
	return &Console{
		in:      bufio.NewScanner(in),
		out:     out,
		catalog: catalog,
		ledger:  ledger,
		billing: service.NewBillingView(catalog),
		loc:     time.Local,
	}
}

// errEOF is returned by prompts once input is exhausted.
var errEOF = errors.New("end of input")

// Run shows the main menu until the operator exits or input ends.
func (c *Console) Run(ctx context.Context) error {
	for {
		c.mainMenu()
		opt, err := c.readInt("Escolha uma opção: ")
		if errors.Is(err, errEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch opt {
		case optMenu:
			c.showCatalog()
		case optNewOrder:
			err = c.newOrder(ctx)
		case optPending:
			c.showPending()
		case optTicket:
			err = c.withOrder("Número do pedido: ", c.printTicket)
		case optDeliver:
			err = c.deliver(ctx)
		case optReceipt:
			err = c.withOrder("Número do pedido: ", c.printReceipt)
		case optReport:
			c.showReport()
		case optExit:
			c.println("Obrigado por usar nosso sistema!")
			return nil
		default:
			c.println("Opção inválida! Tente novamente.")
		}

		if errors.Is(err, errEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (c *Console) mainMenu() {
	c.println("")
	c.println(rule)
	c.println("        RESTAURANTE JAPONÊS - SISTEMA")
	c.println(rule)
	c.println("1. Ver Menu Completo")
	c.println("2. Fazer Pedido")
	c.println("3. Pedidos Pendentes")
	c.println("4. Imprimir Comanda para Cozinha")
	c.println("5. Confirmar Entrega")
	c.println("6. Imprimir Nota Fiscal")
	c.println("7. Relatório")
	c.println("8. Sair")
	c.println(strings.Repeat("-", 60))
}

// --- Actions ---

func (c *Console) showCatalog() {
	c.header("MENU RESTAURANTE JAPONÊS")
	for _, g := range c.catalog.ListByCategory() {
		c.printf("\n%s:\n", strings.ToUpper(g.Category))
		c.println(strings.Repeat("-", 40))
		for _, it := range g.Items {
			c.printf("%2d. %-30s %s\n", it.Code, it.Name, money(it.Price))
		}
	}
}

// newOrder builds a draft interactively. Code 0 ends item entry and
// submits the draft. Core errors abort only the step that raised them.
func (c *Console) newOrder(ctx context.Context) error {
	c.header("FAZER PEDIDO")

	var draft *service.Draft
	for draft == nil {
		table, err := c.readInt("Número da mesa: ")
		if err != nil {
			return err
		}
		draft, err = service.StartDraft(c.catalog, table)
		if errors.Is(err, service.ErrInvalidInput) {
			c.println("Número de mesa inválido! Tente novamente.")
			continue
		}
		if err != nil {
			c.fail(err)
			return nil
		}
	}

	for {
		c.println("\nDigite o código do item (0 para finalizar):")
		code, err := c.readInt("Código: ")
		if err != nil {
			return err
		}
		if code == 0 {
			break
		}
		it, err := c.catalog.Lookup(code)
		if err != nil {
			c.println("Código inválido! Tente novamente.")
			continue
		}
		qty, err := c.readInt(fmt.Sprintf("Quantidade de '%s': ", it.Name))
		if err != nil {
			return err
		}
		total, err := draft.AddItem(code, qty)
		if err != nil {
			c.fail(err)
			continue
		}
		c.printf("%dx %s no pedido (total do item: %d)\n", qty, it.Name, total)
	}

	lines, err := draft.Finalize()
	if err != nil {
		c.println("Nenhum item adicionado. Pedido cancelado.")
		return nil
	}
	order, err := c.ledger.Submit(ctx, draft.Table(), lines)
	if err != nil {
		c.fail(err)
		return nil
	}
	total, err := c.billing.OrderTotal(order)
	if err != nil {
		c.fail(err)
		return nil
	}
	c.printf("\nPedido #%d registrado para a mesa %d. Total: %s\n", order.ID, order.TableNumber, money(total))
	return nil
}

func (c *Console) showPending() {
	c.header("PEDIDOS PENDENTES")
	pending := c.ledger.ListByStatus(enum.OrderStatusPending)
	if len(pending) == 0 {
		c.println("Nenhum pedido pendente!")
		return
	}
	for _, o := range pending {
		c.printf("#%d - Mesa %d - %s\n", o.ID, o.TableNumber, c.stamp(o.CreatedAt))
	}
}

func (c *Console) deliver(ctx context.Context) error {
	c.showPending()
	id, err := c.readInt("Número do pedido entregue: ")
	if err != nil {
		return err
	}
	at, err := c.ledger.ConfirmDelivery(ctx, int64(id))
	if err != nil {
		c.fail(err)
		return nil
	}
	o, err := c.ledger.Get(int64(id))
	if err != nil {
		c.fail(err)
		return nil
	}
	c.printf("PEDIDO #%d CONFIRMADO COMO ENTREGUE!\n", id)
	c.printf("Mesa: %d\n", o.TableNumber)
	c.printf("Horário da entrega: %s\n", c.stamp(at))
	return nil
}

func (c *Console) printTicket(o service.Order) {
	ticket, err := c.billing.KitchenTicket(o)
	if err != nil {
		c.fail(err)
		return
	}
	c.header("COMANDA DA COZINHA")
	c.printf("Pedido: #%d\n", ticket.OrderID)
	c.printf("Mesa: %d\n", ticket.TableNumber)
	c.printf("Horário: %s\n", c.stamp(ticket.CreatedAt))
	c.println("Status: Pendente")
	c.println(strings.Repeat("-", 60))
	for _, g := range ticket.Groups {
		c.printf("\n%s:\n", strings.ToUpper(g.Category))
		for _, e := range g.Entries {
			c.printf("  [%2dx] %s\n", e.Quantity, e.Item.Name)
		}
	}
	c.println("")
	c.println(rule)
	c.println("PREPARAR COM CARINHO E ATENÇÃO!")
	c.println(rule)
}

func (c *Console) printReceipt(o service.Order) {
	rc, err := c.billing.Receipt(o)
	if err != nil {
		c.fail(err)
		return
	}
	c.header("NOTA FISCAL")
	c.printf("Pedido: #%d\n", rc.OrderID)
	c.printf("Mesa: %d\n", rc.TableNumber)
	c.printf("Horário: %s\n", c.stamp(rc.CreatedAt))
	c.printf("Status: %s\n", strings.ToUpper(rc.Status.Label()))
	if rc.DeliveredAt != nil {
		c.printf("Entrega: %s\n", c.stamp(*rc.DeliveredAt))
	}
	c.println(strings.Repeat("-", 60))
	for _, l := range rc.Lines {
		c.printf("%2dx %-30s %s\n", l.Quantity, l.Item.Name, money(l.Subtotal))
	}
	c.println(strings.Repeat("-", 60))
	c.printf("%-35s %s\n", "TOTAL:", money(rc.Total))
	c.println(rule)
	c.println("Obrigado pela preferência!")
	c.println(rule)
}

func (c *Console) showReport() {
	orders := c.ledger.All()
	c.header("RELATÓRIO DE PEDIDOS")
	if len(orders) == 0 {
		c.println("Nenhum pedido foi realizado!")
		return
	}
	report := service.BuildReport(orders)
	c.println("RESUMO:")
	c.printf("Pedidos Pendentes: %d\n", report.Summary.Pending)
	c.printf("Pedidos Entregues: %d\n", report.Summary.Delivered)
	c.printf("Total de Pedidos: %d\n", report.Summary.Total)

	if len(report.Pending) > 0 {
		c.println("\nPEDIDOS PENDENTES:")
		for _, o := range report.Pending {
			c.printf("  #%d - Mesa %d - %s\n", o.ID, o.TableNumber, c.stamp(o.CreatedAt))
		}
	}
	if len(report.Delivered) > 0 {
		c.println("\nPEDIDOS ENTREGUES:")
		for _, o := range report.Delivered {
			c.printf("  #%d - Mesa %d - Entregue: %s\n", o.ID, o.TableNumber, c.stamp(*o.DeliveredAt))
		}
	}
}

// --- Helpers ---

// withOrder prompts for an order number and hands the order to fn.
func (c *Console) withOrder(prompt string, fn func(service.Order)) error {
	id, err := c.readInt(prompt)
	if err != nil {
		return err
	}
	o, err := c.ledger.Get(int64(id))
	if err != nil {
		c.fail(err)
		return nil
	}
	fn(o)
	return nil
}

// readInt prompts until a whole number is entered.
func (c *Console) readInt(prompt string) (int, error) {
	for {
		c.printf("%s", prompt)
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return 0, fmt.Errorf("read input: %w", err)
			}
			return 0, errEOF
		}
		n, err := strconv.Atoi(strings.TrimSpace(c.in.Text()))
		if err != nil {
			c.println("Por favor, digite um número válido!")
			continue
		}
		return n, nil
	}
}

func (c *Console) fail(err error) {
	switch {
	case errors.Is(err, service.ErrUnknownItem):
		c.println("Erro: código inválido.")
	case errors.Is(err, service.ErrNotFound):
		c.println("Erro: pedido não encontrado.")
	case errors.Is(err, service.ErrAlreadyDelivered):
		c.println("Erro: pedido já foi entregue.")
	case errors.Is(err, service.ErrEmptyOrder):
		c.println("Erro: o pedido não tem itens.")
	default:
		c.printf("Erro: %v\n", err)
	}
}

func (c *Console) header(title string) {
	c.println("")
	c.println(rule)
	c.printf("%*s\n", 30+len(title)/2, title)
	c.println(rule)
}

func (c *Console) stamp(t time.Time) string {
	return t.In(c.loc).Format(store.TimeLayout)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func money(d decimal.Decimal) string {
	return fmt.Sprintf("R$ %6s", d.StringFixed(2))
}
