package console

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/store"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var consoleClock = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T, opts ...service.LedgerOption) *service.Ledger {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	opts = append([]service.LedgerOption{
		service.WithClock(func() time.Time { return consoleClock }),
		service.WithLogger(log),
	}, opts...)
	return service.NewLedger(service.DefaultCatalog(), opts...)
}

// runScript feeds input lines to a console and returns everything it printed.
func runScript(t *testing.T, ledger Ledger, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	c := New(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, service.DefaultCatalog(), ledger)
	c.loc = time.UTC
	require.NoError(t, c.Run(context.Background()))
	return out.String()
}

func TestConsole_ShowCatalogAndExit(t *testing.T) {
	out := runScript(t, newTestLedger(t), "1", "8")

	assert.Contains(t, out, "SASHIMI:")
	assert.Contains(t, out, " 6. Nigiri de Salmão")
	assert.Contains(t, out, "R$   8.00")
	assert.Contains(t, out, "Obrigado por usar nosso sistema!")
}

func TestConsole_EndOfInputStops(t *testing.T) {
	out := runScript(t, newTestLedger(t), "3")
	assert.Contains(t, out, "Nenhum pedido pendente!")
}

func TestConsole_InvalidInputReprompts(t *testing.T) {
	out := runScript(t, newTestLedger(t), "abc", "", "42", "8")

	assert.Equal(t, 2, strings.Count(out, "Por favor, digite um número válido!"))
	assert.Contains(t, out, "Opção inválida! Tente novamente.")
	assert.Contains(t, out, "Obrigado por usar nosso sistema!")
}

func TestConsole_NewOrder(t *testing.T) {
	ledger := newTestLedger(t)
	out := runScript(t, ledger,
		"2", "5",
		"6", "2",
		"999",
		"31", "x", "1",
		"6", "-1",
		"0",
		"8",
	)

	assert.Contains(t, out, "Código inválido! Tente novamente.")
	assert.Contains(t, out, "Por favor, digite um número válido!")
	assert.Contains(t, out, "Pedido #1001 registrado para a mesa 5. Total: R$  24.00")

	o, err := ledger.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, []service.OrderLine{{ItemCode: 6, Quantity: 2}, {ItemCode: 31, Quantity: 1}}, o.Lines)
}

func TestConsole_NewOrderRepromptsForTable(t *testing.T) {
	ledger := newTestLedger(t)
	out := runScript(t, ledger, "2", "0", "-3", "4", "1", "1", "0", "8")

	assert.Equal(t, 2, strings.Count(out, "Número de mesa inválido! Tente novamente."))
	assert.Equal(t, 3, strings.Count(out, "Número da mesa: "))
	assert.Contains(t, out, "Pedido #1001 registrado para a mesa 4.")

	o, err := ledger.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, 4, o.TableNumber)
}

func TestConsole_NewOrderRejected(t *testing.T) {
	ledger := newTestLedger(t)
	out := runScript(t, ledger, "2", "4", "0", "8")

	assert.Contains(t, out, "Nenhum item adicionado. Pedido cancelado.")
	assert.Empty(t, ledger.All())
	assert.Equal(t, service.FirstOrderID, ledger.NextID())
}

func TestConsole_TicketDeliverReceiptReport(t *testing.T) {
	ledger := newTestLedger(t)
	_, err := ledger.Submit(context.Background(), 5, []service.OrderLine{{ItemCode: 6, Quantity: 2}, {ItemCode: 31, Quantity: 1}})
	require.NoError(t, err)

	out := runScript(t, ledger,
		"4", "1001",
		"5", "1001",
		"5", "1001",
		"4", "1001",
		"6", "1001",
		"6", "777",
		"7",
		"8",
	)

	assert.Contains(t, out, "COMANDA DA COZINHA")
	assert.Contains(t, out, "SUSHI:\n  [ 2x] Nigiri de Salmão")
	assert.Contains(t, out, "PEDIDO #1001 CONFIRMADO COMO ENTREGUE!")
	assert.Contains(t, out, "Horário da entrega: 14/03/2026 19:30:00")
	pending := strings.Index(out, "PEDIDOS PENDENTES\n")
	prompt := strings.Index(out, "Número do pedido entregue: ")
	require.GreaterOrEqual(t, pending, 0, "pending orders listed before delivery")
	assert.Less(t, pending, prompt)
	assert.Contains(t, out, "#1001 - Mesa 5 - 14/03/2026 19:30:00")
	assert.Equal(t, 2, strings.Count(out, "Erro: pedido já foi entregue."), "second delivery and ticket of a delivered order")
	assert.Contains(t, out, "Status: ENTREGUE")
	assert.Contains(t, out, "TOTAL:                              R$  24.00")
	assert.Contains(t, out, "Erro: pedido não encontrado.")
	assert.Contains(t, out, "Pedidos Entregues: 1")
	assert.Contains(t, out, "#1001 - Mesa 5 - Entregue: 14/03/2026 19:30:00")

	o, err := ledger.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusDelivered, o.Status)
}

func TestConsole_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pedidos.json")
	ledger := newTestLedger(t, service.WithStore(store.NewFileStore(path)))

	runScript(t, ledger, "2", "3", "13", "1", "0", "8")

	log, _ := logtest.NewNullLogger()
	restored, err := service.OpenLedger(context.Background(), service.DefaultCatalog(),
		service.WithStore(store.NewFileStore(path)), service.WithLogger(log))
	require.NoError(t, err)
	require.Len(t, restored.All(), 1)
	assert.Equal(t, int64(1002), restored.NextID())
}
