package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/transport/grpcserver"
)

const scenarioMethod = "scenario"

// commerceClient — подмножество gRPC-клиента, которое использует нагрузочный тест.
type commerceClient interface {
	CreateCustomer(ctx context.Context, in *grpcserver.CreateCustomerRequest, opts ...grpc.CallOption) (*grpcserver.CustomerResponse, error)
	CreateProduct(ctx context.Context, in *grpcserver.CreateProductRequest, opts ...grpc.CallOption) (*grpcserver.ProductResponse, error)
	CreateOrder(ctx context.Context, in *grpcserver.CreateOrderRequest, opts ...grpc.CallOption) (*grpcserver.OrderResponse, error)
	ListOrders(ctx context.Context, in *grpcserver.ListOrdersRequest, opts ...grpc.CallOption) (*grpcserver.ListOrdersResponse, error)
}

type config struct {
	addr        string
	total       int
	concurrency int
	connections int
	customers   int
	stock       int
	quantity    int
	timeout     time.Duration
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var cfg config
	var timeoutValue string

	flags := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	flags.IntVar(&cfg.total, "total", 400, "total orders to place")
	flags.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flags.IntVar(&cfg.connections, "connections", 10, "number of gRPC client connections")
	flags.IntVar(&cfg.customers, "customers", 20, "number of customers placing orders")
	flags.IntVar(&cfg.stock, "stock", 100, "initial stock of the contended product")
	flags.IntVar(&cfg.quantity, "quantity", 1, "units per order")
	flags.StringVar(&timeoutValue, "timeout", "5s", "per-RPC timeout")
	flags.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := flags.Parse(args); err != nil {
		return cfg, err
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	switch {
	case cfg.total <= 0:
		return cfg, errors.New("total must be > 0")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.customers <= 0:
		return cfg, errors.New("customers must be > 0")
	case cfg.stock < 0:
		return cfg, errors.New("stock must be >= 0")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	}
	return cfg, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]commerceClient, 0, cfg.connections)
	for range cfg.connections {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcserver.NewClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	result, err := runLoad(context.Background(), clients, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test setup failed: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, result)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.Failed > 0 || result.Oversold {
		os.Exit(1)
	}
}

// runLoad создаёт клиентов и один товар с остатком cfg.stock, затем конкурентно
// оформляет cfg.total заказов на этот товар и сверяет проданное с остатком.
func runLoad(ctx context.Context, clients []commerceClient, cfg config) (report, error) {
	setup := clients[0]
	customerIDs := make([]string, 0, cfg.customers)
	for range cfg.customers {
		callCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
		resp, err := setup.CreateCustomer(callCtx, &grpcserver.CreateCustomerRequest{
			Name:  gofakeit.Name(),
			Email: fmt.Sprintf("%d.%s", time.Now().UnixNano(), gofakeit.Email()),
		})
		cancel()
		if err != nil {
			return report{}, fmt.Errorf("create customer: %w", err)
		}
		customerIDs = append(customerIDs, resp.Customer.ID)
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	productResp, err := setup.CreateProduct(callCtx, &grpcserver.CreateProductRequest{
		Name:     fmt.Sprintf("load %s %d", gofakeit.ProductName(), time.Now().UnixNano()),
		Price:    decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2),
		Quantity: cfg.stock,
	})
	cancel()
	if err != nil {
		return report{}, fmt.Errorf("create product: %w", err)
	}
	productID := productResp.Product.ID

	col := newCollector()
	startedAt := time.Now()
	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for workerID := range cfg.concurrency {
		wg.Add(1)
		go func(cli commerceClient) {
			defer wg.Done()
			for id := range jobs {
				runScenario(ctx, cli, cfg, customerIDs[id%len(customerIDs)], productID, col)
			}
		}(clients[workerID%len(clients)])
	}
	for i := range cfg.total {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	duration := time.Since(startedAt)

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Stock:           cfg.stock,
		Methods:         col.methodReports(),
	}
	if duration > 0 {
		result.RPS = float64(cfg.total) / duration.Seconds()
	}
	created := result.Methods["CreateOrder"]
	result.UnitsSold = created.Codes[codes.OK.String()] * int64(cfg.quantity)
	result.Rejected = created.Codes[codes.FailedPrecondition.String()]
	result.Failed = result.Methods[scenarioMethod].Failed
	result.Oversold = result.UnitsSold > int64(cfg.stock)

	for _, customerID := range customerIDs {
		callCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
		listResp, err := setup.ListOrders(callCtx, &grpcserver.ListOrdersRequest{CustomerID: customerID})
		cancel()
		if err != nil {
			return result, fmt.Errorf("list orders: %w", err)
		}
		result.OrdersListed += len(listResp.Orders)
	}

	return result, nil
}

func runScenario(ctx context.Context, client commerceClient, cfg config, customerID, productID string, col *collector) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	_, err := client.CreateOrder(callCtx, &grpcserver.CreateOrderRequest{
		CustomerID: customerID,
		Products:   []domain.ProductQuantity{{ID: productID, Quantity: cfg.quantity}},
	})
	latency := time.Since(start)
	code := grpcCode(err)
	col.record("CreateOrder", latency, code, code == codes.OK)
	col.record(scenarioMethod, latency, code, code == codes.OK || code == codes.FailedPrecondition)
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
