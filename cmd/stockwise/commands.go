package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/stockwise/internal/api"
	"github.com/kalambet/stockwise/internal/catalog"
	"github.com/kalambet/stockwise/internal/config"
	"github.com/kalambet/stockwise/internal/pipeline"
	"github.com/kalambet/stockwise/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about stock, prices or sales",
	Long: `Ask a question about stock, prices or sales.

Examples:
  stockwise ask "¿qué productos tienen stock bajo?"
  stockwise ask "precio camisa oxford"
  stockwise ask --local "ventas por categoria"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question is required")
		}
		local, _ := cmd.Flags().GetBool("local")

		var out pipeline.ComposedAnswer
		var err error
		if local {
			out, err = askLocal(cmd.Context(), question)
		} else {
			out, err = askRemote(cmd.Context(), question)
		}
		if err != nil {
			return err
		}
		printAnswer(out)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("local", false, "answer in-process against the local database instead of the server")
}

func askRemote(ctx context.Context, question string) (pipeline.ComposedAnswer, error) {
	client, err := newAPIClient()
	if err != nil {
		return pipeline.ComposedAnswer{}, err
	}
	return client.ask(ctx, question)
}

func (c *apiClient) ask(ctx context.Context, question string) (pipeline.ComposedAnswer, error) {
	resp, err := c.post(ctx, "/v1/ask", api.AskRequest{Question: question})
	if err != nil {
		return pipeline.ComposedAnswer{}, err
	}
	var wire struct {
		Answer           string   `json:"answer"`
		Handlers         []string `json:"handlers"`
		LowStockDetected bool     `json:"low_stock_detected"`
		Degraded         bool     `json:"degraded"`
	}
	if err := decodeJSON(resp, &wire); err != nil {
		return pipeline.ComposedAnswer{}, err
	}
	return pipeline.ComposedAnswer{
		Text:             wire.Answer,
		Handlers:         wire.Handlers,
		LowStockDetected: wire.LowStockDetected,
		Degraded:         wire.Degraded,
	}, nil
}

func askLocal(ctx context.Context, question string) (pipeline.ComposedAnswer, error) {
	cfg, err := config.Load()
	if err != nil {
		return pipeline.ComposedAnswer{}, err
	}
	setupLogging(cfg.Log.Level)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return pipeline.ComposedAnswer{}, fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	router, _, err := buildRouter(cfg, store)
	if err != nil {
		return pipeline.ComposedAnswer{}, err
	}
	defer router.Close()

	out := router.Compose(ctx, question)
	if out.Degraded {
		out.Text = api.MsgClarify
	}
	return out, nil
}

func printAnswer(out pipeline.ComposedAnswer) {
	fmt.Println(out.Text)
	if out.LowStockDetected {
		printWarning("low stock detected, alert raised")
	}
	if out.Degraded {
		printWarning("data source unavailable")
	}
}

// --- products ---

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage the product catalog",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		low, _ := cmd.Flags().GetBool("low")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/products"
		if low {
			path += "?low_stock=true"
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var products []catalog.Record
		if err := decodeJSON(resp, &products); err != nil {
			return err
		}

		if len(products) == 0 {
			fmt.Println("No products found.")
			return nil
		}
		for _, p := range products {
			fmt.Println(productLine(p))
		}
		return nil
	},
}

func productLine(p catalog.Record) string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	line := fmt.Sprintf("%s  %s  talla %s  %s  stock %d/%d",
		colorize(colorCyan, id), p.Name, p.SizeLabel(), p.PriceLabel(), p.Stock, p.MinStock)
	if p.LowStock {
		line += "  " + colorize(colorRed, "bajo mínimo")
	}
	return line
}

var productsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a product",
	Long: `Add or update a product. Passing --id updates an existing product.

Examples:
  stockwise products add --name "Camisa Oxford" --category Camisas --size M --price 29.90 --stock 12 --min-stock 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := productFromFlags(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/products", p)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Saved product %s", result["id"])
		return nil
	},
}

func productFromFlags(cmd *cobra.Command) (catalog.Record, error) {
	var p catalog.Record
	p.ID, _ = cmd.Flags().GetString("id")
	p.Name, _ = cmd.Flags().GetString("name")
	p.Category, _ = cmd.Flags().GetString("category")
	p.Gender, _ = cmd.Flags().GetString("gender")
	p.Size, _ = cmd.Flags().GetString("size")
	p.Price, _ = cmd.Flags().GetFloat64("price")
	p.Stock, _ = cmd.Flags().GetInt("stock")
	p.MinStock, _ = cmd.Flags().GetInt("min-stock")

	if strings.TrimSpace(p.Name) == "" {
		return catalog.Record{}, fmt.Errorf("--name is required")
	}
	if p.Price < 0 || p.Stock < 0 || p.MinStock < 0 {
		return catalog.Record{}, fmt.Errorf("--price, --stock and --min-stock must not be negative")
	}
	return p, nil
}

var productsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/products/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Removed product %s", args[0])
		return nil
	},
}

var productsRestockCmd = &cobra.Command{
	Use:   "restock <id> <units>",
	Short: "Add units to a product's stock",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		units, err := strconv.Atoi(args[1])
		if err != nil || units <= 0 {
			return fmt.Errorf("units must be a positive integer, got %q", args[1])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/products/"+args[0]+"/stock", api.RestockRequest{Units: units})
		if err != nil {
			return err
		}

		var p catalog.Record
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		printSuccess("Restocked %s", p.Name)
		fmt.Println(productLine(p))
		return nil
	},
}

func init() {
	productsListCmd.Flags().Bool("low", false, "only products below their minimum stock")

	productsAddCmd.Flags().String("id", "", "existing product ID to update")
	productsAddCmd.Flags().String("name", "", "product name")
	productsAddCmd.Flags().String("category", "", "category")
	productsAddCmd.Flags().String("gender", "", "gender segment")
	productsAddCmd.Flags().String("size", "", "size")
	productsAddCmd.Flags().Float64("price", 0, "unit price")
	productsAddCmd.Flags().Int("stock", 0, "units in stock")
	productsAddCmd.Flags().Int("min-stock", 0, "minimum stock before alerting")

	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsAddCmd)
	productsCmd.AddCommand(productsRmCmd)
	productsCmd.AddCommand(productsRestockCmd)
}

// --- sales ---

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Record sales",
}

var salesAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Record a sale and decrement stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := saleFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sales", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Recorded sale %s", result["id"])
		return nil
	},
}

func saleFromFlags(cmd *cobra.Command, productID string) (api.SaleRequest, error) {
	req := api.SaleRequest{ProductID: productID}
	req.Quantity, _ = cmd.Flags().GetInt("qty")
	req.ListPrice, _ = cmd.Flags().GetFloat64("list-price")
	req.Discount, _ = cmd.Flags().GetFloat64("discount")
	if cmd.Flags().Changed("final-price") {
		v, _ := cmd.Flags().GetFloat64("final-price")
		req.FinalPrice = &v
	}
	if req.Quantity <= 0 {
		return api.SaleRequest{}, fmt.Errorf("--qty must be positive")
	}
	return req, nil
}

func init() {
	salesAddCmd.Flags().Int("qty", 1, "units sold")
	salesAddCmd.Flags().Float64("list-price", 0, "list price per sale line")
	salesAddCmd.Flags().Float64("discount", 0, "discount applied")
	salesAddCmd.Flags().Float64("final-price", 0, "final charged price (defaults to list price minus discount)")

	salesCmd.AddCommand(salesAddCmd)
}

// --- alerts ---

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recent low-stock alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/alerts?limit=%d", limit))
		if err != nil {
			return err
		}

		var alerts []storage.Alert
		if err := decodeJSON(resp, &alerts); err != nil {
			return err
		}

		if len(alerts) == 0 {
			fmt.Println("No alerts found.")
			return nil
		}
		for _, a := range alerts {
			fmt.Printf("%s  %s  %s\n", a.CreatedAt.Format("2006-01-02 15:04"), statusLabel(a.Status), firstLine(a.Message))
		}
		return nil
	},
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	alertsCmd.Flags().Int("limit", 20, "maximum number of alerts to list")
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Browse answered questions",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/interactions?limit=%d", limit))
		if err != nil {
			return err
		}

		var interactions []storage.Interaction
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		if len(interactions) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		for _, ix := range interactions {
			q := []rune(ix.Question)
			if len(q) > 80 {
				q = append(q[:80], []rune("...")...)
			}
			id := ix.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%s  %s  %-12s  %s\n",
				colorize(colorCyan, id),
				ix.CreatedAt.Format("2006-01-02 15:04"),
				ix.Intent,
				string(q),
			)
		}
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interactions/"+args[0])
		if err != nil {
			return err
		}

		var interaction any
		if err := decodeJSON(resp, &interaction); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(interaction)
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: fmt.Sprintf(`Set a configuration value.

Valid keys:
  %s`, strings.Join(config.ValidKeys(), "\n  ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
