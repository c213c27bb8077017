// crate-vision - beverage crate inventory service
//
// Usage:
//
//	cratevision serve
//	cratevision catalog validate
//	cratevision employee add --username jdoe
//	cratevision client add --name "Depot Bern" --lat 46.948 --lon 7.447
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"crate-vision/api"
	"crate-vision/auth"
	"crate-vision/db/postgres"
	"crate-vision/detect/yolo"
	"crate-vision/inventory"
	"crate-vision/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "cratevision",
		Usage:   "Count and price beverage crates from photos, locate the nearest client",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-host",
				Value:   "localhost",
				Usage:   "Postgres host",
				EnvVars: []string{"DB_HOST"},
			},
			&cli.IntFlag{
				Name:    "db-port",
				Value:   5432,
				Usage:   "Postgres port",
				EnvVars: []string{"DB_PORT"},
			},
			&cli.StringFlag{
				Name:    "db-name",
				Value:   "cratevision",
				Usage:   "Postgres database",
				EnvVars: []string{"DB_NAME"},
			},
			&cli.StringFlag{
				Name:    "db-user",
				Value:   "postgres",
				Usage:   "Postgres user",
				EnvVars: []string{"DB_USER"},
			},
			&cli.StringFlag{
				Name:    "db-password",
				Value:   "",
				Usage:   "Postgres password",
				EnvVars: []string{"DB_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "db-sslmode",
				Value:   "disable",
				Usage:   "Postgres sslmode",
				EnvVars: []string{"DB_SSLMODE"},
			},
		},

		Commands: []*cli.Command{
			serveCommand(),
			catalogCommand(),
			employeeCommand(),
			clientCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openStore(c *cli.Context) (*postgres.Store, error) {
	cfg := postgres.DefaultConfig()
	cfg.Host = c.String("db-host")
	cfg.Port = c.Int("db-port")
	cfg.Database = c.String("db-name")
	cfg.Username = c.String("db-user")
	cfg.Password = c.String("db-password")
	cfg.SSLMode = c.String("db-sslmode")

	store, err := postgres.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to reach Postgres: %w", err)
	}
	return store, nil
}

func loadNormalizer(c *cli.Context) (*inventory.Normalizer, error) {
	if path := c.String("label-rules"); path != "" {
		rules, err := inventory.LoadRules(path)
		if err != nil {
			return nil, err
		}
		return inventory.NewNormalizer(rules), nil
	}
	return inventory.NewNormalizer(nil), nil
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP listen port",
				EnvVars: []string{"PORT"},
			},
			&cli.StringFlag{
				Name:    "upload-dir",
				Value:   "uploads",
				Usage:   "Directory for uploaded images",
				EnvVars: []string{"UPLOAD_DIR"},
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Value:   "outputs",
				Usage:   "Directory where the detector writes predict runs",
				EnvVars: []string{"OUTPUT_DIR"},
			},
			&cli.StringFlag{
				Name:    "model",
				Value:   "models/best.pt",
				Usage:   "Detector weights file",
				EnvVars: []string{"MODEL_PATH"},
			},
			&cli.StringFlag{
				Name:    "detect-script",
				Value:   "scripts/detect_worker.py",
				Usage:   "Inference worker script",
				EnvVars: []string{"DETECT_SCRIPT"},
			},
			&cli.StringFlag{
				Name:    "python",
				Value:   "python3",
				Usage:   "Python interpreter for the worker script",
				EnvVars: []string{"PYTHON_BIN"},
			},
			&cli.DurationFlag{
				Name:    "detect-timeout",
				Value:   60 * time.Second,
				Usage:   "Per-request detection timeout",
				EnvVars: []string{"DETECT_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "label-rules",
				Usage:   "JSON file overriding the built-in label rule table",
				EnvVars: []string{"LABEL_RULES"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	logger := platform.InitLogger()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	normalizer, err := loadNormalizer(c)
	if err != nil {
		return err
	}

	detector := yolo.New(&yolo.Config{
		Python:    c.String("python"),
		Script:    c.String("detect-script"),
		ModelPath: c.String("model"),
		OutputDir: c.String("output-dir"),
		Timeout:   c.Duration("detect-timeout"),
	}, logger)

	cfg := api.DefaultConfig()
	cfg.Port = c.Int("port")
	cfg.UploadDir = c.String("upload-dir")

	server := api.NewServer(store, detector, normalizer, cfg, logger)
	return server.StartWithGracefulShutdown()
}

// =============================================================================
// CATALOG COMMAND
// =============================================================================

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Price catalog maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Warn for every product the label rules can produce that has no catalog price",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "label-rules",
						Usage:   "JSON file overriding the built-in label rule table",
						EnvVars: []string{"LABEL_RULES"},
					},
				},
				Action: runCatalogValidate,
			},
			{
				Name:  "set",
				Usage: "Insert or update a catalog price",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Required: true, Usage: "Product display name"},
					&cli.StringFlag{Name: "price", Required: true, Usage: "Unit price, e.g. 1.50"},
				},
				Action: runCatalogSet,
			},
		},
	}
}

func runCatalogValidate(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	normalizer, err := loadNormalizer(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	missing := 0
	for _, name := range normalizer.ProductNames() {
		_, ok, err := store.Price(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			missing++
			fmt.Printf("MISSING  %s\n", name)
		}
	}

	if missing > 0 {
		return fmt.Errorf("%d product(s) without a catalog price", missing)
	}
	fmt.Println("catalog covers every product the label rules can produce")
	return nil
}

func runCatalogSet(c *cli.Context) error {
	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.SetPrice(ctx, c.String("product"), price); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", c.String("product"), price.StringFixed(2))
	return nil
}

// =============================================================================
// EMPLOYEE COMMAND
// =============================================================================

func employeeCommand() *cli.Command {
	return &cli.Command{
		Name:  "employee",
		Usage: "Employee credential maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add or update an employee login",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true, Usage: "Login name"},
					&cli.StringFlag{
						Name:    "password",
						Usage:   "Password (prefer the env var over the flag)",
						EnvVars: []string{"EMPLOYEE_PASSWORD"},
					},
				},
				Action: runEmployeeAdd,
			},
		},
	}
}

func runEmployeeAdd(c *cli.Context) error {
	password := c.String("password")
	if password == "" {
		return fmt.Errorf("a password is required (flag or EMPLOYEE_PASSWORD)")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.AddEmployee(ctx, auth.Employee{
		Username:     c.String("username"),
		PasswordHash: hash,
	}); err != nil {
		return err
	}
	fmt.Printf("employee %s stored\n", c.String("username"))
	return nil
}

// =============================================================================
// CLIENT COMMAND
// =============================================================================

func clientCommand() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "Client registry maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a client location",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true, Usage: "Client name"},
					&cli.Float64Flag{Name: "lat", Required: true, Usage: "Latitude"},
					&cli.Float64Flag{Name: "lon", Required: true, Usage: "Longitude"},
				},
				Action: runClientAdd,
			},
		},
	}
}

func runClientAdd(c *cli.Context) error {
	lat, lon := c.Float64("lat"), c.Float64("lon")
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	id, err := store.AddClient(ctx, c.String("name"), lat, lon)
	if err != nil {
		return err
	}
	fmt.Printf("client %d (%s) stored\n", id, c.String("name"))
	return nil
}
